package main

import (
	"log"
	"os"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/content"
	logsvc "github.com/shulehub/shule/services/logger"
	"github.com/shulehub/shule/storage/database"
	sqlxrepos "github.com/shulehub/shule/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	repo := sqlxrepos.NewContentRepository(db)

	// start CLI
	cli := commandLine{
		db:         db,
		conf:       conf,
		contentSvc: content.NewService(repo, nil, nil, nil, logsvc.NewStdLogger(logger), conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
