package main

import (
	"github.com/shulehub/shule/storage/database"
)

func (cli *commandLine) migrate() error {
	return database.Migrate(cli.db.DB)
}
