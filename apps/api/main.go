package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/shulehub/shule/apps/api/echo"
	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/cart"
	"github.com/shulehub/shule/core/content"
	"github.com/shulehub/shule/core/identity"
	"github.com/shulehub/shule/core/stream"
	directorysvc "github.com/shulehub/shule/services/directory"
	emailsvc "github.com/shulehub/shule/services/email"
	logsvc "github.com/shulehub/shule/services/logger"
	streamsvc "github.com/shulehub/shule/services/stream"
	"github.com/shulehub/shule/storage/database"
	sqlxrepos "github.com/shulehub/shule/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// set up side services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var broker stream.Broker
	if conf.Redis.Addr != "" {
		redisBroker := streamsvc.NewRedisBroker(conf, logger)
		defer func() { _ = redisBroker.Close() }()
		broker = redisBroker
	} else {
		broker = streamsvc.NewMemoryBroker()
	}

	var dir identity.Directory
	if conf.IdentityBaseURL != "" {
		dir = directorysvc.NewHTTPDirectory(conf)
	}

	// set up engines
	contentRepo := sqlxrepos.NewContentRepository(db)
	cartRepo := sqlxrepos.NewCartRepository(db)
	contentSvc := content.NewService(contentRepo, broker, mailSvc, dir, logger, conf)
	cartSvc := cart.NewService(cartRepo, contentRepo, broker, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	content.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			ContentSvc: contentSvc,
			CartSvc:    cartSvc,
			Broker:     broker,
			Validate:   validate,
			Translator: translator,
		},
	)

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	enLocale := en.New()
	uniTranslator := ut.New(enLocale, enLocale)
	translator, _ := uniTranslator.GetTranslator("en")
	return translator
}
