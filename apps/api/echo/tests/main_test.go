package tests

import (
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/shulehub/shule/apps/api/echo"
	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/cart"
	"github.com/shulehub/shule/core/content"
	emailsvc "github.com/shulehub/shule/services/email"
	streamsvc "github.com/shulehub/shule/services/stream"
	dummydb "github.com/shulehub/shule/storage/database/dummy"
)

var (
	conf        *core.Config
	db          *dummydb.DB
	app         echoapi.Server
	contentRepo content.Repository
	cartRepo    cart.Repository
	broker      *streamsvc.MemoryBroker

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errPermDenied   = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Shule",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Name: "Shule", Address: "noreply@test.test"},
		Server:           core.ServerConfig{JWTExpirationDelta: time.Hour},
	}

	// set up DB & repos
	db, _ = dummydb.Open()
	contentRepo = dummydb.NewContentRepository(db)
	cartRepo = dummydb.NewCartRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	broker = streamsvc.NewMemoryBroker()
	contentSvc := content.NewService(contentRepo, broker, mailSvc, nil, nil, conf)
	cartSvc := cart.NewService(cartRepo, contentRepo, broker, nil)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	content.InitValidators(validate, translator)

	// set up server
	app = echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			ContentSvc:     contentSvc,
			CartSvc:        cartSvc,
			Broker:         broker,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)

	os.Exit(m.Run())
}

func newTranslator() ut.Translator {
	enLocale := en.New()
	uniTranslator := ut.New(enLocale, enLocale)
	translator, _ := uniTranslator.GetTranslator("en")
	return translator
}
