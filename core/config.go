package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default) | TEST | QA | PROD
		Build            string
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		IdentityBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host               string
		Port               int
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}
)

func (c ServerConfig) Address() string   { return fmt.Sprintf("%s:%d", c.Host, c.Port) }
func (c DatabaseConfig) Address() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "w#l1v3-4nd-l34rn!-efz1(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("identityBaseURL", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "shule")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		IdentityBaseURL:  v.GetString("identityBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetInt("server.port"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}
}
