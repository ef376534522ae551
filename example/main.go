package main

import (
	"net/http"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	courtbot "github.com/wirnat/courtbot"
)

type Cfg struct {
	Listen      string `envconfig:"LISTEN" default:":8080"`
	StorageType string `envconfig:"STORAGE_TYPE" default:"memory"`

	AWSRegion         string `envconfig:"AWS_REGION" default:"us-east-1"`
	CustomersTable    string `envconfig:"CUSTOMERS_TABLE" default:"customers"`
	ReservationsTable string `envconfig:"RESERVATIONS_TABLE" default:"reservations"`

	MongoURI    string `envconfig:"MONGO_URI"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg Cfg
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	store, err := courtbot.NewStore(courtbot.StorageConfig{
		Type:              courtbot.StorageType(cfg.StorageType),
		AWSRegion:         cfg.AWSRegion,
		CustomersTable:    cfg.CustomersTable,
		ReservationsTable: cfg.ReservationsTable,
		MongoURI:          cfg.MongoURI,
		RedisAddress:      cfg.RedisAddr,
		PostgresDSN:       cfg.PostgresDSN,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	defer store.Close()

	if mem, ok := store.(*courtbot.InMemoryStore); ok {
		// Demo accounts for local play
		mem.SeedCustomer(courtbot.Customer{DNI: "12345678", Credits: 20})
		mem.SeedCustomer(courtbot.Customer{DNI: "87654321", Credits: 100})
	}

	router := courtbot.NewRouter()
	router.Add(courtbot.NewReserveCourt(store))

	e := echo.New()
	e.HideBanner = true

	e.POST("/lex", func(c echo.Context) error {
		var event courtbot.Event
		if err := c.Bind(&event); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, router.Dispatch(c.Request().Context(), &event))
	})

	e.GET("/healthz", func(c echo.Context) error {
		if err := store.HealthCheck(); err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return c.String(http.StatusOK, "ok")
	})

	log.Info().Str("listen", cfg.Listen).Str("storage", cfg.StorageType).Msg("courtbot webhook up")
	if err := e.Start(cfg.Listen); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
