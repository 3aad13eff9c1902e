package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	requestlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/mindbox-quickstart/staff-auth"
	"github.com/mindbox-quickstart/staff-auth/crm"
	"github.com/mindbox-quickstart/staff-auth/repository"
)

// Config is read once from the environment at startup. The search operation
// authenticates with its own endpoint/secret pair, hence the duplicated
// credential slots.
type Config struct {
	Addr  string `env:"ADDR" envDefault:":3001"`
	Debug bool   `env:"DEBUG" envDefault:"false"`

	CRMBaseURL       string `env:"MINDBOX_API_URL" envDefault:"https://api.mindbox.ru"`
	EndpointID       string `env:"ENDPOINT,required"`
	SecretKey        string `env:"SECRET_KEY,required"`
	SearchEndpointID string `env:"ENDPOINT_FOR_SEARCH,required"`
	SearchSecretKey  string `env:"SECRET_KEY_FOR_SEARCH,required"`

	TokenSecret     string `env:"TOKEN_SECRET,required"`
	TokenExpiration int    `env:"TOKEN_EXPIRATION_HOURS" envDefault:"24"`
	TokenIssuer     string `env:"TOKEN_ISSUER" envDefault:"staff-auth"`

	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:staff_auth.db?cache=shared"`
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("staff-auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	log := lgr.GetLogger("app")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Error("parse config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	activity, err := withPersistence(ctx, cfg, lgr)
	if err != nil {
		log.Error("persistence setup", "error", err)
		os.Exit(1)
	}

	gateway := crm.New(crm.Config{
		BaseURL:          cfg.CRMBaseURL,
		EndpointID:       cfg.EndpointID,
		SecretKey:        cfg.SecretKey,
		SearchEndpointID: cfg.SearchEndpointID,
		SearchSecretKey:  cfg.SearchSecretKey,
	})

	tokens := auth.NewTokenService(
		[]byte(cfg.TokenSecret),
		cfg.TokenExpiration,
		cfg.TokenIssuer,
		lgr.GetLogger("tokens"),
	)

	app := fiber.New(fiber.Config{
		AppName: "staff-auth",
	})
	app.Use(requestlog.New())

	api := app.Group("/api/user")
	auth.RegisterAuthRoutes(api, func(c *auth.AuthController) *auth.AuthController {
		c.Debug = cfg.Debug
		c.Logger = lgr.GetLogger("auth")
		c.Gateway = gateway
		c.Tokens = tokens
		c.Activity = activity
		return c
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("listening", "addr", cfg.Addr)
	if err := app.Listen(cfg.Addr); err != nil {
		log.Error("server exit", "error", err)
		os.Exit(1)
	}
}

func withPersistence(ctx context.Context, cfg Config, lgr *glog.BaseLogger) (*repository.ActivityRepository, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	activity := repository.NewActivityRepository(db)
	if err := activity.CreateTable(ctx); err != nil {
		return nil, fmt.Errorf("provision activity table: %w", err)
	}

	lgr.GetLogger("persistence").Info("activity store ready", "dsn", cfg.DatabaseDSN)

	return activity, nil
}
