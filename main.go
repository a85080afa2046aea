package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	apihttp "github.com/fmanana/autosense-backend/internal/api/http"
	"github.com/fmanana/autosense-backend/internal/auth"
	"github.com/fmanana/autosense-backend/internal/config"
	"github.com/fmanana/autosense-backend/internal/observability/logging"
	"github.com/fmanana/autosense-backend/internal/observability/metrics"
	stationapp "github.com/fmanana/autosense-backend/internal/stations/application"
	"github.com/fmanana/autosense-backend/internal/stations/infrastructure/sqlstore"
	stationhttp "github.com/fmanana/autosense-backend/internal/stations/interfaces/http"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a YAML config file",
		EnvVars: []string{config.EnvConfigPath},
	}
	return &cli.App{
		Name:    "autosense",
		Usage:   "fuel station and pump API",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Flags:  []cli.Flag{configFlag},
				Action: serveAction,
			},
			{
				Name:  "token",
				Usage: "print a bearer token signed with the configured key",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "subject", Usage: "token subject (defaults to the configured demo subject)"},
				},
				Action: tokenAction,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, version)
					return err
				},
			},
		},
		DefaultCommand: "serve",
	}
}

func tokenAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTKey), cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	subject := c.String("subject")
	if subject == "" {
		subject = cfg.Auth.TokenSubject
	}
	token, err := tokens.Issue(subject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

func buildServer(ctx context.Context, cfg config.Config, logger hclog.Logger) (*http.Server, func(), error) {
	db, dialect, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN(),
		Logger: logger.Named("store"),
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}

	metrics.Init(db, logger.Named("metrics"))

	store := sqlstore.New(db, sqlstore.WithDialect(dialect), sqlstore.WithLogger(logger.Named("store")))
	service, err := stationapp.NewStationService(store, stationapp.WithLogger(logger.Named("stations")))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTKey), cfg.Auth.TokenTTL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	stationsHandler, err := stationhttp.NewHandler(service, logger.Named("http"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var limiter *rate.Limiter
	if cfg.Auth.TokenRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Auth.TokenRatePerSec), cfg.Auth.TokenRateBurst)
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := apihttp.NewRouter(apihttp.Options{
		Logger:      logger.Named("http"),
		Auth:        auth.NewMiddleware(tokens, auth.NewDefaultPolicy(nil, nil), logger.Named("auth")),
		Tokens:      apihttp.NewTokenHandler(tokens, cfg.Auth.TokenSubject, limiter, logger.Named("http")),
		Stations:    stationsHandler,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StandardLogger(logger.Named("http")),
	}
	return server, cleanup, nil
}
