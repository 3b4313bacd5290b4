package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/spendlog/spendlog-go/internal/config"
	"github.com/spendlog/spendlog-go/internal/crypto"
	"github.com/spendlog/spendlog-go/internal/events"
	"github.com/spendlog/spendlog-go/internal/handler"
	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/middleware"
	"github.com/spendlog/spendlog-go/internal/repository"
	"github.com/spendlog/spendlog-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	if err := run(); err != nil {
		slog.Error("fatal", logging.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	log := logging.Component(logger, logging.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, repository.Options{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseDSN,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logging.Component(logger, logging.ComponentStorage).Info("store ready", "driver", cfg.DatabaseDriver)

	hasher, err := crypto.NewHasher(cfg.PasswordHash)
	if err != nil {
		return err
	}
	tokens := crypto.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Info("publishing events", "exchange", cfg.AMQPExchange)
	}

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	defer limiter.Stop()

	router := handler.NewRouter(handler.Deps{
		Auth:         service.NewAuthService(store.Users(), hasher, tokens, publisher),
		Expenses:     service.NewExpenseService(store.Expenses(), publisher),
		Tokens:       tokens,
		AuthLimiter:  limiter.Middleware,
		CORSOrigins:  cfg.CORSOrigins,
		Ping:         store.Ping,
		Logger:       logger,
		ExposeErrors: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
