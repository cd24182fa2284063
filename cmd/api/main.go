package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/mahmoudaladin7/E-Commerce/internal/config"
	"github.com/mahmoudaladin7/E-Commerce/internal/gateway"
	"github.com/mahmoudaladin7/E-Commerce/internal/gateway/paypal"
	"github.com/mahmoudaladin7/E-Commerce/internal/gateway/stripe"
	"github.com/mahmoudaladin7/E-Commerce/internal/httpapi"
	"github.com/mahmoudaladin7/E-Commerce/internal/metrics"
	"github.com/mahmoudaladin7/E-Commerce/internal/repository"
	"github.com/mahmoudaladin7/E-Commerce/internal/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	if err := runMigrations(cfg.DB); err != nil {
		return fmt.Errorf("runMigrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	gateways := gateway.NewRegistry(
		gateway.WithBreaker(stripe.New(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			BaseURL:       cfg.Stripe.BaseURL,
		}, nil)),
		gateway.WithBreaker(paypal.New(paypal.Config{
			ClientID:      cfg.PayPal.ClientID,
			ClientSecret:  cfg.PayPal.ClientSecret,
			WebhookSecret: cfg.PayPal.WebhookSecret,
			BaseURL:       cfg.PayPal.BaseURL,
		}, nil)),
	)

	orders := repository.NewOrder(pool)
	carts := repository.NewCartReader(pool)

	checkout := service.NewCheckout(carts, orders, gateways, log, m)
	confirmations := service.NewConfirmation(orders, gateways, log, m)

	server := httpapi.NewServer(checkout, confirmations, orders, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Router(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ListenAndServe: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Shutdown: %w", err)
	}

	return nil
}

func runMigrations(cfg config.DB) error {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres.WithInstance: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.NewWithDatabaseInstance: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrator.Up: %w", err)
	}

	return nil
}
