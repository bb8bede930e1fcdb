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

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/events"
	httpserver "github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cart-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sequencer := events.NewMemorySequencer()
	publisher, err := newPublisher(cfg, sequencer, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close error", zap.Error(err))
		}
	}()

	sessions := session.NewRegistry(cfg.SessionTTL, logger, session.OnEnd(sequencer.Forget))
	go sessions.Run(ctx, cfg.SessionReapInterval)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; adding to cart will be refused")
	}

	handler := httpserver.NewCartHandler(sessions, publisher, cfg.Sizes, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpserver.NewRouter(handler, []byte(cfg.JWTSecret), logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cart-service listening", zap.String("addr", srv.Addr), zap.Strings("sizes", cfg.Sizes))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func newPublisher(cfg config.Config, seq events.Sequencer, logger *zap.Logger) (events.CartEventsPublisher, error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set; cart events disabled")
		return events.NopPublisher{}, nil
	}

	conn, err := events.DialRabbit(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}
	p, err := events.NewRabbitCartEventsPublisher(conn, seq)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create cart publisher: %w", err)
	}
	return &connPublisher{RabbitCartEventsPublisher: p, conn: conn}, nil
}

// connPublisher closes the AMQP connection together with its channel.
type connPublisher struct {
	*events.RabbitCartEventsPublisher
	conn interface{ Close() error }
}

func (p *connPublisher) Close() error {
	return errors.Join(p.RabbitCartEventsPublisher.Close(), p.conn.Close())
}
