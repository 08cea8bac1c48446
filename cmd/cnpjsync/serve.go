package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/suteetoe/cnpjsync/database"
	"github.com/suteetoe/cnpjsync/internal/enrichment"
	"github.com/suteetoe/cnpjsync/internal/events"
	"github.com/suteetoe/cnpjsync/internal/handler"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"github.com/suteetoe/cnpjsync/logger"
	"github.com/suteetoe/cnpjsync/metrics"
	"github.com/suteetoe/cnpjsync/middleware"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve company lookups and the internal import trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()

		var locker enrichment.Locker
		if a.cfg.Redis.Enabled() {
			client, err := database.ConnectRedis(ctx, a.cfg.Redis, a.log)
			if err != nil {
				return err
			}
			defer client.Close()
			locker = enrichment.NewRedisLocker(client, a.cfg.Enrichment.LeaseTTL, a.cfg.Enrichment.LeaseWait, a.log)
		} else {
			a.log.Info("Redis not configured, leases are kept in process")
			locker = enrichment.NewLocalLocker(a.cfg.Enrichment.LeaseWait)
		}

		publisher := events.New(a.cfg.Kafka, a.log)
		defer func() {
			if err := publisher.Close(); err != nil {
				a.log.Warn("Failed to close event publisher", zap.Error(err))
			}
		}()

		provider := enrichment.NewHTTPProvider(a.cfg.Enrichment.ProviderURL, a.cfg.Enrichment.ProviderTimeout)
		svc := enrichment.NewService(a.db, upsert.NewEngine(), provider, locker, a.log,
			enrichment.WithFreshness(a.cfg.Enrichment.Freshness),
			enrichment.WithRefreshTimeout(a.cfg.Enrichment.ProviderTimeout+a.cfg.Enrichment.LeaseWait),
			enrichment.WithMetrics(metrics.NewEnrichmentMetrics(a.registry, a.cfg.Metrics.Prefix)),
			enrichment.WithPublisher(publisher),
		)

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true

		httpMetrics := metrics.NewHTTPMetrics(a.registry, a.cfg.Metrics.Prefix, a.cfg.ServiceName)
		e.Use(echomw.Recover())
		e.Use(middleware.RequestIDMiddleware(a.log))
		e.Use(logger.Middleware(a.log))
		e.Use(httpMetrics.Middleware())

		handler.Register(e,
			handler.NewCompanyHandler(svc, a.log),
			handler.NewHealthHandler(a.db, a.log),
			metrics.Handler(a.registry))

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("Starting server", zap.String("port", a.cfg.Server.Port))
			errCh <- e.Start(":" + a.cfg.Server.Port)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}
