package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/suteetoe/cnpjsync/config"
	"github.com/suteetoe/cnpjsync/database"
	"github.com/suteetoe/cnpjsync/logger"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what every command needs. Nothing is opened when configuration
// is invalid.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry
}

func newApp() (*app, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, err
	}

	log, err := logger.InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", cfg.LogFields()...)

	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{cfg: cfg, log: log, db: db, registry: registry}, nil
}

func (a *app) close() {
	if err := database.Close(a.db); err != nil {
		a.log.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

// pushMetrics sends the run's collectors to the Pushgateway when one is configured
func (a *app) pushMetrics(job string) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(a.cfg.Metrics.PushgatewayURL, job, a.registry); err != nil {
		a.log.Warn("Failed to push metrics", zap.String("job", job), zap.Error(err))
	}
}
