package main

import (
	"context"

	"go.uber.org/zap"

	"aquawatch/internal/backend"
	"aquawatch/internal/config"
	"aquawatch/internal/dashboard"
	"aquawatch/internal/domain"
	"aquawatch/internal/metrics"
	"aquawatch/internal/mqtt"
	"aquawatch/internal/report"
	"aquawatch/internal/service"
	"aquawatch/internal/store"
)

// app process-wide collaborators shared by every sub-command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	catalog  *domain.Catalog
	contract backend.Contract
	// client is nil without an API base
	client    *backend.Client
	publisher service.ChangePublisher
	recorder  *metrics.Recorder

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.catalog = domain.DefaultCatalog()
	if cfg.CatalogFile != "" {
		c, err := domain.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		a.catalog = c
		logger.Info("Loaded metric catalog", zap.String("file", cfg.CatalogFile), zap.Strings("metrics", c.Keys()))
	}

	var kv store.KV
	if cfg.API.Contract == config.ContractLocal {
		s, closeFn, err := store.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		kv = s
		a.closers = append(a.closers, closeFn)
	}

	contract, err := backend.New(cfg, a.catalog, kv, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.contract = contract
	if cfg.BackendPresent() {
		a.client = backend.NewClient(cfg.API.Base, cfg.API.Timeout, logger)
	}

	if cfg.MQTT.Enabled {
		mc, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			// settings still work without the publisher
			logger.Warn("MQTT unavailable, settings changes will not be published", zap.Error(err))
		} else {
			a.publisher = mqtt.NewSettingsPublisher(mc, cfg.MQTT.Topic, cfg.MQTT.QoS)
			a.closers = append(a.closers, func() error { mc.Disconnect(); return nil })
		}
	}

	logger.Info("aquawatch initialized",
		zap.String("contract", contract.Name()),
		zap.String("device_id", cfg.DeviceID),
		zap.Bool("backend", cfg.BackendPresent()),
	)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *app) newSession() *service.SettingsSession {
	opts := service.SessionOptions{
		DeviceID:  a.cfg.DeviceID,
		Policy:    a.cfg.Policy,
		Publisher: a.publisher,
	}
	if a.recorder != nil {
		opts.Observer = a.recorder
	}
	return service.NewSettingsSession(a.contract, a.catalog, opts, a.logger)
}

func (a *app) reports() *report.Service {
	var exporter report.Exporter = report.NewPlaceholderExporter(a.catalog)
	if a.client != nil {
		exporter = report.NewHTTPExporter(a.client)
	}
	return report.NewService(a.catalog, exporter, a.cfg.ReportTZ, a.logger)
}

func (a *app) today() (*dashboard.Today, error) {
	loc, err := reportLocation(a.cfg.ReportTZ)
	if err != nil {
		return nil, err
	}
	var primary dashboard.Source
	if a.client != nil {
		primary = dashboard.NewHTTPSource(a.client, a.catalog)
	}
	var observer dashboard.Observer
	if a.recorder != nil {
		observer = a.recorder
	}
	return dashboard.NewToday(a.catalog, primary, loc, observer, a.logger), nil
}
