package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"aquawatch/internal/domain"
	"aquawatch/internal/store"
)

// LocalContract no backend: one JSON document per scope in a KV store. The global
// document lives under baseKey, device documents under baseKey:<device_id>.
type LocalContract struct {
	kv      store.KV
	baseKey string
	catalog *domain.Catalog
	logger  *zap.Logger
}

func NewLocalContract(kv store.KV, baseKey string, catalog *domain.Catalog, logger *zap.Logger) *LocalContract {
	if baseKey == "" {
		baseKey = "water_alert_settings"
	}
	return &LocalContract{kv: kv, baseKey: baseKey, catalog: catalog, logger: logger}
}

func (l *LocalContract) Name() string { return "local" }

// Key returns the store key of a scope.
func (l *LocalContract) Key(deviceID string) string {
	if deviceID == "" {
		return l.baseKey
	}
	return l.baseKey + ":" + deviceID
}

// Load reads the device document, then the global one, then falls back to defaults.
func (l *LocalContract) Load(ctx context.Context, deviceID string) (*domain.Configuration, error) {
	keys := []string{l.Key(deviceID)}
	if deviceID != "" {
		keys = append(keys, l.Key(""))
	}
	for _, key := range keys {
		value, err := l.kv.Get(ctx, key)
		if errors.Is(err, store.ErrMiss) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		raw, err := decodeDocument(l.catalog, []byte(value))
		if err != nil {
			return nil, fmt.Errorf("stored %s: %w", key, err)
		}
		return l.catalog.Merge(deviceID, raw), nil
	}
	return l.catalog.Defaults(deviceID), nil
}

// Save writes the whole aggregate verbatim.
func (l *LocalContract) Save(ctx context.Context, req SaveRequest) (*domain.Configuration, error) {
	cfg := req.Config.Clone()
	cfg.DeviceID = req.DeviceID
	cfg.Recipients = domain.MergeRecipients(cfg.Recipients, req.NewRecipients)
	if err := l.write(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SendTest only logs: there is nobody to deliver to.
func (l *LocalContract) SendTest(_ context.Context, req TestRequest) error {
	l.logger.Info("[MOCK] send test email",
		zap.String("device_id", req.DeviceID),
		zap.Strings("recipients", req.Recipients),
		zap.Any("sample", req.Sample),
	)
	return nil
}

// Reset stores the recommended thresholds and keeps the stored recipients.
func (l *LocalContract) Reset(ctx context.Context, req ResetRequest) (*domain.Configuration, error) {
	cfg := l.catalog.Defaults(req.DeviceID)
	if req.Current != nil {
		cfg.Recipients = append([]string{}, req.Current.Recipients...)
	}
	if err := l.write(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type localDocument struct {
	Recipients []string                 `json:"recipients"`
	Metrics    map[string]wireThreshold `json:"metrics"`
}

func (l *LocalContract) write(ctx context.Context, cfg *domain.Configuration) error {
	doc := localDocument{
		Recipients: append([]string{}, cfg.Recipients...),
		Metrics:    make(map[string]wireThreshold, len(cfg.Thresholds)),
	}
	for key, t := range cfg.Thresholds {
		doc.Metrics[key] = toWire(t)
	}
	value, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := l.kv.Set(ctx, l.Key(cfg.DeviceID), string(value)); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}
