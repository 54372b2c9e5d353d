package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"aquawatch/internal/config"
	"aquawatch/internal/domain"
	"aquawatch/internal/store"
)

// SaveRequest persist the thresholds of Config. Recipients are additive: the stored
// set becomes Config.Recipients plus NewRecipients, nothing is ever removed.
type SaveRequest struct {
	DeviceID      string
	Config        *domain.Configuration
	NewRecipients []string
}

// TestRequest ask the backend to send a test notification with synthetic values.
type TestRequest struct {
	DeviceID   string
	Recipients []string
	Sample     map[string]float64
}

// ResetRequest restore recommended thresholds. Current carries the known recipients.
type ResetRequest struct {
	DeviceID string
	Current  *domain.Configuration
}

// Contract one backend contract shape. Returned configurations are complete (merged
// with catalog defaults) and are authoritative for the caller.
type Contract interface {
	Name() string
	Load(ctx context.Context, deviceID string) (*domain.Configuration, error)
	Save(ctx context.Context, req SaveRequest) (*domain.Configuration, error)
	SendTest(ctx context.Context, req TestRequest) error
	Reset(ctx context.Context, req ResetRequest) (*domain.Configuration, error)
}

// New selects the contract named by cfg. kv is only used by the local contract.
func New(cfg *config.Config, catalog *domain.Catalog, kv store.KV, logger *zap.Logger) (Contract, error) {
	switch cfg.API.Contract {
	case config.ContractLocal:
		if kv == nil {
			return nil, fmt.Errorf("local contract requires a store")
		}
		return NewLocalContract(kv, cfg.Store.Key, catalog, logger), nil
	case config.ContractFlat:
		return NewFlatContract(NewClient(cfg.API.Base, cfg.API.Timeout, logger), catalog), nil
	case config.ContractSplit:
		return NewSplitContract(NewClient(cfg.API.Base, cfg.API.Timeout, logger), catalog), nil
	default:
		return nil, fmt.Errorf("unknown backend contract: %s", cfg.API.Contract)
	}
}
