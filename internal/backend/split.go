package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"aquawatch/internal/domain"
)

// SplitContract thresholds and subscribers live behind separate endpoints and metrics
// use backend field names (temperature, water_level ...):
//
//	GET  /settings[?device_id=]           -> {field: {min,max,enabled}}
//	PUT  /settings[?device_id=]           <- same shape
//	POST /settings/subscribers/add        <- {device_id, emails}
//	POST /settings/send-test?device_id=   <- {recipients, sample}
//	POST /settings/reset[?device_id=]     -> {field: {min,max,enabled}}
//
// Recipients are never returned by this contract.
type SplitContract struct {
	client  *Client
	catalog *domain.Catalog
}

func NewSplitContract(client *Client, catalog *domain.Catalog) *SplitContract {
	return &SplitContract{client: client, catalog: catalog}
}

func (s *SplitContract) Name() string { return "split" }

func deviceQuery(deviceID string) map[string]string {
	if deviceID == "" {
		return nil
	}
	return map[string]string{"device_id": deviceID}
}

func (s *SplitContract) Load(ctx context.Context, deviceID string) (*domain.Configuration, error) {
	body, err := s.client.Get(ctx, "/settings", deviceQuery(deviceID))
	if err != nil {
		return nil, err
	}
	raw, err := s.decode(body)
	if err != nil {
		return nil, err
	}
	return s.catalog.Merge(deviceID, raw), nil
}

// Save writes thresholds first, then registers new subscribers. A subscriber failure
// is returned as an error even though the thresholds were already written.
func (s *SplitContract) Save(ctx context.Context, req SaveRequest) (*domain.Configuration, error) {
	doc := s.document(req.Config)
	body, err := s.client.Put(ctx, "/settings", deviceQuery(req.DeviceID), doc)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		if body, err = json.Marshal(doc); err != nil {
			return nil, err
		}
	}
	raw, err := s.decode(body)
	if err != nil {
		return nil, err
	}

	if len(req.NewRecipients) > 0 {
		payload := map[string]any{
			"device_id": req.DeviceID,
			"emails":    req.NewRecipients,
		}
		if _, err := s.client.Post(ctx, "/settings/subscribers/add", nil, payload); err != nil {
			return nil, fmt.Errorf("thresholds saved, add subscribers: %w", err)
		}
	}

	raw.Recipients = domain.MergeRecipients(req.Config.Recipients, req.NewRecipients)
	return s.catalog.Merge(req.DeviceID, raw), nil
}

func (s *SplitContract) SendTest(ctx context.Context, req TestRequest) error {
	payload := map[string]any{
		"recipients": req.Recipients,
		"sample":     s.fieldSample(req.Sample),
	}
	_, err := s.client.Post(ctx, "/settings/send-test", map[string]string{"device_id": req.DeviceID}, payload)
	return err
}

func (s *SplitContract) Reset(ctx context.Context, req ResetRequest) (*domain.Configuration, error) {
	body, err := s.client.Post(ctx, "/settings/reset", deviceQuery(req.DeviceID), nil)
	if err != nil {
		return nil, err
	}
	raw, err := s.decode(body)
	if err != nil {
		return nil, err
	}
	if req.Current != nil {
		raw.Recipients = append([]string{}, req.Current.Recipients...)
	}
	return s.catalog.Merge(req.DeviceID, raw), nil
}

func (s *SplitContract) document(cfg *domain.Configuration) map[string]wireThreshold {
	doc := make(map[string]wireThreshold, len(cfg.Thresholds))
	for _, m := range s.catalog.Metrics() {
		if t, ok := cfg.Thresholds[m.Key]; ok {
			doc[m.BackendField] = toWire(t)
		}
	}
	return doc
}

func (s *SplitContract) fieldSample(sample map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(sample))
	for key, v := range sample {
		if m, ok := s.catalog.Get(key); ok {
			out[m.BackendField] = v
		}
	}
	return out
}

// decode maps backend field names back to catalog keys; unknown fields are ignored.
func (s *SplitContract) decode(body []byte) (*domain.RawConfiguration, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	raw := &domain.RawConfiguration{Metrics: map[string]domain.RawThreshold{}}
	for field, entry := range obj {
		m, ok := s.catalog.ByBackendField(field)
		if !ok {
			continue
		}
		rt, err := decodeThreshold(field, entry)
		if err != nil {
			return nil, err
		}
		raw.Metrics[m.Key] = rt
	}
	return raw, nil
}
