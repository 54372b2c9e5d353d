package backend

import (
	"context"
	"encoding/json"

	"aquawatch/internal/domain"
)

// FlatContract single settings document with inline recipients:
//
//	GET  /sensor/settings            -> {recipients, metrics: {key: {min,max,enabled}}}
//	PUT  /sensor/settings            <- same shape, returns same shape (or empty)
//	POST /sensor/settings/test-email <- {recipients, sample}
type FlatContract struct {
	client  *Client
	catalog *domain.Catalog
}

func NewFlatContract(client *Client, catalog *domain.Catalog) *FlatContract {
	return &FlatContract{client: client, catalog: catalog}
}

func (f *FlatContract) Name() string { return "flat" }

type flatDocument struct {
	Recipients []string                 `json:"recipients"`
	Metrics    map[string]wireThreshold `json:"metrics"`
}

func (f *FlatContract) Load(ctx context.Context, deviceID string) (*domain.Configuration, error) {
	body, err := f.client.Get(ctx, "/sensor/settings", nil)
	if err != nil {
		return nil, err
	}
	raw, err := decodeDocument(f.catalog, body)
	if err != nil {
		return nil, err
	}
	return f.catalog.Merge(deviceID, raw), nil
}

func (f *FlatContract) Save(ctx context.Context, req SaveRequest) (*domain.Configuration, error) {
	doc := f.document(req.Config, domain.MergeRecipients(req.Config.Recipients, req.NewRecipients))
	return f.put(ctx, req.DeviceID, doc)
}

func (f *FlatContract) SendTest(ctx context.Context, req TestRequest) error {
	payload := map[string]any{
		"recipients": req.Recipients,
		"sample":     req.Sample,
	}
	_, err := f.client.Post(ctx, "/sensor/settings/test-email", nil, payload)
	return err
}

// Reset has no dedicated endpoint here: PUT the recommended thresholds.
func (f *FlatContract) Reset(ctx context.Context, req ResetRequest) (*domain.Configuration, error) {
	defaults := f.catalog.Defaults(req.DeviceID)
	var recipients []string
	if req.Current != nil {
		recipients = req.Current.Recipients
	}
	return f.put(ctx, req.DeviceID, f.document(defaults, recipients))
}

func (f *FlatContract) document(cfg *domain.Configuration, recipients []string) flatDocument {
	doc := flatDocument{
		Recipients: append([]string{}, recipients...),
		Metrics:    make(map[string]wireThreshold, len(cfg.Thresholds)),
	}
	for _, key := range f.catalog.Keys() {
		if t, ok := cfg.Thresholds[key]; ok {
			doc.Metrics[key] = toWire(t)
		}
	}
	return doc
}

func (f *FlatContract) put(ctx context.Context, deviceID string, doc flatDocument) (*domain.Configuration, error) {
	body, err := f.client.Put(ctx, "/sensor/settings", nil, doc)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		// 204 or empty 200: the server accepted the payload as sent
		body, err = json.Marshal(doc)
		if err != nil {
			return nil, err
		}
	}
	raw, err := decodeDocument(f.catalog, body)
	if err != nil {
		return nil, err
	}
	if raw.Recipients == nil {
		// recipients are optional in the reply; keep the list just sent
		raw.Recipients = append([]string{}, doc.Recipients...)
	}
	return f.catalog.Merge(deviceID, raw), nil
}
