package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"aquawatch/internal/domain"
)

// decodeObject requires body to be a JSON object.
func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return obj, nil
}

// decodeThreshold one {min,max,enabled} entry. Absent fields stay nil; present fields
// of the wrong type make the whole entry malformed.
func decodeThreshold(name string, raw json.RawMessage) (domain.RawThreshold, error) {
	var rt domain.RawThreshold
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return rt, fmt.Errorf("%w: entry %q is not an object", ErrMalformed, name)
	}
	if err := json.Unmarshal(trimmed, &rt); err != nil {
		return rt, fmt.Errorf("%w: entry %q: %v", ErrMalformed, name, err)
	}
	return rt, nil
}

// decodeRecipients accepts an array of strings; anything else counts as absent.
func decodeRecipients(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// wireThreshold outgoing threshold, all fields always present.
type wireThreshold struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Enabled bool    `json:"enabled"`
}

func toWire(t domain.Threshold) wireThreshold {
	return wireThreshold{Min: t.Min, Max: t.Max, Enabled: t.Enabled}
}

// decodeDocument {recipients, metrics: {key: {min,max,enabled}}} keyed by catalog key.
// A missing or null metrics member counts as empty; unknown keys are dropped.
func decodeDocument(c *domain.Catalog, body []byte) (*domain.RawConfiguration, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	raw := &domain.RawConfiguration{
		Recipients: decodeRecipients(obj["recipients"]),
		Metrics:    map[string]domain.RawThreshold{},
	}
	metrics, ok := obj["metrics"]
	if !ok || string(bytes.TrimSpace(metrics)) == "null" {
		return raw, nil
	}
	entries, err := decodeObject(metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	for key, entry := range entries {
		if !c.Has(key) {
			continue
		}
		rt, err := decodeThreshold(key, entry)
		if err != nil {
			return nil, err
		}
		raw.Metrics[key] = rt
	}
	return raw, nil
}
