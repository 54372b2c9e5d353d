package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Metric one monitored water-quality measurement.
type Metric struct {
	Key          string  `yaml:"key" json:"key"`                     // fixed identifier, e.g. "temp"
	Label        string  `yaml:"label" json:"label"`                 // operator-facing name, used in validation messages
	Unit         string  `yaml:"unit" json:"unit"`                   // °C, NTU, ppt, cm ...
	GoodMin      float64 `yaml:"good_min" json:"good_min"`           // recommended lower bound
	GoodMax      float64 `yaml:"good_max" json:"good_max"`           // recommended upper bound
	Hint         string  `yaml:"hint" json:"hint,omitempty"`         // short guidance shown next to the inputs
	BackendField string  `yaml:"backend_field" json:"backend_field"` // field name used by the split contract
}

// Catalog ordered, fixed set of metrics. Order is the validation order.
type Catalog struct {
	metrics []Metric
	index   map[string]int
}

// DefaultMetrics the four metrics of a freshwater pond setup.
func DefaultMetrics() []Metric {
	return []Metric{
		{Key: "temp", Label: "อุณหภูมิ", Unit: "°C", GoodMin: 24, GoodMax: 30, Hint: "ช่วงเหมาะสม 24–30°C", BackendField: "temperature"},
		{Key: "turbidity", Label: "ความขุ่น", Unit: "NTU", GoodMin: 0, GoodMax: 50, Hint: "ควรไม่ขุ่นมากกว่า ~50 NTU", BackendField: "turbidity"},
		{Key: "salinity", Label: "ความเค็ม", Unit: "ppt", GoodMin: 0, GoodMax: 1, Hint: "น้ำจืดควรต่ำมาก < 1 ppt", BackendField: "salinity"},
		{Key: "level", Label: "ระดับน้ำ", Unit: "cm", GoodMin: 10, GoodMax: 25, Hint: "ปรับตามความสูงบ่อเลี้ยงจริง", BackendField: "water_level"},
	}
}

// DefaultCatalog catalog built from DefaultMetrics.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(DefaultMetrics())
	return c
}

// NewCatalog validates and indexes metrics.
func NewCatalog(metrics []Metric) (*Catalog, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("catalog: no metrics")
	}
	c := &Catalog{metrics: make([]Metric, 0, len(metrics)), index: make(map[string]int, len(metrics))}
	for _, m := range metrics {
		if m.Key == "" {
			return nil, fmt.Errorf("catalog: metric without key")
		}
		if _, dup := c.index[m.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate metric key %q", m.Key)
		}
		if !(m.GoodMin < m.GoodMax) {
			return nil, fmt.Errorf("catalog: metric %q: good_min must be less than good_max", m.Key)
		}
		if m.Label == "" {
			m.Label = m.Key
		}
		if m.BackendField == "" {
			m.BackendField = m.Key
		}
		c.index[m.Key] = len(c.metrics)
		c.metrics = append(c.metrics, m)
	}
	return c, nil
}

type catalogFile struct {
	Metrics []Metric `yaml:"metrics"`
}

// LoadCatalogFile reads a YAML catalog:
//
//	metrics:
//	  - key: ph
//	    label: pH
//	    good_min: 6.5
//	    good_max: 8.5
//	    backend_field: ph
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	return NewCatalog(f.Metrics)
}

// Metrics returns the metrics in catalog order.
func (c *Catalog) Metrics() []Metric {
	out := make([]Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Keys returns metric keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.metrics))
	for i, m := range c.metrics {
		keys[i] = m.Key
	}
	return keys
}

// Get looks up a metric by key.
func (c *Catalog) Get(key string) (Metric, bool) {
	i, ok := c.index[key]
	if !ok {
		return Metric{}, false
	}
	return c.metrics[i], true
}

// Has reports whether key is part of the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Recommended threshold for a metric: recommended range, enabled.
func (m Metric) Recommended() Threshold {
	return Threshold{Min: m.GoodMin, Max: m.GoodMax, Enabled: true}
}

// Defaults returns the recommended configuration with no recipients.
func (c *Catalog) Defaults(deviceID string) *Configuration {
	cfg := &Configuration{
		DeviceID:   deviceID,
		Thresholds: make(map[string]Threshold, len(c.metrics)),
		Recipients: []string{},
	}
	for _, m := range c.metrics {
		cfg.Thresholds[m.Key] = m.Recommended()
	}
	return cfg
}

// Merge fills raw over the recommended defaults. Keys absent from raw take the default
// threshold; a present key with missing fields takes the default value of those fields.
// Keys unknown to the catalog are dropped.
func (c *Catalog) Merge(deviceID string, raw *RawConfiguration) *Configuration {
	cfg := c.Defaults(deviceID)
	if raw == nil {
		return cfg
	}
	if raw.Recipients != nil {
		cfg.Recipients = append([]string{}, raw.Recipients...)
	}
	for key, rt := range raw.Metrics {
		def, ok := cfg.Thresholds[key]
		if !ok {
			continue
		}
		if rt.Min != nil {
			def.Min = *rt.Min
		}
		if rt.Max != nil {
			def.Max = *rt.Max
		}
		if rt.Enabled != nil {
			def.Enabled = *rt.Enabled
		}
		cfg.Thresholds[key] = def
	}
	return cfg
}

// ByBackendField finds the metric whose split-contract field name is field.
func (c *Catalog) ByBackendField(field string) (Metric, bool) {
	for _, m := range c.metrics {
		if m.BackendField == field {
			return m, true
		}
	}
	return Metric{}, false
}
