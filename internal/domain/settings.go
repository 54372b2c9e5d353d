package domain

import (
	"math"
	"sort"
)

// Threshold accepted [Min, Max] range of one metric.
type Threshold struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Enabled bool    `json:"enabled"`
}

// Finite reports whether both bounds are finite numbers.
func (t Threshold) Finite() bool {
	return !math.IsNaN(t.Min) && !math.IsInf(t.Min, 0) && !math.IsNaN(t.Max) && !math.IsInf(t.Max, 0)
}

// Configuration thresholds for every catalog metric plus notification recipients.
// An empty DeviceID is the global configuration.
type Configuration struct {
	DeviceID   string               `json:"device_id,omitempty"`
	Thresholds map[string]Threshold `json:"metrics"`
	Recipients []string             `json:"recipients"`
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{
		DeviceID:   c.DeviceID,
		Thresholds: make(map[string]Threshold, len(c.Thresholds)),
		Recipients: append([]string{}, c.Recipients...),
	}
	for k, v := range c.Thresholds {
		out.Thresholds[k] = v
	}
	return out
}

// EnabledKeys returns keys of enabled metrics, sorted.
func (c *Configuration) EnabledKeys() []string {
	keys := make([]string, 0, len(c.Thresholds))
	for k, t := range c.Thresholds {
		if t.Enabled {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// RawThreshold wire form of a threshold; nil fields were absent.
type RawThreshold struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}

// RawConfiguration what a backend or store returned before merging with defaults.
type RawConfiguration struct {
	Recipients []string                `json:"recipients,omitempty"`
	Metrics    map[string]RawThreshold `json:"metrics"`
}
