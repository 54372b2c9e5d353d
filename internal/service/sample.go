package service

import (
	"math"

	"aquawatch/internal/domain"
)

// SynthesizeSample builds one out-of-range value per enabled metric for a test
// notification. A fair coin picks below min or above max:
//
//	low  = min - 0.1*|min or 1| - 0.1
//	high = max + 0.1*|max or 1| + 0.1
//
// where "x or 1" is 1 when x is zero or NaN.
func SynthesizeSample(c *domain.Catalog, cfg *domain.Configuration, rnd func() float64) map[string]float64 {
	sample := make(map[string]float64)
	for _, key := range c.Keys() {
		t, ok := cfg.Thresholds[key]
		if !ok || !t.Enabled {
			continue
		}
		if rnd() < 0.5 {
			sample[key] = t.Min - 0.1*math.Abs(orOne(t.Min)) - 0.1
		} else {
			sample[key] = t.Max + 0.1*math.Abs(orOne(t.Max)) + 0.1
		}
	}
	return sample
}

func orOne(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}
