package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"aquawatch/internal/backend"
	"aquawatch/internal/domain"
)

// Reading one timestamped row of sensor values keyed by metric key.
type Reading struct {
	TS     string             `json:"ts"`
	Values map[string]float64 `json:"values"`
}

// Source yields readings between from and to.
type Source interface {
	Readings(ctx context.Context, from, to time.Time) ([]Reading, error)
}

// HTTPSource GET /sensor/water?from=&to= returning [{ts, temp, turbidity, ...}].
type HTTPSource struct {
	client  *backend.Client
	catalog *domain.Catalog
}

func NewHTTPSource(client *backend.Client, catalog *domain.Catalog) *HTTPSource {
	return &HTTPSource{client: client, catalog: catalog}
}

func (s *HTTPSource) Readings(ctx context.Context, from, to time.Time) ([]Reading, error) {
	body, err := s.client.Get(ctx, "/sensor/water", map[string]string{
		"from": from.UTC().Format(time.RFC3339),
		"to":   to.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return decodeReadings(s.catalog, body)
}

// decodeReadings requires a JSON array of objects. Values may be numbers or numeric
// strings; anything else is skipped for that metric.
func decodeReadings(c *domain.Catalog, body []byte) ([]Reading, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: readings: expected a JSON array", backend.ErrMalformed)
	}
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("%w: readings: %v", backend.ErrMalformed, err)
	}

	out := make([]Reading, 0, len(rows))
	for _, row := range rows {
		r := Reading{Values: map[string]float64{}}
		if ts, ok := row["ts"]; ok {
			_ = json.Unmarshal(ts, &r.TS)
		}
		for _, key := range c.Keys() {
			raw, ok := row[key]
			if !ok {
				continue
			}
			if v, ok := number(raw); ok {
				r.Values[key] = v
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func number(raw json.RawMessage) (float64, bool) {
	if string(bytes.TrimSpace(raw)) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, finite(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, finite(f)
		}
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// wave center, amplitude, period divisor and noise span of a generated series.
type wave struct {
	center, amp, period, noise float64
}

var mockWaves = map[string]wave{
	"temp":      {center: 26, amp: 1.2, period: 5, noise: 0.4},
	"turbidity": {center: 25, amp: 10, period: 7, noise: 4},
	"salinity":  {center: 0.35, amp: 0.1, period: 11, noise: 0.03},
	"level":     {center: 20, amp: 1.2, period: 9, noise: 0.6},
}

// MockSource generates a plausible day of readings: 60 points 20 minutes apart
// starting at from, sinusoidal around typical values with small noise.
type MockSource struct {
	catalog *domain.Catalog
	rnd     func() float64
}

func NewMockSource(catalog *domain.Catalog) *MockSource {
	return &MockSource{catalog: catalog, rnd: rand.Float64}
}

const (
	mockPoints = 60
	mockStep   = 20 * time.Minute
)

func (s *MockSource) Readings(_ context.Context, from, _ time.Time) ([]Reading, error) {
	rows := make([]Reading, 0, mockPoints)
	for i := 0; i < mockPoints; i++ {
		r := Reading{
			TS:     from.Add(time.Duration(i) * mockStep).Format(time.RFC3339),
			Values: map[string]float64{},
		}
		for _, m := range s.catalog.Metrics() {
			w, ok := mockWaves[m.Key]
			if !ok {
				// metrics without a tuned wave oscillate inside their recommended range
				span := m.GoodMax - m.GoodMin
				w = wave{center: m.GoodMin + span/2, amp: span / 5, period: 6, noise: span / 20}
			}
			r.Values[m.Key] = w.center + math.Sin(float64(i)/w.period)*w.amp + (s.rnd()-0.5)*w.noise
		}
		rows = append(rows, r)
	}
	return rows, nil
}
