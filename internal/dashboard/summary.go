package dashboard

import "aquawatch/internal/domain"

// Status of the current value against the recommended range.
type Status string

const (
	StatusNoData Status = "nodata"
	StatusLow    Status = "low"
	StatusHigh   Status = "high"
	StatusOK     Status = "ok"
)

// AllStatuses in display order.
var AllStatuses = []string{string(StatusOK), string(StatusLow), string(StatusHigh), string(StatusNoData)}

// Summary of one metric over the fetched rows. Nil pointers mean no finite data.
type Summary struct {
	Current *float64  `json:"current"`
	Min     *float64  `json:"min"`
	Max     *float64  `json:"max"`
	Avg     *float64  `json:"avg"`
	Series  []float64 `json:"series"`
}

// Summarize collects the finite values of key in row order.
func Summarize(rows []Reading, key string) Summary {
	series := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Values[key]; ok && finite(v) {
			series = append(series, v)
		}
	}
	if len(series) == 0 {
		return Summary{Series: []float64{}}
	}
	current := series[len(series)-1]
	lo, hi, sum := series[0], series[0], 0.0
	for _, v := range series {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	avg := sum / float64(len(series))
	return Summary{Current: &current, Min: &lo, Max: &hi, Avg: &avg, Series: series}
}

// StatusOf classifies value against [min, max].
func StatusOf(value *float64, min, max float64) Status {
	switch {
	case value == nil || !finite(*value):
		return StatusNoData
	case *value < min:
		return StatusLow
	case *value > max:
		return StatusHigh
	default:
		return StatusOK
	}
}

// Card one metric tile of the today view.
type Card struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit"`
	GoodMin float64 `json:"good_min"`
	GoodMax float64 `json:"good_max"`
	Status  Status  `json:"status"`
	Summary
}

// Cards builds one card per catalog metric.
func Cards(c *domain.Catalog, rows []Reading) []Card {
	cards := make([]Card, 0, len(c.Keys()))
	for _, m := range c.Metrics() {
		s := Summarize(rows, m.Key)
		cards = append(cards, Card{
			Key:     m.Key,
			Label:   m.Label,
			Unit:    m.Unit,
			GoodMin: m.GoodMin,
			GoodMax: m.GoodMax,
			Status:  StatusOf(s.Current, m.GoodMin, m.GoodMax),
			Summary: s,
		})
	}
	return cards
}
