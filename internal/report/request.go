package report

import (
	"fmt"
	"strings"
	"time"

	"aquawatch/internal/domain"
)

// Mode range selection granularity.
type Mode string

const (
	ModeDate  Mode = "date"
	ModeMonth Mode = "month"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Request what the operator asked for. From/To are YYYY-MM-DD in date mode and
// YYYY-MM in month mode.
type Request struct {
	Mode    Mode
	From    string
	To      string
	Metrics []string
}

// Range resolved inclusive day range.
type Range struct {
	From string
	To   string
}

// MonthToRange first and last day of a YYYY-MM month.
func MonthToRange(yyyyMM string) (Range, error) {
	start, err := time.Parse(monthLayout, yyyyMM)
	if err != nil {
		return Range{}, fmt.Errorf("invalid month %q: %w", yyyyMM, err)
	}
	end := start.AddDate(0, 1, -1)
	return Range{From: start.Format(dateLayout), To: end.Format(dateLayout)}, nil
}

// Resolve validates r against the catalog and returns the day range plus the
// deduplicated metric selection. Checks run in order: metrics, both bounds, from <= to.
func (r Request) Resolve(c *domain.Catalog) (Range, []string, error) {
	metrics, err := selection(c, r.Metrics)
	if err != nil {
		return Range{}, nil, err
	}

	switch r.Mode {
	case ModeDate, "":
		if r.From == "" || r.To == "" {
			return Range{}, nil, &domain.ValidationError{Field: "range", Message: "select both the start and the end date"}
		}
		from, err1 := time.Parse(dateLayout, r.From)
		to, err2 := time.Parse(dateLayout, r.To)
		if err1 != nil || err2 != nil {
			return Range{}, nil, &domain.ValidationError{Field: "range", Message: "dates must be YYYY-MM-DD"}
		}
		if from.After(to) {
			return Range{}, nil, &domain.ValidationError{Field: "range", Message: "start date must not be after end date"}
		}
		return Range{From: r.From, To: r.To}, metrics, nil

	case ModeMonth:
		if r.From == "" || r.To == "" {
			return Range{}, nil, &domain.ValidationError{Field: "range", Message: "select both the start and the end month"}
		}
		first, err1 := MonthToRange(r.From)
		last, err2 := MonthToRange(r.To)
		if err1 != nil || err2 != nil {
			return Range{}, nil, &domain.ValidationError{Field: "range", Message: "months must be YYYY-MM"}
		}
		if r.From > r.To {
			return Range{}, nil, &domain.ValidationError{Field: "range", Message: "start month must not be after end month"}
		}
		return Range{From: first.From, To: last.To}, metrics, nil

	default:
		return Range{}, nil, &domain.ValidationError{Field: "mode", Message: fmt.Sprintf("unknown report mode: %s", r.Mode)}
	}
}

func selection(c *domain.Catalog, keys []string) ([]string, error) {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !c.Has(k) {
			return nil, &domain.ValidationError{Field: "metrics", Message: fmt.Sprintf("unknown metric: %s", k)}
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, &domain.ValidationError{Field: "metrics", Message: "select at least one metric"}
	}
	return out, nil
}

// FileName sensor-report_[by-month_]<from>_<to>_<today>.xlsx
func FileName(mode Mode, r Range, today time.Time) string {
	prefix := "sensor-report_"
	if mode == ModeMonth {
		prefix += "by-month_"
	}
	return fmt.Sprintf("%s%s_%s_%s.xlsx", prefix, r.From, r.To, today.Format(dateLayout))
}
