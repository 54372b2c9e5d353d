package report

import "aquawatch/internal/domain"

// Preset quick metric selections.
type Preset string

const (
	PresetAll     Preset = "all"
	PresetNone    Preset = "none"
	PresetEnabled Preset = "enabled"
)

// ApplyPreset returns the new selection. PresetEnabled keeps current when no enabled
// metrics are known, and drops keys the catalog does not know.
func ApplyPreset(c *domain.Catalog, p Preset, current, enabled []string) []string {
	switch p {
	case PresetAll:
		return c.Keys()
	case PresetNone:
		return []string{}
	case PresetEnabled:
		var out []string
		seen := map[string]struct{}{}
		for _, k := range enabled {
			if _, dup := seen[k]; dup || !c.Has(k) {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		if len(out) == 0 {
			return append([]string{}, current...)
		}
		return out
	default:
		return append([]string{}, current...)
	}
}

// ToggleMetric adds key when absent, removes it when present.
func ToggleMetric(selected []string, key string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, k := range selected {
		if k == key {
			found = true
			continue
		}
		out = append(out, k)
	}
	if !found {
		out = append(out, key)
	}
	return out
}
