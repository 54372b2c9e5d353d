package service

import "math"

// MetricView one threshold row ready for rendering. Bounds are nil when the
// operator entered something that is not a finite number.
type MetricView struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Unit    string   `json:"unit"`
	Hint    string   `json:"hint,omitempty"`
	GoodMin float64  `json:"good_min"`
	GoodMax float64  `json:"good_max"`
	Enabled bool     `json:"enabled"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
}

// BusyView per-action in-flight flags.
type BusyView struct {
	Load  bool `json:"load"`
	Save  bool `json:"save"`
	Test  bool `json:"test"`
	Reset bool `json:"reset"`
}

// View render-ready snapshot of a session.
type View struct {
	SessionID       string       `json:"session_id"`
	Contract        string       `json:"contract"`
	DeviceID        string       `json:"device_id,omitempty"`
	Loaded          bool         `json:"loaded"`
	Dirty           bool         `json:"dirty"`
	AnyEnabled      bool         `json:"any_enabled"`
	RecipientsInput string       `json:"recipients_input"`
	Metrics         []MetricView `json:"metrics"`
	Busy            BusyView     `json:"busy"`
	Notice          *Notice      `json:"notice,omitempty"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Snapshot returns the current view, metrics in catalog order.
func (s *SettingsSession) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:       s.id,
		Contract:        s.contract.Name(),
		DeviceID:        s.opts.DeviceID,
		Loaded:          s.loaded,
		Dirty:           s.dirty,
		RecipientsInput: s.recipientsInput,
		Busy: BusyView{
			Load:  s.busy[ActionLoad],
			Save:  s.busy[ActionSave],
			Test:  s.busy[ActionTest],
			Reset: s.busy[ActionReset],
		},
	}
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}
	for _, m := range s.catalog.Metrics() {
		t := s.current.Thresholds[m.Key]
		v.Metrics = append(v.Metrics, MetricView{
			Key:     m.Key,
			Label:   m.Label,
			Unit:    m.Unit,
			Hint:    m.Hint,
			GoodMin: m.GoodMin,
			GoodMax: m.GoodMax,
			Enabled: t.Enabled,
			Min:     finitePtr(t.Min),
			Max:     finitePtr(t.Max),
		})
		if t.Enabled {
			v.AnyEnabled = true
		}
	}
	return v
}

// EnabledMetricKeys keys enabled in the persisted settings, catalog order.
// Unsaved edits are not included.
func (s *SettingsSession) EnabledMetricKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, key := range s.catalog.Keys() {
		if s.baseline.Thresholds[key].Enabled {
			keys = append(keys, key)
		}
	}
	return keys
}
