package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aquawatch/internal/backend"
	"aquawatch/internal/config"
	"aquawatch/internal/domain"
)

// ErrBusy the same action is already in flight.
var ErrBusy = errors.New("action already in progress")

// ErrUnknownMetric metric key not in the catalog.
var ErrUnknownMetric = errors.New("unknown metric")

// Action one of the four operator-triggered actions with their own busy flag.
type Action string

const (
	ActionLoad  Action = "load"
	ActionSave  Action = "save"
	ActionTest  Action = "test"
	ActionReset Action = "reset"
	// ActionToggle immediate persist after a toggle; never busy-guarded.
	ActionToggle Action = "toggle"
)

// Notice levels.
const (
	NoticeOK      = "ok"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Operator-facing messages.
const (
	msgLoadFallback  = "failed to load settings, using recommended values for now"
	msgSaved         = "settings saved"
	msgSaveFailed    = "failed to save settings"
	msgTestSent      = "test notification sent"
	msgTestFailed    = "failed to send test notification"
	msgNoRecipients  = "enter at least one recipient e-mail"
	msgResetDone     = "recommended values restored"
	msgResetLocal    = "recommended values restored locally, save to apply them"
	msgResetFailed   = "failed to restore recommended values"
	msgToggleFailure = "immediate toggle persist failed"
)

// Notice last outcome shown to the operator.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ChangePublisher receives every configuration confirmed by a save or reset.
type ChangePublisher interface {
	PublishSettings(ctx context.Context, cfg *domain.Configuration) error
}

// ActionObserver records outcome and duration of session actions.
type ActionObserver interface {
	ObserveAction(action, outcome string, elapsed time.Duration)
}

// MetricPatch partial edit of one threshold; nil fields are left alone.
type MetricPatch struct {
	Min     *float64
	Max     *float64
	Enabled *bool
}

// SessionOptions optional collaborators of a session.
type SessionOptions struct {
	DeviceID  string
	Policy    config.PolicyConfig
	Publisher ChangePublisher
	Observer  ActionObserver
	// Rand returns values in [0,1); defaults to math/rand.
	Rand func() float64
}

// SettingsSession owns the in-memory configuration of one operator session.
// Safe for concurrent use: the lock is never held across backend calls, each action
// has its own busy flag and the last response to settle wins.
type SettingsSession struct {
	id       string
	contract backend.Contract
	catalog  *domain.Catalog
	logger   *zap.Logger
	opts     SessionOptions
	local    bool

	mu              sync.Mutex
	current         *domain.Configuration
	baseline        *domain.Configuration
	recipientsInput string
	busy            map[Action]bool
	dirty           bool
	loaded          bool
	notice          *Notice
}

// NewSettingsSession creates a session holding the recommended defaults until Load.
func NewSettingsSession(contract backend.Contract, catalog *domain.Catalog, opts SessionOptions, logger *zap.Logger) *SettingsSession {
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Policy.ResetMode == "" {
		opts.Policy.ResetMode = config.ResetBackend
	}
	defaults := catalog.Defaults(opts.DeviceID)
	id := uuid.NewString()
	return &SettingsSession{
		id:       id,
		contract: contract,
		catalog:  catalog,
		logger:   logger.With(zap.String("session_id", id), zap.String("contract", contract.Name())),
		opts:     opts,
		local:    contract.Name() == config.ContractLocal,
		current:  defaults,
		baseline: defaults.Clone(),
		busy:     map[Action]bool{},
	}
}

func (s *SettingsSession) begin(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[a] {
		return ErrBusy
	}
	s.busy[a] = true
	s.notice = nil
	return nil
}

func (s *SettingsSession) end(a Action) {
	s.mu.Lock()
	s.busy[a] = false
	s.mu.Unlock()
}

func (s *SettingsSession) observe(a Action, start time.Time, err error) {
	if s.opts.Observer == nil {
		return
	}
	outcome := "ok"
	var ve *domain.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		outcome = "busy"
	case errors.As(err, &ve):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	s.opts.Observer.ObserveAction(string(a), outcome, time.Since(start))
}

// setNoticeLocked requires s.mu.
func (s *SettingsSession) setNoticeLocked(level, message string) {
	s.notice = &Notice{Level: level, Message: message}
}

// Load fetches the configuration. A failed or malformed load is not an error for the
// caller: the session falls back to recommended defaults and carries a warning notice.
func (s *SettingsSession) Load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe(ActionLoad, start, err) }()
	if err := s.begin(ActionLoad); err != nil {
		return err
	}
	defer s.end(ActionLoad)

	cfg, loadErr := s.contract.Load(ctx, s.opts.DeviceID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if loadErr != nil {
		s.logger.Warn("Load settings failed, falling back to recommended values", zap.Error(loadErr))
		cfg = s.catalog.Defaults(s.opts.DeviceID)
		s.setNoticeLocked(NoticeWarning, msgLoadFallback)
	}
	s.adoptLocked(cfg)
	s.dirty = false
	s.loaded = true
	if s.opts.Policy.PrefillRecipients {
		s.recipientsInput = strings.Join(cfg.Recipients, ", ")
	} else {
		s.recipientsInput = ""
	}
	return nil
}

// adoptLocked makes cfg both the in-memory and the confirmed configuration.
func (s *SettingsSession) adoptLocked(cfg *domain.Configuration) {
	s.current = cfg.Clone()
	s.baseline = cfg.Clone()
}

// SetRecipientsInput replaces the free-form recipient text.
func (s *SettingsSession) SetRecipientsInput(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipientsInput = input
}

// UpdateMetric edits one threshold in memory only.
func (s *SettingsSession) UpdateMetric(key string, patch MetricPatch) error {
	if !s.catalog.Has(key) {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.current.Thresholds[key]
	if patch.Min != nil {
		t.Min = *patch.Min
	}
	if patch.Max != nil {
		t.Max = *patch.Max
	}
	if patch.Enabled != nil {
		t.Enabled = *patch.Enabled
	}
	s.current.Thresholds[key] = t
	s.dirty = true
	return nil
}

// ToggleEnabled flips a metric's enabled flag in memory. With the immediate-toggle
// policy and a backend present, a persist command follows: it writes the last
// confirmed configuration with only this flag changed. Its result arrives on the
// returned channel (already closed when nothing is dispatched) and failures are only
// logged, the operator-facing notice is left alone.
func (s *SettingsSession) ToggleEnabled(ctx context.Context, key string, enabled bool) (<-chan error, error) {
	if !s.catalog.Has(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, key)
	}

	s.mu.Lock()
	t := s.current.Thresholds[key]
	t.Enabled = enabled
	s.current.Thresholds[key] = t

	done := make(chan error, 1)
	if !s.opts.Policy.ImmediateToggle || s.local {
		s.dirty = true
		s.mu.Unlock()
		close(done)
		return done, nil
	}
	payload := s.baseline.Clone()
	bt := payload.Thresholds[key]
	bt.Enabled = enabled
	payload.Thresholds[key] = bt
	s.mu.Unlock()

	go s.persistToggle(ctx, key, payload, done)
	return done, nil
}

func (s *SettingsSession) persistToggle(ctx context.Context, key string, payload *domain.Configuration, done chan<- error) {
	defer close(done)
	start := time.Now()

	cfg, err := s.contract.Save(ctx, backend.SaveRequest{DeviceID: s.opts.DeviceID, Config: payload})
	s.observe(ActionToggle, start, err)
	if err != nil {
		s.logger.Warn(msgToggleFailure, zap.String("metric", key), zap.Error(err))
		done <- err
		return
	}

	s.mu.Lock()
	s.baseline = cfg.Clone()
	s.mu.Unlock()
	done <- nil
}

// Save validates and persists the whole configuration.
func (s *SettingsSession) Save(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe(ActionSave, start, err) }()
	if err := s.begin(ActionSave); err != nil {
		return err
	}
	defer s.end(ActionSave)

	s.mu.Lock()
	recipients := domain.ParseRecipients(s.recipientsInput)
	s.mu.Unlock()

	if err := s.persist(ctx, recipients); err != nil {
		return err
	}
	s.mu.Lock()
	s.setNoticeLocked(NoticeOK, msgSaved)
	s.mu.Unlock()
	return nil
}

// persist the shared save flow of Save and SendTest. Sets an error notice on failure.
func (s *SettingsSession) persist(ctx context.Context, recipients []string) error {
	s.mu.Lock()
	cfg := s.current.Clone()
	cfg.Recipients = append([]string{}, s.baseline.Recipients...)
	if err := domain.Validate(s.catalog, recipients, cfg.Thresholds); err != nil {
		s.setNoticeLocked(NoticeError, err.Error())
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	saved, err := s.contract.Save(ctx, backend.SaveRequest{
		DeviceID:      s.opts.DeviceID,
		Config:        cfg,
		NewRecipients: recipients,
	})

	s.mu.Lock()
	if err != nil {
		s.setNoticeLocked(NoticeError, msgSaveFailed)
		s.mu.Unlock()
		s.logger.Error("Save settings failed", zap.Error(err))
		return err
	}
	s.adoptLocked(saved)
	s.dirty = false
	switch {
	case s.opts.Policy.ClearRecipientsOnSave:
		s.recipientsInput = ""
	case s.opts.Policy.PrefillRecipients:
		s.recipientsInput = strings.Join(saved.Recipients, ", ")
	}
	s.mu.Unlock()

	s.logger.Info("Settings saved",
		zap.Strings("enabled", saved.EnabledKeys()),
		zap.Int("new_recipients", len(recipients)),
	)
	s.publish(ctx, saved)
	return nil
}

func (s *SettingsSession) publish(ctx context.Context, cfg *domain.Configuration) {
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.PublishSettings(ctx, cfg); err != nil {
		s.logger.Warn("Publish settings change failed", zap.Error(err))
	}
}

// SendTest saves first, then asks the backend for a test notification carrying
// out-of-range sample values for every enabled metric.
func (s *SettingsSession) SendTest(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe(ActionTest, start, err) }()
	if err := s.begin(ActionTest); err != nil {
		return err
	}
	defer s.end(ActionTest)

	s.mu.Lock()
	recipients := domain.ParseRecipients(s.recipientsInput)
	var verr error
	if len(recipients) == 0 {
		verr = &domain.ValidationError{Field: "recipients", Message: msgNoRecipients}
	} else {
		verr = domain.ValidateRecipients(recipients)
	}
	if verr != nil {
		s.setNoticeLocked(NoticeError, verr.Error())
		s.mu.Unlock()
		return verr
	}
	s.mu.Unlock()

	if err := s.persist(ctx, recipients); err != nil {
		return err
	}

	s.mu.Lock()
	sample := SynthesizeSample(s.catalog, s.current, s.opts.Rand)
	s.mu.Unlock()

	sendErr := s.contract.SendTest(ctx, backend.TestRequest{
		DeviceID:   s.opts.DeviceID,
		Recipients: recipients,
		Sample:     sample,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipientsInput = ""
	if sendErr != nil {
		s.logger.Error("Send test notification failed", zap.Error(sendErr))
		s.setNoticeLocked(NoticeError, msgTestFailed)
		return sendErr
	}
	s.setNoticeLocked(NoticeOK, msgTestSent)
	return nil
}

// Reset restores recommended thresholds. ResetMode backend asks the backend and adopts
// its answer; ResetMode local only changes memory and leaves the session dirty.
func (s *SettingsSession) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe(ActionReset, start, err) }()
	if err := s.begin(ActionReset); err != nil {
		return err
	}
	defer s.end(ActionReset)

	if s.opts.Policy.ResetMode == config.ResetLocal {
		s.mu.Lock()
		defaults := s.catalog.Defaults(s.opts.DeviceID)
		s.current.Thresholds = defaults.Thresholds
		s.dirty = true
		s.setNoticeLocked(NoticeWarning, msgResetLocal)
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	current := s.baseline.Clone()
	s.mu.Unlock()

	cfg, resetErr := s.contract.Reset(ctx, backend.ResetRequest{DeviceID: s.opts.DeviceID, Current: current})

	s.mu.Lock()
	if resetErr != nil {
		s.setNoticeLocked(NoticeError, msgResetFailed)
		s.mu.Unlock()
		s.logger.Error("Reset settings failed", zap.Error(resetErr))
		return resetErr
	}
	s.adoptLocked(cfg)
	s.dirty = false
	s.setNoticeLocked(NoticeOK, msgResetDone)
	s.mu.Unlock()

	s.publish(ctx, cfg)
	return nil
}

// Configuration returns a copy of the in-memory configuration.
func (s *SettingsSession) Configuration() *domain.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Baseline returns a copy of the last confirmed configuration.
func (s *SettingsSession) Baseline() *domain.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline.Clone()
}

// Notice returns the current notice, nil if none.
func (s *SettingsSession) Notice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return nil
	}
	n := *s.notice
	return &n
}

// Busy reports whether action a is in flight.
func (s *SettingsSession) Busy(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[a]
}
