package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"aquawatch/internal/domain"
)

// Source names reported in snapshots.
const (
	SourceAPI  = "api"
	SourceMock = "mock"
)

// Observer optional hook for fetch and status metrics.
type Observer interface {
	ObserveReadings(source string)
	SetMetricStatus(metric, status string, all []string)
}

// Snapshot today's view.
type Snapshot struct {
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
	From      time.Time `json:"from"`
	Rows      int       `json:"rows"`
	Cards     []Card    `json:"cards"`
}

// Today fetches readings from local midnight to now, falling back to mock data when
// the primary source fails or returns a malformed body.
type Today struct {
	catalog  *domain.Catalog
	primary  Source
	fallback Source
	loc      *time.Location
	logger   *zap.Logger
	observer Observer
	now      func() time.Time

	mu     sync.RWMutex
	latest *Snapshot
}

// NewToday primary may be nil (no backend configured).
func NewToday(catalog *domain.Catalog, primary Source, loc *time.Location, observer Observer, logger *zap.Logger) *Today {
	if loc == nil {
		loc = time.Local
	}
	return &Today{
		catalog:  catalog,
		primary:  primary,
		fallback: NewMockSource(catalog),
		loc:      loc,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Refresh fetches once and stores the result as the latest snapshot.
func (t *Today) Refresh(ctx context.Context) *Snapshot {
	now := t.now().In(t.loc)
	from := startOfDay(now)

	source := SourceMock
	var rows []Reading
	if t.primary != nil {
		var err error
		rows, err = t.primary.Readings(ctx, from, now)
		if err != nil {
			t.logger.Warn("Fetch readings failed, fallback to mock", zap.Error(err))
			rows = nil
		} else {
			source = SourceAPI
		}
	}
	if source == SourceMock {
		rows, _ = t.fallback.Readings(ctx, from, now)
	}

	snap := &Snapshot{
		Source:    source,
		UpdatedAt: now,
		From:      from,
		Rows:      len(rows),
		Cards:     Cards(t.catalog, rows),
	}
	if t.observer != nil {
		t.observer.ObserveReadings(source)
		for _, c := range snap.Cards {
			t.observer.SetMetricStatus(c.Key, string(c.Status), AllStatuses)
		}
	}

	// last write wins: overlapping refreshes are not reconciled
	t.mu.Lock()
	t.latest = snap
	t.mu.Unlock()
	return snap
}

// Latest returns the last snapshot, nil before the first refresh.
func (t *Today) Latest() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Poll refreshes immediately and then every interval until ctx is done. Each tick
// starts its own fetch, so a slow fetch does not delay the next one.
func (t *Today) Poll(ctx context.Context, interval time.Duration) {
	t.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go t.Refresh(ctx)
		}
	}
}
