package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquawatch/internal/domain"
)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.msgs = append(f.msgs, published{topic, qos, retained, payload})
	return f.err
}

func TestSettingsPublisher_Publish(t *testing.T) {
	fp := &fakePublisher{}
	p := NewSettingsPublisher(fp, "aquawatch/{device_id}/settings", 1)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }

	cfg := domain.DefaultCatalog().Defaults("pond-1")
	cfg.Recipients = []string{"secret@b.com"}
	cfg.Thresholds["level"] = domain.Threshold{Min: 10, Max: 25, Enabled: false}

	require.NoError(t, p.PublishSettings(context.Background(), cfg))
	require.Len(t, fp.msgs, 1)
	m := fp.msgs[0]
	assert.Equal(t, "aquawatch/pond-1/settings", m.topic)
	assert.Equal(t, byte(1), m.qos)
	assert.True(t, m.retained)
	assert.NotContains(t, string(m.payload), "secret@b.com")

	var msg SettingsMessage
	require.NoError(t, json.Unmarshal(m.payload, &msg))
	assert.Equal(t, "pond-1", msg.DeviceID)
	assert.Equal(t, []string{"salinity", "temp", "turbidity"}, msg.Enabled)
	assert.Equal(t, cfg.Thresholds, msg.Metrics)
}

func TestSettingsPublisher_GlobalTopicAndError(t *testing.T) {
	fp := &fakePublisher{err: errors.New("not connected")}
	p := NewSettingsPublisher(fp, "aquawatch/{device_id}/settings", 0)
	assert.Equal(t, "aquawatch/global/settings", p.Topic(""))

	err := p.PublishSettings(context.Background(), domain.DefaultCatalog().Defaults(""))
	assert.EqualError(t, err, "not connected")
}
