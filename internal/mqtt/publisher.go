package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"aquawatch/internal/domain"
)

// Publisher is satisfied by *Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// SettingsMessage payload published after every confirmed save or reset.
// Recipients are deliberately left out.
type SettingsMessage struct {
	DeviceID  string                      `json:"device_id,omitempty"`
	Metrics   map[string]domain.Threshold `json:"metrics"`
	Enabled   []string                    `json:"enabled"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// SettingsPublisher publishes thresholds retained, so devices that connect later
// still receive the last configuration.
type SettingsPublisher struct {
	pub   Publisher
	topic string
	qos   byte
	now   func() time.Time
}

// NewSettingsPublisher topic may contain {device_id}; the global scope uses "global".
func NewSettingsPublisher(pub Publisher, topic string, qos byte) *SettingsPublisher {
	return &SettingsPublisher{pub: pub, topic: topic, qos: qos, now: time.Now}
}

// Topic resolves the topic for a device.
func (p *SettingsPublisher) Topic(deviceID string) string {
	if deviceID == "" {
		deviceID = "global"
	}
	return strings.ReplaceAll(p.topic, "{device_id}", deviceID)
}

// PublishSettings implements service.ChangePublisher.
func (p *SettingsPublisher) PublishSettings(_ context.Context, cfg *domain.Configuration) error {
	msg := SettingsMessage{
		DeviceID:  cfg.DeviceID,
		Metrics:   cfg.Thresholds,
		Enabled:   cfg.EnabledKeys(),
		UpdatedAt: p.now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.pub.Publish(p.Topic(cfg.DeviceID), p.qos, true, payload)
}
