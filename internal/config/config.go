package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend contract names.
const (
	ContractFlat  = "flat"
	ContractSplit = "split"
	ContractLocal = "local"
)

// Reset modes.
const (
	ResetBackend = "backend"
	ResetLocal   = "local"
)

// DatabaseConfig postgres connection settings (STORE_DRIVER=postgres).
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN returns a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig redis connection settings (STORE_DRIVER=redis).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig settings-change publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"` // may contain {device_id}
	QoS      byte   `yaml:"qos"`
}

// HTTPConfig console API listener. WriteTimeout bounds an Excel export or a
// dashboard refresh, so it is longer than the read side.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// PolicyConfig switches between the behaviours of the backend contract revisions.
type PolicyConfig struct {
	PrefillRecipients     bool
	ImmediateToggle       bool
	ClearRecipientsOnSave bool
	ResetMode             string
}

// Config aquawatch console configuration.
type Config struct {
	API struct {
		Base     string
		Contract string
		Timeout  time.Duration
	}
	DeviceID    string
	Policy      PolicyConfig
	CatalogFile string

	Store struct {
		Driver string // file | redis | postgres | memory
		Path   string
		Key    string
	}
	Redis    RedisConfig
	Database DatabaseConfig
	MQTT     MQTTConfig

	HTTP HTTPConfig
	RefreshInterval time.Duration
	ReportTZ        string

	Log struct {
		Level  string
		Format string
	}
}

// BackendPresent reports whether an API base address is configured.
func (c *Config) BackendPresent() bool {
	return c.API.Base != ""
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	cfg.API.Base = strings.TrimRight(getEnv("AQUAWATCH_API_BASE", os.Getenv("VITE_API_BASE")), "/")
	cfg.API.Contract = strings.ToLower(getEnv("AQUAWATCH_CONTRACT", ContractSplit))
	cfg.API.Timeout = getEnvDuration("AQUAWATCH_HTTP_TIMEOUT", 15*time.Second)
	if cfg.API.Base == "" {
		cfg.API.Contract = ContractLocal
	}
	switch cfg.API.Contract {
	case ContractFlat, ContractSplit, ContractLocal:
	default:
		return nil, fmt.Errorf("invalid AQUAWATCH_CONTRACT: %s (must be 'flat' or 'split')", cfg.API.Contract)
	}

	cfg.DeviceID = getEnv("AQUAWATCH_DEVICE_ID", "")
	cfg.CatalogFile = getEnv("AQUAWATCH_CATALOG_FILE", "")

	// flat is the older revision: recipients pre-filled, toggles saved immediately
	flat := cfg.API.Contract == ContractFlat
	cfg.Policy.PrefillRecipients = getEnvBool("AQUAWATCH_PREFILL_RECIPIENTS", flat)
	cfg.Policy.ImmediateToggle = getEnvBool("AQUAWATCH_IMMEDIATE_TOGGLE", flat)
	cfg.Policy.ClearRecipientsOnSave = getEnvBool("AQUAWATCH_CLEAR_RECIPIENTS", !cfg.Policy.PrefillRecipients)
	cfg.Policy.ResetMode = strings.ToLower(getEnv("AQUAWATCH_RESET_MODE", ResetBackend))
	if cfg.Policy.ResetMode != ResetBackend && cfg.Policy.ResetMode != ResetLocal {
		return nil, fmt.Errorf("invalid AQUAWATCH_RESET_MODE: %s (must be 'backend' or 'local')", cfg.Policy.ResetMode)
	}

	cfg.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", "file"))
	cfg.Store.Path = getEnv("STORE_PATH", defaultStorePath())
	cfg.Store.Key = getEnv("STORE_KEY", "water_alert_settings")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "aquawatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "4"), 4)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "2"), 2)

	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "aquawatch-console")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "aquawatch/{device_id}/settings")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)
	cfg.HTTP.IdleTimeout = getEnvDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute)
	cfg.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 30*time.Second)
	cfg.ReportTZ = getEnv("REPORT_TZ", "Asia/Bangkok")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	return cfg, nil
}

func defaultStorePath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return dir + string(os.PathSeparator) + "aquawatch" + string(os.PathSeparator) + "store.json"
	}
	return "aquawatch-store.json"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
