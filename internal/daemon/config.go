package daemon

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/observability"
)

// Config represents the complete daemon configuration
type Config struct {
	Daemon     DaemonConfig                `yaml:"daemon"`
	Device     DeviceConfig                `yaml:"device"`
	MQTT       MQTTConfig                  `yaml:"mqtt"`
	Publish    PublishConfig               `yaml:"publish"`
	Cache      CacheConfig                 `yaml:"cache"`
	API        APIConfig                   `yaml:"api"`
	Tracing    observability.TracingConfig `yaml:"tracing"`
	Logging    logging.Config              `yaml:"logging"`
	ConfigPath string                      `yaml:"-"` // Path to config file, set when loading
	Version    string                      `yaml:"-"`
}

// DaemonConfig contains scheduling settings
type DaemonConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Workers      int           `yaml:"workers"`
	RunOnce      bool          `yaml:"-"` // Set from command line
	DryRun       bool          `yaml:"-"` // Set from command line
}

// DeviceConfig holds what is needed to reach the adapters
type DeviceConfig struct {
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Hosts              []string      `yaml:"hosts"`
	Scheme             string        `yaml:"scheme"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

// MQTTConfig contains broker settings
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	ClientID       string        `yaml:"client_id"`
	BaseTopic      string        `yaml:"base_topic"`
	QoS            int           `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// PublishConfig selects optional topic groups
type PublishConfig struct {
	VLRates  bool `yaml:"vl_rates"`
	NodeInfo bool `yaml:"node_info"`
}

// CacheConfig for the static register cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	StaticTTL time.Duration `yaml:"static_ttl"`
}

// APIConfig contains status API settings
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DefaultConfig returns a configuration with every default filled in.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			PollInterval: 60 * time.Second,
			Workers:      4,
		},
		Device: DeviceConfig{
			Scheme:  "http",
			Timeout: 10 * time.Second,
		},
		MQTT: MQTTConfig{
			Port:           1883,
			BaseTopic:      "moca",
			PublishTimeout: 5 * time.Second,
		},
		Publish: PublishConfig{
			NodeInfo: true,
		},
		Cache: CacheConfig{
			Path:      "./cache/badger-mocad",
			StaticTTL: 24 * time.Hour,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8089,
		},
		Tracing: observability.TracingConfig{
			Exporter:    "stdout",
			ServiceName: "mocad",
			SampleRatio: 1.0,
		},
		Logging: logging.Config{
			Level:   "info",
			Console: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file on fs. Keys missing from
// the file keep their defaults.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ConfigPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults restores defaults the file explicitly zeroed.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Daemon.PollInterval == 0 {
		c.Daemon.PollInterval = def.Daemon.PollInterval
	}
	if c.Daemon.Workers == 0 {
		c.Daemon.Workers = def.Daemon.Workers
	}
	if c.Device.Scheme == "" {
		c.Device.Scheme = def.Device.Scheme
	}
	if c.Device.Timeout == 0 {
		c.Device.Timeout = def.Device.Timeout
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = def.MQTT.Port
	}
	if c.MQTT.BaseTopic == "" {
		c.MQTT.BaseTopic = def.MQTT.BaseTopic
	}
	if c.MQTT.PublishTimeout == 0 {
		c.MQTT.PublishTimeout = def.MQTT.PublishTimeout
	}
	if c.Cache.Path == "" {
		c.Cache.Path = def.Cache.Path
	}
	if c.Cache.StaticTTL == 0 {
		c.Cache.StaticTTL = def.Cache.StaticTTL
	}
	if c.API.Host == "" {
		c.API.Host = def.API.Host
	}
	if c.API.Port == 0 {
		c.API.Port = def.API.Port
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = def.Tracing.ServiceName
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = def.Tracing.SampleRatio
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	for i, h := range c.Device.Hosts {
		c.Device.Hosts[i] = strings.TrimSpace(h)
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.Device.Hosts) == 0 {
		return fmt.Errorf("device.hosts must list at least one adapter")
	}
	for _, h := range c.Device.Hosts {
		if h == "" {
			return fmt.Errorf("device.hosts contains an empty entry")
		}
	}
	if c.Device.Scheme != "http" && c.Device.Scheme != "https" {
		return fmt.Errorf("device.scheme must be http or https, got %q", c.Device.Scheme)
	}
	if c.Daemon.Workers < 1 {
		return fmt.Errorf("daemon.workers must be at least 1")
	}
	if c.Daemon.PollInterval < time.Second {
		return fmt.Errorf("daemon.poll_interval must be at least 1s, got %v", c.Daemon.PollInterval)
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}

	if c.Tracing.Enabled {
		switch strings.ToLower(c.Tracing.Exporter) {
		case "", "stdout", "otlp", "otlpgrpc":
		default:
			return fmt.Errorf("tracing.exporter must be stdout or otlp, got %q", c.Tracing.Exporter)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}
