// Package config loads the chatd configuration from a YAML file and applies
// environment-variable overrides on top, so deployments can tweak individual
// settings without editing the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as Go duration
// strings ("4h", "60s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the chat server.
type Config struct {
	ListenAddr      string   `yaml:"listen_addr"`       // TCP chat listener
	HTTPAddr        string   `yaml:"http_addr"`         // /ws gateway, /metrics, /healthz
	MaxRequestBytes int      `yaml:"max_request_bytes"` // upper bound for one request line
	ReadTimeout     Duration `yaml:"read_timeout"`      // idle deadline per connection, 0 disables

	StrikesLimit    int      `yaml:"strikes_limit"` // ban triggers when count exceeds this
	BanPeriod       Duration `yaml:"ban_period"`
	MessageLifetime Duration `yaml:"message_lifetime"`
	PrivateLifetime Duration `yaml:"private_message_lifetime"` // 0 = private unread never expires
	ExpiryInterval  Duration `yaml:"expiry_interval"`
	ReadLastCount   int      `yaml:"read_last_count"`

	ChatDumpPath  string   `yaml:"chat_dump_path"`
	UsersDumpPath string   `yaml:"users_dump_path"`
	SaveDebounce  Duration `yaml:"save_debounce"`

	LogPath string `yaml:"log_path"` // optional log file, tee'd with stderr

	RedisAddr         string `yaml:"redis_addr"` // optional: enables rate limiting
	NATSURL           string `yaml:"nats_url"`   // optional: enables event publishing
	ModerationEnabled bool   `yaml:"moderation_enabled"`
}

// Default returns the configuration used when a field is absent from the file.
func Default() Config {
	return Config{
		ListenAddr:      ":9000",
		HTTPAddr:        ":9090",
		MaxRequestBytes: 4096,
		StrikesLimit:    2,
		BanPeriod:       Duration(4 * time.Hour),
		MessageLifetime: Duration(1 * time.Hour),
		PrivateLifetime: 0,
		ExpiryInterval:  Duration(60 * time.Second),
		ReadLastCount:   20,
		ChatDumpPath:    "data/common_chat.json",
		UsersDumpPath:   "data/users.json",
		SaveDebounce:    Duration(200 * time.Millisecond),
	}
}

// Load reads the YAML file at path into a Config. A missing file is not an
// error: defaults plus env overrides apply, so chatd can start with no config
// file at all.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides
	case err != nil:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays CHATD_* environment variables on the loaded config.
func (c *Config) applyEnv() {
	if v := os.Getenv("CHATD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("CHATD_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("CHATD_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("CHATD_NATS_URL"); v != "" {
		c.NATSURL = v
	}
	if v := os.Getenv("CHATD_DATA_DIR"); v != "" {
		c.ChatDumpPath = filepath.Join(v, "common_chat.json")
		c.UsersDumpPath = filepath.Join(v, "users.json")
	}
}

func (c *Config) validate() error {
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("config: max_request_bytes must be positive, got %d", c.MaxRequestBytes)
	}
	if c.StrikesLimit < 0 {
		return fmt.Errorf("config: strikes_limit must be non-negative, got %d", c.StrikesLimit)
	}
	if c.ReadLastCount <= 0 {
		return fmt.Errorf("config: read_last_count must be positive, got %d", c.ReadLastCount)
	}
	if c.ExpiryInterval.Std() <= 0 {
		return fmt.Errorf("config: expiry_interval must be positive, got %s", c.ExpiryInterval.Std())
	}
	return nil
}
