package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. TMPLINSPECT_PORT.
const EnvPrefix = "TMPLINSPECT_"

type Config struct {
	Port string `koanf:"port"`

	// Auth. Empty disables bearer auth on /api.
	APIKey string `koanf:"api_key"`

	// Comma-separated CORS origins allowed to call the API.
	AllowedOrigins string `koanf:"allowed_origins"`

	// Upload limits
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Snapshot store
	SnapshotTTL     time.Duration `koanf:"snapshot_ttl"`
	MaxSnapshots    int           `koanf:"max_snapshots"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// Resolve latency window
	StatsWindow time.Duration `koanf:"stats_window"`

	// Combo that toggles the inspector in the browser client
	ComboKey string `koanf:"combo_key"`
	// Keep the inspector on after a template path is opened.
	KeepEnabled bool `koanf:"keep_enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:            "8091",
		AllowedOrigins:  "http://localhost:*,http://127.0.0.1:*",
		MaxUploadBytes:  10485760, // 10MB
		SnapshotTTL:     30 * time.Minute,
		MaxSnapshots:    64,
		CleanupInterval: time.Minute,
		StatsWindow:     time.Hour,
		ComboKey:        "meta-shift-v",
	}
}

// Load starts from Default, applies the YAML file at path if it exists,
// then TMPLINSPECT_* environment overrides.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	def := Default()
	if c.Port == "" {
		c.Port = def.Port
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = def.MaxUploadBytes
	}
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = def.SnapshotTTL
	}
	if c.MaxSnapshots <= 0 {
		c.MaxSnapshots = def.MaxSnapshots
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = def.StatsWindow
	}
	if strings.TrimSpace(c.ComboKey) == "" {
		c.ComboKey = def.ComboKey
	}
}

func (c Config) Validate() error {
	n, err := strconv.Atoi(c.Port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if len(c.Origins()) == 0 {
		return fmt.Errorf("allowed_origins must list at least one origin")
	}
	return nil
}

// Origins splits AllowedOrigins into its entries.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
