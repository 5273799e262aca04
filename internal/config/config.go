// Package config loads the relay daemon configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/routeops/traefik-route-relay/internal/logx"
)

type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		PidFile        string `yaml:"pid_file"`
	} `yaml:"server"`

	// Route points at the operator-authored route template file.
	Route struct {
		File string `yaml:"file"`
		// EntryPoints overrides the traefik entry points generated routers
		// bind to. Defaults to ["web"].
		EntryPoints []string `yaml:"entry_points"`
		// AutoReload watches route.file and re-evaluates at runtime.
		AutoReload struct {
			Enabled    bool `yaml:"enabled"`
			DebounceMs int  `yaml:"debounce_ms"`
		} `yaml:"auto_reload"`
	} `yaml:"route"`

	// Units is the persisted set of unit ingress requests. Empty file path
	// keeps registrations in memory only.
	Units struct {
		File string `yaml:"file"`
	} `yaml:"units"`

	Auth struct {
		// APIKey guards the mutating and admin endpoints when set.
		APIKey string `yaml:"api_key"`
	} `yaml:"auth"`

	Limits struct {
		// RequestsPerSecond/Burst rate-limit the unit API per client IP.
		// Zero disables limiting.
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"limits"`

	Logging struct {
		AccessLog     bool   `yaml:"access_log"`
		AccessLogPath string `yaml:"access_log_path"`
		// AccessLogFormat is a $var line format; empty uses the built-in
		// default. See internal/logx for the variable set.
		AccessLogFormat string `yaml:"access_log_format"`
		// AccessLogRotate rotates access_log_path by size and day.
		AccessLogRotate struct {
			Enabled    bool `yaml:"enabled"`
			MaxSizeMB  int  `yaml:"max_size_mb"`
			MaxBackups int  `yaml:"max_backups"`
			MaxAgeDays int  `yaml:"max_age_days"`
			Compress   bool `yaml:"compress"`
		} `yaml:"access_log_rotate"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config yaml %q: %w", path, err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":3380"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 15000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 15000
	}
	if strings.TrimSpace(cfg.Server.PidFile) == "" {
		cfg.Server.PidFile = "/var/run/trr.pid"
	}
	if strings.TrimSpace(cfg.Route.File) == "" {
		cfg.Route.File = "./route.yaml"
	}
	if len(cfg.Route.EntryPoints) == 0 {
		cfg.Route.EntryPoints = []string{"web"}
	}
	if cfg.Route.AutoReload.DebounceMs <= 0 {
		cfg.Route.AutoReload.DebounceMs = 300
	}
	if cfg.Logging.AccessLogRotate.MaxSizeMB <= 0 {
		cfg.Logging.AccessLogRotate.MaxSizeMB = 100
	}
	if cfg.Logging.AccessLogRotate.MaxBackups <= 0 {
		cfg.Logging.AccessLogRotate.MaxBackups = 14
	}
	if cfg.Logging.AccessLogRotate.MaxAgeDays <= 0 {
		cfg.Logging.AccessLogRotate.MaxAgeDays = 14
	}
	if cfg.Limits.RequestsPerSecond > 0 && cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = int(cfg.Limits.RequestsPerSecond)
		if cfg.Limits.Burst < 1 {
			cfg.Limits.Burst = 1
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TRR_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("TRR_API_KEY")); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TRR_ROUTE_FILE")); v != "" {
		cfg.Route.File = v
	}
	if v := strings.TrimSpace(os.Getenv("TRR_UNITS_FILE")); v != "" {
		cfg.Units.File = v
	}
	if v := strings.TrimSpace(os.Getenv("TRR_ACCESS_LOG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.AccessLog = b
		}
	}
}

func validate(cfg *Config) error {
	for _, ep := range cfg.Route.EntryPoints {
		if strings.TrimSpace(ep) == "" {
			return fmt.Errorf("route.entry_points: empty entry point name")
		}
	}
	if cfg.Limits.RequestsPerSecond < 0 {
		return fmt.Errorf("limits.requests_per_second must not be negative")
	}
	if cfg.Logging.AccessLogRotate.Enabled {
		if !cfg.Logging.AccessLog {
			return fmt.Errorf("logging.access_log must be true when logging.access_log_rotate.enabled=true")
		}
		if strings.TrimSpace(cfg.Logging.AccessLogPath) == "" {
			return fmt.Errorf("logging.access_log_path is required when logging.access_log_rotate.enabled=true")
		}
	}
	if _, err := logx.CompileAccessFormat(cfg.ResolvedAccessFormat()); err != nil {
		return err
	}
	return nil
}

// ResolvedAccessFormat returns the configured access-log line format, or the
// built-in default when unset.
func (cfg *Config) ResolvedAccessFormat() string {
	if v := strings.TrimSpace(cfg.Logging.AccessLogFormat); v != "" {
		return v
	}
	return logx.DefaultAccessFormat
}
