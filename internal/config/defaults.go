package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultHTTPAddr   = "127.0.0.1:5001"
	DefaultSessionID  = "default"
	DefaultStorePath  = "./data/whatsapp.db"
	DefaultProbeSpec  = "@every 30s"
	DefaultLogLevel   = "INFO"
	DefaultConfigPath = "./config.yaml"
)

// Default returns the config used when no file is present.
func Default() *Config {
	cfg := &Config{Logging: LoggingConfig{Console: true}, Probe: ProbeConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields in place. Durations stay strings;
// callers parse them with ParseDurationOrDefault.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if strings.TrimSpace(cfg.WhatsApp.SessionID) == "" {
		cfg.WhatsApp.SessionID = DefaultSessionID
	}
	if strings.TrimSpace(cfg.WhatsApp.StorePath) == "" {
		cfg.WhatsApp.StorePath = DefaultStorePath
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if strings.TrimSpace(cfg.Probe.Spec) == "" {
		cfg.Probe.Spec = DefaultProbeSpec
	}
}

// Validate rejects configs that would fail at apply time.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	durations := map[string]string{
		"http.read_timeout":        cfg.HTTP.ReadTimeout,
		"http.write_timeout":       cfg.HTTP.WriteTimeout,
		"http.idle_timeout":        cfg.HTTP.IdleTimeout,
		"http.request_timeout":     cfg.HTTP.RequestTimeout,
		"whatsapp.connect_timeout": cfg.WhatsApp.ConnectTimeout,
		"whatsapp.pair_timeout":    cfg.WhatsApp.PairTimeout,
		"whatsapp.call_timeout":    cfg.WhatsApp.CallTimeout,
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("http.addr: invalid %q: %w", cfg.HTTP.Addr, err)
	}
	if cfg.HTTP.RatePerSec < 0 {
		return fmt.Errorf("http.rate_per_sec must be >= 0")
	}
	if cfg.HTTP.Burst < 0 {
		return fmt.Errorf("http.burst must be >= 0")
	}
	if cfg.Probe.Enabled {
		if _, err := cron.ParseStandard(cfg.Probe.Spec); err != nil {
			return fmt.Errorf("probe.spec: invalid %q: %w", cfg.Probe.Spec, err)
		}
	}
	return nil
}

// DurationOr parses a field already accepted by Validate, falling back to def.
func DurationOr(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationOrDefault("", raw, def)
	if err != nil {
		return def
	}
	return d
}
