package config

import (
	"sort"
	"strings"

	logx "wabroker/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	// HTTP (never log token)
	o, n := oldCfg.HTTP, newCfg.HTTP
	if strings.TrimSpace(o.Addr) != strings.TrimSpace(n.Addr) ||
		o.AllowInsecure != n.AllowInsecure ||
		strings.TrimSpace(o.ReadTimeout) != strings.TrimSpace(n.ReadTimeout) ||
		strings.TrimSpace(o.WriteTimeout) != strings.TrimSpace(n.WriteTimeout) ||
		strings.TrimSpace(o.IdleTimeout) != strings.TrimSpace(n.IdleTimeout) ||
		strings.TrimSpace(o.RequestTimeout) != strings.TrimSpace(n.RequestTimeout) ||
		o.RatePerSec != n.RatePerSec || o.Burst != n.Burst ||
		o.Metrics != n.Metrics || o.Pprof != n.Pprof ||
		o.Token != n.Token {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.String("http.addr", strings.TrimSpace(n.Addr)),
			logx.Bool("http.token_set", strings.TrimSpace(n.Token) != ""),
			logx.Bool("http.allow_insecure", n.AllowInsecure),
			logx.Int("http.rate_per_sec", n.RatePerSec),
			logx.Bool("http.metrics", n.Metrics),
			logx.Bool("http.pprof", n.Pprof),
		)
	}

	if oldCfg.WhatsApp != newCfg.WhatsApp {
		changed = append(changed, "whatsapp")
		attrs = append(attrs,
			logx.String("whatsapp.session_id", strings.TrimSpace(newCfg.WhatsApp.SessionID)),
			logx.String("whatsapp.call_timeout", strings.TrimSpace(newCfg.WhatsApp.CallTimeout)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Probe.Enabled != newCfg.Probe.Enabled ||
		strings.TrimSpace(oldCfg.Probe.Spec) != strings.TrimSpace(newCfg.Probe.Spec) {
		changed = append(changed, "probe")
		attrs = append(attrs,
			logx.Bool("probe.enabled", newCfg.Probe.Enabled),
			logx.String("probe.spec", strings.TrimSpace(newCfg.Probe.Spec)),
		)
	}

	if oldCfg.Systemd != newCfg.Systemd {
		changed = append(changed, "systemd")
		attrs = append(attrs, logx.Bool("systemd.notify", newCfg.Systemd.Notify))
	}

	sort.Strings(changed)
	return changed, attrs
}
