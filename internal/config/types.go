package config

// Config is the root of the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Logging  LoggingConfig  `json:"logging"`
	Probe    ProbeConfig    `json:"probe,omitempty"`
	Systemd  SystemdConfig  `json:"systemd,omitempty"`
}

// HTTPConfig controls the dispatch HTTP server.
//
// Security note:
//   - Prefer binding to localhost (default "127.0.0.1:5001").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type HTTPConfig struct {
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
	// RequestTimeout bounds each handler via the request context. "0s" disables it.
	RequestTimeout string `json:"request_timeout,omitempty"`

	// RatePerSec <= 0 disables the limiter.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	Burst      int `json:"burst,omitempty"`

	Metrics bool `json:"metrics,omitempty"`
	Pprof   bool `json:"pprof,omitempty"`
}

// WhatsAppConfig is the startup bundle for the WhatsApp Web session.
// Changes require a restart.
type WhatsAppConfig struct {
	SessionID string `json:"session_id,omitempty"`
	// StorePath is the sqlite file holding device keys and session state.
	StorePath      string `json:"store_path,omitempty"`
	ConnectTimeout string `json:"connect_timeout,omitempty"`
	PairTimeout    string `json:"pair_timeout,omitempty"`
	// CallTimeout bounds each transport call. "0s" (default) leaves calls unbounded.
	CallTimeout string `json:"call_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ProbeConfig controls the periodic session connectivity probe.
type ProbeConfig struct {
	Enabled bool `json:"enabled"`
	// Spec is a cron spec; descriptors like "@every 30s" are accepted.
	Spec string `json:"spec,omitempty"`
}

type SystemdConfig struct {
	Notify bool `json:"notify"`
}
