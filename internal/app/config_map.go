package app

import (
	"time"

	"wabroker/internal/config"
	"wabroker/internal/httpapi"
	"wabroker/internal/transport/whatsapp"
	logx "wabroker/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapHTTPConfig(cfg *config.Config) (httpapi.Config, error) {
	h := cfg.HTTP
	out := httpapi.Config{
		Addr:          h.Addr,
		Token:         h.Token,
		AllowInsecure: h.AllowInsecure,
		RatePerSec:    h.RatePerSec,
		Burst:         h.Burst,
		Metrics:       h.Metrics,
		Pprof:         h.Pprof,
	}
	var err error
	if out.ReadTimeout, err = config.ParseDurationOrDefault("http.read_timeout", h.ReadTimeout, 30*time.Second); err != nil {
		return httpapi.Config{}, err
	}
	if out.WriteTimeout, err = config.ParseDurationOrDefault("http.write_timeout", h.WriteTimeout, 0); err != nil {
		return httpapi.Config{}, err
	}
	if out.IdleTimeout, err = config.ParseDurationOrDefault("http.idle_timeout", h.IdleTimeout, 2*time.Minute); err != nil {
		return httpapi.Config{}, err
	}
	if out.RequestTimeout, err = config.ParseDurationField("http.request_timeout", h.RequestTimeout); err != nil {
		return httpapi.Config{}, err
	}
	return out, nil
}

// mapWhatsAppConfig returns the session bundle and the per-call timeout.
func mapWhatsAppConfig(cfg *config.Config) (whatsapp.Config, time.Duration, error) {
	w := cfg.WhatsApp
	out := whatsapp.Config{SessionID: w.SessionID, StorePath: w.StorePath}
	var err error
	if out.ConnectTimeout, err = config.ParseDurationOrDefault("whatsapp.connect_timeout", w.ConnectTimeout, time.Minute); err != nil {
		return whatsapp.Config{}, 0, err
	}
	if out.PairTimeout, err = config.ParseDurationOrDefault("whatsapp.pair_timeout", w.PairTimeout, 3*time.Minute); err != nil {
		return whatsapp.Config{}, 0, err
	}
	callTimeout, err := config.ParseDurationField("whatsapp.call_timeout", w.CallTimeout)
	if err != nil {
		return whatsapp.Config{}, 0, err
	}
	return out, callTimeout, nil
}
