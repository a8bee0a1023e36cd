package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wabroker/internal/observability/metrics"
	logx "wabroker/pkg/logx"
)

// NewRouter builds the full handler tree.
//
// /healthz sits outside auth and the request timeout; everything else,
// including /metrics and /debug/pprof when enabled, requires the token.
func NewRouter(d Dispatcher, cfg Config, log logx.Logger) http.Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	h := &handlers{d: d, log: log}

	r := chi.NewRouter()
	r.Use(
		RequestID(),
		RequestLog(log),
		Recover(log),
		RateLimit(cfg.RatePerSec, cfg.Burst),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(Auth(cfg.Token), Timeout(cfg.RequestTimeout))

		r.Get("/status", h.status)
		r.Get("/get_groups", h.getGroups)
		r.Post("/open_whatsapp", h.openWhatsApp)
		r.Post("/send_message", h.sendMessage)
		r.Post("/send_poll", h.sendPoll)

		if cfg.Metrics {
			r.Handle("/metrics", metrics.Handler())
		}
		if cfg.Pprof {
			r.Mount("/debug", middleware.Profiler())
		}
	})
	return r
}
