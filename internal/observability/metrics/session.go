package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"wabroker/internal/session"
)

func init() { register(sessionReady, sessionState, probeTotal) }

var (
	sessionReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_ready",
		Help:      "1 when the WhatsApp session is ready.",
	})
	sessionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_state",
		Help:      "Current session state (1 for the active state).",
	}, []string{"state"})
	probeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "probe_total",
		Help:      "Connectivity probe results.",
	}, []string{"result"})
)

var allStates = []session.State{session.Uninitialized, session.Initializing, session.Ready, session.Failed}

// SetSessionState updates both session gauges.
func SetSessionState(st session.State) {
	for _, s := range allStates {
		v := 0.0
		if s == st {
			v = 1
		}
		sessionState.WithLabelValues(s.String()).Set(v)
	}
	if st == session.Ready {
		sessionReady.Set(1)
	} else {
		sessionReady.Set(0)
	}
}

// Probe implements session.ProbeRecorder.
type Probe struct{}

var _ session.ProbeRecorder = Probe{}

func (Probe) ProbeResult(result string) { probeTotal.WithLabelValues(norm(result)).Inc() }
