package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"wabroker/internal/dispatch"
)

func init() { register(dispatchTotal) }

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_total",
		Help:      "Dispatch engine calls by operation, poll outcome and result.",
	},
	[]string{"op", "outcome", "result"},
)

// Dispatch implements dispatch.Recorder.
type Dispatch struct{}

var _ dispatch.Recorder = Dispatch{}

func (Dispatch) Dispatch(op string, outcome dispatch.Outcome, result string) {
	dispatchTotal.WithLabelValues(norm(op), norm(string(outcome)), norm(result)).Inc()
}
