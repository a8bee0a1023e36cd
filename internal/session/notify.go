package session

import (
	"context"

	"github.com/coreos/go-systemd/v22/daemon"

	"wabroker/internal/eventbus"
	logx "wabroker/pkg/logx"
)

// Notifier reports session state to systemd (Type=notify units).
//
// Outside systemd NOTIFY_SOCKET is unset and every call is a no-op.
type Notifier struct {
	log    logx.Logger
	notify func(unsetEnv bool, state string) (bool, error)
}

func NewNotifier(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{log: log, notify: daemon.SdNotify}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// Observe sends STATUS for every transition and READY=1 once the session
// settles. Failed also reports READY so the unit leaves "activating";
// the status line carries the failure.
func (n *Notifier) Observe(tr Transition) {
	status := "STATUS=session " + tr.To.String()
	if tr.Err != "" {
		status += ": " + tr.Err
	}
	n.send(status)
	if tr.To.Settled() && !tr.From.Settled() {
		n.send(daemon.SdNotifyReady)
	}
}

// Stopping announces shutdown.
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Consume observes session transitions from a bus subscription until ctx
// is done or the subscription closes. The caller subscribes before the
// session starts so the first transition is never missed.
func (n *Notifier) Consume(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if tr, ok := e.Data.(Transition); ok && e.Type == eventbus.SessionState {
				n.Observe(tr)
			}
		}
	}
}
