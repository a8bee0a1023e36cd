package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabroker/internal/eventbus"
	logx "wabroker/pkg/logx"
)

func TestGateLifecycle(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	g := NewGate(bus, logx.Nop())
	assert.Equal(t, Uninitialized, g.State())
	assert.False(t, g.IsReady())

	require.True(t, g.Begin())
	assert.False(t, g.Begin(), "initialization starts once")
	assert.False(t, g.IsReady())

	require.True(t, g.MarkReady())
	assert.True(t, g.IsReady())

	e := <-events
	assert.Equal(t, eventbus.SessionState, e.Type)
	tr := e.Data.(Transition)
	assert.Equal(t, Uninitialized, tr.From)
	assert.Equal(t, Initializing, tr.To)
	tr = (<-events).Data.(Transition)
	assert.Equal(t, Ready, tr.To)
}

func TestGateFailureIsTerminal(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	require.True(t, g.Begin())
	cause := errors.New("handshake refused")
	require.True(t, g.Fail(cause))

	assert.Equal(t, Failed, g.State())
	assert.Equal(t, cause, g.Err())
	assert.False(t, g.MarkReady())
	assert.False(t, g.Begin())
	assert.False(t, g.IsReady())
}

func TestGateReadyCanFail(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	g.Begin()
	g.MarkReady()
	require.True(t, g.Fail(nil))
	assert.Equal(t, Failed, g.State())
	assert.EqualError(t, g.Err(), "session failed")
}

func TestGateRejectsSkippingInitializing(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	assert.False(t, g.MarkReady())
	assert.False(t, g.Fail(errors.New("x")))
	assert.Equal(t, Uninitialized, g.State())
}

func TestGateAwait(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	g.Begin()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	st, err := g.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Initializing, st)

	go g.MarkReady()
	st, err = g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ready, st)
}

func TestNotifierObserve(t *testing.T) {
	var sent []string
	n := NewNotifier(logx.Nop())
	n.notify = func(_ bool, state string) (bool, error) {
		sent = append(sent, state)
		return true, nil
	}

	n.Observe(Transition{From: Uninitialized, To: Initializing})
	n.Observe(Transition{From: Initializing, To: Failed, Err: "no device"})
	n.Stopping()

	assert.Equal(t, []string{
		"STATUS=session initializing",
		"STATUS=session failed: no device",
		daemon.SdNotifyReady,
		daemon.SdNotifyStopping,
	}, sent)
}

type fakeConn struct{ up bool }

func (f *fakeConn) IsConnected() bool { return f.up }

type recorder struct{ results []string }

func (r *recorder) ProbeResult(result string) { r.results = append(r.results, result) }

func TestProbeCheck(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	conn := &fakeConn{}
	rec := &recorder{}
	p := NewProbe("@every 1h", g, conn, rec, logx.Nop())

	assert.Equal(t, ProbeNotReady, p.Check())

	g.Begin()
	g.MarkReady()
	assert.Equal(t, ProbeDisconnected, p.Check())

	conn.up = true
	assert.Equal(t, ProbeConnected, p.Check())
	assert.Equal(t, []string{ProbeNotReady, ProbeDisconnected, ProbeConnected}, rec.results)
	assert.Equal(t, Ready, g.State(), "probe never changes state")
}

func TestProbeStartRejectsBadSpec(t *testing.T) {
	p := NewProbe("not a spec", NewGate(nil, logx.Nop()), nil, nil, logx.Nop())
	require.Error(t, p.Start(context.Background()))
}

func TestNotifierConsumesGateTransitions(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)

	sent := make(chan string, 8)
	n := NewNotifier(logx.Nop())
	n.notify = func(_ bool, state string) (bool, error) {
		sent <- state
		return true, nil
	}
	done := make(chan struct{})
	go func() {
		n.Consume(context.Background(), events)
		close(done)
	}()

	g := NewGate(bus, logx.Nop())
	g.Begin()
	g.MarkReady()

	assert.Equal(t, "STATUS=session initializing", <-sent)
	assert.Equal(t, "STATUS=session ready", <-sent)
	assert.Equal(t, daemon.SdNotifyReady, <-sent)

	unsub()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after unsubscribe")
	}
}
