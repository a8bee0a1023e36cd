package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"wabroker/internal/eventbus"
	logx "wabroker/pkg/logx"
)

// State is the lifecycle of the single WhatsApp session owned by the process.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the state is terminal for initialization.
func (s State) Settled() bool { return s == Ready || s == Failed }

// Transition is published on the event bus for every state change.
type Transition struct {
	From  State
	To    State
	Err   string
	Since time.Time
}

// allowed lists legal edges. Nothing leads back to Initializing from Failed;
// recovery is a process restart.
var allowed = map[State][]State{
	Uninitialized: {Initializing},
	Initializing:  {Ready, Failed},
	Ready:         {Failed},
}

// Gate holds the session state. The initializer and the transport's event
// handler write it; everything else only reads.
type Gate struct {
	mu      sync.RWMutex
	state   State
	err     error
	since   time.Time
	settled chan struct{}

	bus eventbus.Bus
	log logx.Logger
}

func NewGate(bus eventbus.Bus, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{
		state:   Uninitialized,
		since:   time.Now(),
		settled: make(chan struct{}),
		bus:     bus,
		log:     log,
	}
}

func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// IsReady is the precondition for every session-touching operation.
func (g *Gate) IsReady() bool { return g.State() == Ready }

// Err returns the failure cause once the gate is Failed.
func (g *Gate) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Since returns when the current state was entered.
func (g *Gate) Since() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.since
}

// Begin moves Uninitialized to Initializing. It reports false if
// initialization already started.
func (g *Gate) Begin() bool { return g.move(Initializing, nil) }

// MarkReady records a successful handshake.
func (g *Gate) MarkReady() bool { return g.move(Ready, nil) }

// Fail records an initialization failure or a lost session.
func (g *Gate) Fail(err error) bool {
	if err == nil {
		err = errors.New("session failed")
	}
	return g.move(Failed, err)
}

// Await blocks until initialization settles (Ready or Failed) or ctx is done.
func (g *Gate) Await(ctx context.Context) (State, error) {
	select {
	case <-g.settled:
		return g.State(), nil
	case <-ctx.Done():
		return g.State(), ctx.Err()
	}
}

func (g *Gate) move(to State, cause error) bool {
	g.mu.Lock()
	from := g.state
	if !canMove(from, to) {
		g.mu.Unlock()
		return false
	}
	g.state = to
	g.err = cause
	g.since = time.Now()
	if to.Settled() && !from.Settled() {
		close(g.settled)
	}
	tr := Transition{From: from, To: to, Since: g.since}
	if cause != nil {
		tr.Err = cause.Error()
	}
	g.mu.Unlock()

	if cause != nil {
		g.log.Warn("session state changed", logx.String("from", from.String()), logx.String("to", to.String()), logx.Err(cause))
	} else {
		g.log.Info("session state changed", logx.String("from", from.String()), logx.String("to", to.String()))
	}
	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.SessionState, Time: tr.Since, Data: tr})
	}
	return true
}

func canMove(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
