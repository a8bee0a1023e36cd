package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "wabroker/pkg/logx"
)

// Probe results.
const (
	ProbeConnected    = "connected"
	ProbeDisconnected = "disconnected"
	ProbeNotReady     = "not_ready"
)

// Connectivity is the part of the transport the probe looks at.
type Connectivity interface {
	IsConnected() bool
}

// ProbeRecorder receives every probe result.
type ProbeRecorder interface {
	ProbeResult(result string)
}

// Probe periodically checks the session socket. It only observes;
// it never changes the gate state.
type Probe struct {
	mu   sync.Mutex
	spec string
	c    *cron.Cron

	gate *Gate
	conn Connectivity
	rec  ProbeRecorder
	log  logx.Logger

	lastResult string
}

func NewProbe(spec string, gate *Gate, conn Connectivity, rec ProbeRecorder, log logx.Logger) *Probe {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Probe{spec: strings.TrimSpace(spec), gate: gate, conn: conn, rec: rec, log: log}
}

// Check runs one probe and returns its result.
func (p *Probe) Check() string {
	result := ProbeNotReady
	if p.gate.IsReady() {
		result = ProbeDisconnected
		if p.conn != nil && p.conn.IsConnected() {
			result = ProbeConnected
		}
	}
	if p.rec != nil {
		p.rec.ProbeResult(result)
	}

	p.mu.Lock()
	prev := p.lastResult
	p.lastResult = result
	p.mu.Unlock()

	switch {
	case result == ProbeDisconnected && prev != ProbeDisconnected:
		p.log.Warn("session ready but socket disconnected", logx.Duration("ready_for", time.Since(p.gate.Since())))
	case result == ProbeConnected && prev == ProbeDisconnected:
		p.log.Info("session socket reconnected")
	default:
		p.log.Debug("session probe", logx.String("result", result))
	}
	return result
}

func (p *Probe) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(p.spec, func() { p.Check() }); err != nil {
		return err
	}
	c.Start()
	p.c = c
	p.log.Info("probe started", logx.String("spec", p.spec))
	return nil
}

func (p *Probe) Stop(ctx context.Context) {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	p.log.Info("probe stopped")
}

// Apply swaps the schedule, restarting cron when it changed.
func (p *Probe) Apply(ctx context.Context, spec string) error {
	spec = strings.TrimSpace(spec)
	p.mu.Lock()
	same := spec == p.spec
	running := p.c != nil
	p.spec = spec
	p.mu.Unlock()
	if same || !running {
		return nil
	}
	p.Stop(ctx)
	return p.Start(ctx)
}
