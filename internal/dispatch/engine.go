package dispatch

import (
	"context"
	"errors"
	"time"

	logx "wabroker/pkg/logx"
)

// Operation names used for logging and metrics.
const (
	OpText   = "text"
	OpPoll   = "poll"
	OpGroups = "groups"
	OpOpen   = "open"
)

// Recorder observes every engine call. result is "ok", "not_ready",
// "invalid" or "error"; outcome is empty except for delivered polls.
type Recorder interface {
	Dispatch(op string, outcome Outcome, result string)
}

// Engine gates, resolves and dispatches requests onto the transport.
// It holds no per-request state and caches nothing between calls.
type Engine struct {
	tr          Transport
	gate        Readiness
	log         logx.Logger
	rec         Recorder
	callTimeout time.Duration
}

type Option func(*Engine)

func WithLogger(log logx.Logger) Option { return func(e *Engine) { e.log = log } }

func WithRecorder(rec Recorder) Option { return func(e *Engine) { e.rec = rec } }

// WithCallTimeout bounds every transport call. Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option { return func(e *Engine) { e.callTimeout = d } }

func New(tr Transport, gate Readiness, opts ...Option) *Engine {
	e := &Engine{tr: tr, gate: gate, log: logx.Nop()}
	for _, o := range opts {
		o(e)
	}
	if e.log.IsZero() {
		e.log = logx.Nop()
	}
	return e
}

func (e *Engine) IsReady() bool { return e.gate.IsReady() }

// SendText delivers body to the resolved contact with one transport call.
func (e *Engine) SendText(ctx context.Context, contact, body string) error {
	if err := requireFields("contact", contact, "message", body); err != nil {
		return e.done(OpText, "", err)
	}
	if !e.gate.IsReady() {
		return e.done(OpText, "", ErrNotReady)
	}
	to := Resolve(contact)
	err := e.call(ctx, OpText, func(ctx context.Context) error {
		return e.tr.SendText(ctx, to, body)
	})
	if err == nil {
		e.log.Info("message sent", logx.String("to", to.String()))
	}
	return e.done(OpText, "", err)
}

// DeliverPoll sends a poll-like message using exactly one strategy and
// reports which one. A failed send is not retried with another strategy.
func (e *Engine) DeliverPoll(ctx context.Context, contact, question string, options []string) (Outcome, error) {
	if err := requireFields("contact", contact, "question", question); err != nil {
		return "", e.done(OpPoll, "", err)
	}
	if len(options) == 0 {
		return "", e.done(OpPoll, "", &ValidationError{Field: "options", Reason: "at least one option is required"})
	}
	if !e.gate.IsReady() {
		return "", e.done(OpPoll, "", ErrNotReady)
	}

	to := Resolve(contact)
	outcome := SelectStrategy(to.IsGroup(), len(options))
	err := e.call(ctx, OpPoll, func(ctx context.Context) error {
		switch outcome {
		case OutcomePoll:
			return e.tr.SendPoll(ctx, to, question, options)
		case OutcomeButtons:
			return e.tr.SendButtons(ctx, to, question, BuildButtons(options), ButtonsTitle, ButtonsFooter)
		default:
			return e.tr.SendList(ctx, to, question, BuildList(options))
		}
	})
	if err != nil {
		return "", e.done(OpPoll, outcome, err)
	}
	e.log.Info("poll sent",
		logx.String("to", to.String()),
		logx.String("method", string(outcome)),
		logx.Int("options", len(options)),
	)
	return outcome, e.done(OpPoll, outcome, nil)
}

// ListGroups enumerates the session's group chats.
func (e *Engine) ListGroups(ctx context.Context) ([]Group, error) {
	if !e.gate.IsReady() {
		return nil, e.done(OpGroups, "", ErrNotReady)
	}
	var groups []Group
	err := e.call(ctx, OpGroups, func(ctx context.Context) error {
		var err error
		groups, err = e.tr.ListGroups(ctx)
		return err
	})
	if err != nil {
		return nil, e.done(OpGroups, "", err)
	}
	if groups == nil {
		groups = []Group{}
	}
	for i := range groups {
		if groups[i].Members < 0 {
			groups[i].Members = 0
		}
	}
	return groups, e.done(OpGroups, "", nil)
}

// Open reconnects the session socket if needed. It requires Ready.
func (e *Engine) Open(ctx context.Context) error {
	if !e.gate.IsReady() {
		return e.done(OpOpen, "", ErrNotReady)
	}
	return e.done(OpOpen, "", e.call(ctx, OpOpen, e.tr.Open))
}

func (e *Engine) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

func (e *Engine) done(op string, outcome Outcome, err error) error {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotReady):
		result = "not_ready"
	case IsValidation(err):
		result = "invalid"
	default:
		result = "error"
		e.log.Warn("dispatch failed", logx.String("op", op), logx.String("method", string(outcome)), logx.Err(err))
	}
	if e.rec != nil {
		e.rec.Dispatch(op, outcome, result)
	}
	return err
}

// requireFields returns a ValidationError for the first empty (name, value) pair.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &ValidationError{Field: pairs[i]}
		}
	}
	return nil
}
