package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"wabroker/internal/config"
	"wabroker/internal/dispatch"
	"wabroker/internal/eventbus"
	"wabroker/internal/httpapi"
	"wabroker/internal/observability/metrics"
	rtsup "wabroker/internal/runtime/supervisor"
	"wabroker/internal/session"
	"wabroker/internal/transport/whatsapp"
	logx "wabroker/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	gate   *session.Gate
	wa     *whatsapp.Client
	engine *dispatch.Engine
	http   *httpapi.Service
	probe  *session.Probe
	notify *session.Notifier // nil unless systemd.notify is set

	usingDefaults bool
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	usingDefaults := false
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		cfgm.Commit(cfg)
		usingDefaults = true
	} else if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	waCfg, callTimeout, err := mapWhatsAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	httpCfg, err := mapHTTPConfig(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(mapLogConfig(cfg))
	log := root.With(logx.String("comp", "app"))

	bus := eventbus.New()
	gate := session.NewGate(bus, root.With(logx.String("comp", "session")))
	wa := whatsapp.New(waCfg, gate, bus, root.With(logx.String("comp", "whatsapp")))

	engine := dispatch.New(wa, gate,
		dispatch.WithLogger(root.With(logx.String("comp", "dispatch"))),
		dispatch.WithRecorder(metrics.Dispatch{}),
		dispatch.WithCallTimeout(callTimeout),
	)

	a := &App{
		cfgPath:       cfgPath,
		cfgm:          cfgm,
		log:           log,
		logs:          logSvc,
		bus:           bus,
		gate:          gate,
		wa:            wa,
		engine:        engine,
		http:          httpapi.New(httpCfg, engine, root.With(logx.String("comp", "http"))),
		probe:         session.NewProbe(cfg.Probe.Spec, gate, wa, metrics.Probe{}, root.With(logx.String("comp", "probe"))),
		usingDefaults: usingDefaults,
	}
	if cfg.Systemd.Notify {
		a.notify = session.NewNotifier(root.With(logx.String("comp", "systemd")))
	}
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Gate exposes the session state for operational commands.
func (a *App) Gate() *session.Gate { return a.gate }

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	if a.usingDefaults {
		a.log.Warn("config file not found; using defaults", logx.String("path", a.cfgPath))
	}

	// Transactional reload: validate the mapped sections before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapHTTPConfig(cfg); err != nil {
			return err
		}
		_, _, err := mapWhatsAppConfig(cfg)
		return err
	})

	metrics.MustRegister()
	metrics.SetSessionState(a.gate.State())

	// Subscribe before the session starts so no transition is missed.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		a.consumeEvents(c, events)
	})
	if a.notify != nil {
		notifyEvents, notifyUnsub := a.bus.Subscribe(16)
		a.sup.Go0("systemd.notify", func(c context.Context) {
			defer notifyUnsub()
			a.notify.Consume(c, notifyEvents)
		})
	}

	a.http.Start(a.sup.Context())

	a.sup.Go("whatsapp.session", a.wa.Run)

	if cfg := a.cfgm.Get(); cfg.Probe.Enabled {
		if err := a.probe.Start(a.sup.Context()); err != nil {
			return fmt.Errorf("probe: %w", err)
		}
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) consumeEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if tr, ok := e.Data.(session.Transition); ok && e.Type == eventbus.SessionState {
				metrics.SetSessionState(tr.To)
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

// applyConfig hot-applies the reloadable sections.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(next))

	if slices.Contains(sections, "whatsapp") {
		a.log.Warn("whatsapp config changed; restart required for changes to take effect")
	}
	if slices.Contains(sections, "systemd") {
		a.log.Warn("systemd config changed; restart required for changes to take effect")
	}

	if slices.Contains(sections, "http") {
		hc, err := mapHTTPConfig(next)
		if err != nil {
			a.log.Warn("invalid http config; keeping previous", logx.Err(err))
		} else {
			a.http.Reconfigure(ctx, hc)
		}
	}

	if slices.Contains(sections, "probe") {
		switch {
		case !next.Probe.Enabled:
			a.probe.Stop(ctx)
		case !prev.Probe.Enabled:
			// Not running, so Apply only records the spec.
			_ = a.probe.Apply(ctx, next.Probe.Spec)
			if err := a.probe.Start(ctx); err != nil {
				a.log.Warn("probe start failed", logx.Err(err))
			}
		default:
			if err := a.probe.Apply(ctx, next.Probe.Spec); err != nil {
				a.log.Warn("probe reschedule failed", logx.Err(err))
			}
		}
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: sections})

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.notify != nil {
		a.notify.Stopping()
	}

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	// Bounded steps so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if dl, ok := ctx.Deadline(); !ok || time.Until(dl) > max {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("http", 3*time.Second, func(c context.Context) error { a.http.Stop(c); return nil })
	step("probe", time.Second, func(c context.Context) error { a.probe.Stop(c); return nil })
	step("whatsapp", 3*time.Second, func(context.Context) error { a.wa.Close(); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
