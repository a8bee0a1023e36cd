package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"wabroker/internal/dispatch"
	"wabroker/internal/eventbus"
	"wabroker/internal/session"
	"wabroker/internal/storage"
	logx "wabroker/pkg/logx"
)

// Config is the startup bundle for the session. It is read once.
type Config struct {
	SessionID      string
	StorePath      string
	ConnectTimeout time.Duration
	PairTimeout    time.Duration
}

var errNotInitialized = errors.New("whatsapp client not initialized")

// Client owns the single whatsmeow session of the process and implements
// dispatch.Transport on top of it.
type Client struct {
	cfg  Config
	gate *session.Gate
	bus  eventbus.Bus
	log  logx.Logger

	mu sync.RWMutex
	wa *whatsmeow.Client
	db *sql.DB
}

var _ dispatch.Transport = (*Client)(nil)

func New(cfg Config, gate *session.Gate, bus eventbus.Bus, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = time.Minute
	}
	if cfg.PairTimeout <= 0 {
		cfg.PairTimeout = 3 * time.Minute
	}
	return &Client{cfg: cfg, gate: gate, bus: bus, log: log.With(logx.String("session", cfg.SessionID))}
}

// Run initializes the session and then holds it until ctx is done.
//
// An initialization error moves the gate to Failed and is not returned:
// the process keeps serving (and answering NotReady) until restarted.
func (c *Client) Run(ctx context.Context) error {
	if !c.gate.Begin() {
		return nil
	}
	start := time.Now()
	if err := c.initialize(ctx); err != nil {
		if ctx.Err() != nil {
			c.Close()
			return nil
		}
		c.gate.Fail(err)
		c.log.Error("session initialization failed", logx.Err(err), logx.Duration("took", time.Since(start)))
	} else {
		c.log.Info("session initialized", logx.Duration("took", time.Since(start)))
	}
	<-ctx.Done()
	c.Close()
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	db, err := storage.Open(ctx, storage.Config{Path: c.cfg.StorePath}, c.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	container := sqlstore.NewWithDB(db, storage.Dialect, newWALogger(c.log.With(logx.String("comp", "sqlstore"))))
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("upgrade session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("load device: %w", err)
	}

	store.DeviceProps.Os = proto.String("wabroker (" + c.cfg.SessionID + ")")
	wa := whatsmeow.NewClient(device, newWALogger(c.log.With(logx.String("comp", "whatsmeow"))))
	wa.AddEventHandler(c.handleEvent)

	c.mu.Lock()
	c.wa = wa
	c.db = db
	c.mu.Unlock()

	if wa.Store.ID == nil {
		return c.pair(ctx, wa)
	}
	c.log.Info("connecting with stored device", logx.String("jid", wa.Store.ID.String()))
	if err := wa.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return c.awaitHandshake(ctx)
}

// pair links a new device by QR code. Each code is logged and published;
// the operator scans it from the phone.
func (c *Client) pair(ctx context.Context, wa *whatsmeow.Client) error {
	pctx, cancel := context.WithTimeout(ctx, c.cfg.PairTimeout)
	defer cancel()

	qr, err := wa.GetQRChannel(pctx)
	if err != nil {
		return fmt.Errorf("pairing: %w", err)
	}
	if err := wa.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.log.Info("no stored device; waiting for QR pairing", logx.Duration("timeout", c.cfg.PairTimeout))

	for item := range qr {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.log.Info("scan this QR code with WhatsApp (Linked devices)", logx.String("code", item.Code), logx.Duration("valid_for", item.Timeout))
			if c.bus != nil {
				c.bus.Publish(eventbus.Event{Type: eventbus.SessionQR, Data: item.Code})
			}
		case whatsmeow.QRChannelSuccess.Event:
			c.log.Info("pairing succeeded")
			return c.awaitHandshake(ctx)
		case whatsmeow.QRChannelTimeout.Event:
			return errors.New("pairing timed out")
		case whatsmeow.QRChannelEventError:
			return fmt.Errorf("pairing: %w", item.Error)
		default:
			return fmt.Errorf("pairing: %s", item.Event)
		}
	}
	if err := pctx.Err(); err != nil {
		return fmt.Errorf("pairing: %w", err)
	}
	return errors.New("pairing channel closed")
}

// awaitHandshake waits for the Connected event (or a failure event).
func (c *Client) awaitHandshake(ctx context.Context) error {
	actx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	st, err := c.gate.Await(actx)
	if err != nil {
		return fmt.Errorf("handshake not completed within %s", c.cfg.ConnectTimeout)
	}
	if st == session.Failed {
		return c.gate.Err()
	}
	return nil
}

func (c *Client) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Connected:
		if !c.gate.MarkReady() {
			c.log.Info("session reconnected")
		}
	case *events.PairSuccess:
		c.log.Info("device paired", logx.String("jid", v.ID.String()), logx.String("platform", v.Platform))
	case *events.Disconnected:
		c.log.Warn("session disconnected")
	case *events.LoggedOut:
		c.gate.Fail(fmt.Errorf("logged out: %v", v.Reason))
	case *events.StreamReplaced:
		c.gate.Fail(errors.New("session replaced by another client"))
	case *events.ClientOutdated:
		c.gate.Fail(errors.New("client version outdated"))
	case *events.TemporaryBan:
		c.gate.Fail(fmt.Errorf("temporary ban (code %d, expires in %s)", v.Code, v.Expire))
	case *events.ConnectFailure:
		// After Ready the library reconnects on its own.
		if c.gate.State() == session.Initializing {
			c.gate.Fail(fmt.Errorf("connect failure: %v", v.Reason))
		} else {
			c.log.Warn("connect failure", logx.Any("reason", v.Reason))
		}
	}
}

func (c *Client) client() (*whatsmeow.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.wa == nil {
		return nil, errNotInitialized
	}
	return c.wa, nil
}

// IsConnected reports whether the websocket is up.
func (c *Client) IsConnected() bool {
	wa, err := c.client()
	return err == nil && wa.IsConnected()
}

// Close disconnects and closes the session store.
func (c *Client) Close() {
	c.mu.Lock()
	wa, db := c.wa, c.db
	c.wa, c.db = nil, nil
	c.mu.Unlock()
	if wa != nil {
		wa.Disconnect()
	}
	if db != nil {
		_ = db.Close()
	}
}

func (c *Client) send(ctx context.Context, to dispatch.ChatID, build func(wa *whatsmeow.Client) *waMessage) error {
	wa, err := c.client()
	if err != nil {
		return err
	}
	jid, err := toJID(to)
	if err != nil {
		return err
	}
	resp, err := wa.SendMessage(ctx, jid, build(wa))
	if err != nil {
		return err
	}
	c.log.Debug("message accepted", logx.String("to", jid.String()), logx.String("id", resp.ID))
	return nil
}

func (c *Client) SendText(ctx context.Context, to dispatch.ChatID, body string) error {
	return c.send(ctx, to, func(*whatsmeow.Client) *waMessage { return textMessage(body) })
}

func (c *Client) SendPoll(ctx context.Context, to dispatch.ChatID, question string, options []string) error {
	return c.send(ctx, to, func(wa *whatsmeow.Client) *waMessage {
		return wa.BuildPollCreation(question, options, 1)
	})
}

func (c *Client) SendButtons(ctx context.Context, to dispatch.ChatID, body string, buttons []dispatch.Button, title, footer string) error {
	return c.send(ctx, to, func(*whatsmeow.Client) *waMessage {
		return buttonsMessage(body, buttons, title, footer)
	})
}

func (c *Client) SendList(ctx context.Context, to dispatch.ChatID, body string, list dispatch.List) error {
	return c.send(ctx, to, func(*whatsmeow.Client) *waMessage { return listMessage(body, list) })
}

func (c *Client) ListGroups(ctx context.Context) ([]dispatch.Group, error) {
	wa, err := c.client()
	if err != nil {
		return nil, err
	}
	infos, err := wa.GetJoinedGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dispatch.Group, 0, len(infos))
	for _, g := range infos {
		if g == nil {
			continue
		}
		out = append(out, dispatch.Group{
			Name:    g.Name,
			ID:      fromJID(g.JID).String(),
			Members: len(g.Participants),
		})
	}
	return out, nil
}

// Open reconnects the websocket when it is down.
func (c *Client) Open(ctx context.Context) error {
	wa, err := c.client()
	if err != nil {
		return err
	}
	if wa.IsConnected() {
		return nil
	}
	c.log.Info("reconnecting session")
	return wa.Connect()
}
