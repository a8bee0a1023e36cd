// Package client talks to a running wabroker over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wabroker/internal/dispatch"
)

const (
	DefaultServer  = "http://127.0.0.1:5001"
	DefaultTimeout = 30 * time.Second
)

// APIError is a non-2xx answer from the server. Message is the server's
// own "message" field when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return e.Message
}

type Client struct {
	base    *url.URL
	token   string
	timeout time.Duration
	hc      *http.Client
}

type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option { return func(c *Client) { c.token = strings.TrimSpace(token) } }

// WithTimeout bounds each call. Zero disables the per-call bound.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func New(server string, opts ...Option) (*Client, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		server = DefaultServer
	}
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("server url: missing host")
	}
	c := &Client{base: u, timeout: DefaultTimeout, hc: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	if c.hc == nil {
		c.hc = http.DefaultClient
	}
	return c, nil
}

type envelope struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Ready   bool             `json:"ready"`
	Method  dispatch.Outcome `json:"method"`
	Groups  []dispatch.Group `json:"groups"`
}

// Status reports whether the server's session is ready.
func (c *Client) Status(ctx context.Context) (bool, error) {
	env, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return false, err
	}
	return env.Ready, nil
}

func (c *Client) Groups(ctx context.Context) ([]dispatch.Group, error) {
	env, err := c.do(ctx, http.MethodGet, "/get_groups", nil)
	if err != nil {
		return nil, err
	}
	if env.Groups == nil {
		env.Groups = []dispatch.Group{}
	}
	return env.Groups, nil
}

func (c *Client) OpenWhatsApp(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/open_whatsapp", nil)
	return err
}

// SendMessage resolves contact (see ResolveContact) and sends a text.
func (c *Client) SendMessage(ctx context.Context, contact, message string) error {
	body := map[string]string{
		"contact": c.ResolveContact(ctx, contact),
		"message": message,
	}
	_, err := c.do(ctx, http.MethodPost, "/send_message", body)
	return err
}

// SendPoll resolves contact and sends a poll; it returns the delivery method
// the server picked.
func (c *Client) SendPoll(ctx context.Context, contact, question string, options []string) (dispatch.Outcome, error) {
	body := map[string]any{
		"contact":  c.ResolveContact(ctx, contact),
		"question": question,
		"options":  options,
	}
	env, err := c.do(ctx, http.MethodPost, "/send_poll", body)
	if err != nil {
		return "", err
	}
	return env.Method, nil
}

// ResolveContact maps a group name to its id. Contacts that already carry
// an "@", that match no group, or that cannot be looked up are returned
// unchanged.
func (c *Client) ResolveContact(ctx context.Context, contact string) string {
	name := strings.TrimSpace(contact)
	if name == "" || strings.Contains(name, "@") {
		return contact
	}
	groups, err := c.Groups(ctx)
	if err != nil {
		return contact
	}
	for _, g := range groups {
		if strings.EqualFold(strings.TrimSpace(g.Name), name) {
			return g.ID
		}
	}
	return contact
}

func (c *Client) do(ctx context.Context, method, path string, in any) (envelope, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return envelope{}, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), rd)
	if err != nil {
		return envelope{}, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	decErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Status == "error" {
		msg := env.Message
		if decErr != nil {
			msg = strings.TrimSpace(string(raw))
		}
		return envelope{}, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decErr != nil {
		return envelope{}, fmt.Errorf("decode %s response: %w", path, decErr)
	}
	return env, nil
}
