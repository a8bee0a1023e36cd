package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabroker/internal/dispatch"
	"wabroker/internal/httpapi"
	logx "wabroker/pkg/logx"
)

type recordingTransport struct {
	mu     sync.Mutex
	to     []dispatch.ChatID
	groups []dispatch.Group
}

func (r *recordingTransport) note(to dispatch.ChatID) error {
	r.mu.Lock()
	r.to = append(r.to, to)
	r.mu.Unlock()
	return nil
}

func (r *recordingTransport) SendText(_ context.Context, to dispatch.ChatID, _ string) error {
	return r.note(to)
}

func (r *recordingTransport) SendPoll(_ context.Context, to dispatch.ChatID, _ string, _ []string) error {
	return r.note(to)
}

func (r *recordingTransport) SendButtons(_ context.Context, to dispatch.ChatID, _ string, _ []dispatch.Button, _, _ string) error {
	return r.note(to)
}

func (r *recordingTransport) SendList(_ context.Context, to dispatch.ChatID, _ string, _ dispatch.List) error {
	return r.note(to)
}

func (r *recordingTransport) ListGroups(context.Context) ([]dispatch.Group, error) {
	return r.groups, nil
}

func (r *recordingTransport) Open(context.Context) error { return nil }

type ready bool

func (r ready) IsReady() bool { return bool(r) }

func newServer(t *testing.T, tr dispatch.Transport, isReady bool, cfg httpapi.Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpapi.NewRouter(dispatch.New(tr, ready(isReady)), cfg, logx.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAgainstServer(t *testing.T) {
	tr := &recordingTransport{groups: []dispatch.Group{
		{Name: "Family Chat", ID: "120363025246125486@g.us", Members: 5},
	}}
	srv := newServer(t, tr, true, httpapi.Config{Token: "tok"})
	c, err := New(srv.URL, WithToken("tok"))
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	groups, err := c.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, tr.groups, groups)

	require.NoError(t, c.SendMessage(ctx, "family chat", "hi"))
	method, err := c.SendPoll(ctx, "31612345678", "Pizza?", []string{"Yes", "No"})
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeButtons, method)
	method, err = c.SendPoll(ctx, "FAMILY CHAT", "Pizza?", []string{"Yes", "No"})
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomePoll, method)

	require.NoError(t, c.OpenWhatsApp(ctx))

	assert.Equal(t, []dispatch.ChatID{
		"120363025246125486@g.us",
		"31612345678@c.us",
		"120363025246125486@g.us",
	}, tr.to)
}

func TestClientSurfacesServerMessage(t *testing.T) {
	srv := newServer(t, &recordingTransport{}, false, httpapi.Config{})
	c, err := New(srv.URL)
	require.NoError(t, err)

	err = c.SendMessage(context.Background(), "3161", "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.EqualError(t, err, "WhatsApp client is not ready")

	err = c.SendMessage(context.Background(), "3161", "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.EqualError(t, err, "missing required field: message")
}

func TestClientUnauthorized(t *testing.T) {
	srv := newServer(t, &recordingTransport{}, true, httpapi.Config{Token: "tok"})
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Status(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestResolveContactPassThrough(t *testing.T) {
	var lookups atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"groups": []map[string]any{{"name": "Team", "id": "1-2@g.us", "members": 3}},
		})
	}))
	defer srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "31612345678@c.us", c.ResolveContact(ctx, "31612345678@c.us"))
	assert.Equal(t, int32(0), lookups.Load(), "ids with @ skip the lookup")
	assert.Equal(t, "1-2@g.us", c.ResolveContact(ctx, " team "))
	assert.Equal(t, "+31 6 1234", c.ResolveContact(ctx, "+31 6 1234"))
}

func TestResolveContactLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"WhatsApp client is not ready"}`))
	}))
	defer srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Team", c.ResolveContact(context.Background(), "Team"))
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Status(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRejectsBadServer(t *testing.T) {
	_, err := New("ftp://example.com")
	require.Error(t, err)
	_, err = New("http://")
	require.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, c.base.String())
}

func TestParseOptions(t *testing.T) {
	got, err := ParseOptions(" Yes, No ,, Maybe ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes", "No", "Maybe"}, got)

	_, err = ParseOptions("Yes")
	require.Error(t, err)
	_, err = ParseOptions(" , ,")
	require.Error(t, err)
	_, err = ParseOptions("Yes,No,Yes")
	require.EqualError(t, err, `duplicate option "Yes"`)
}
