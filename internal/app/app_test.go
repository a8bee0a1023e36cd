package app

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabroker/internal/config"
	"wabroker/internal/eventbus"
)

func TestMapHTTPConfig(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.RequestTimeout = "5s"
	cfg.HTTP.Token = "tok"

	hc, err := mapHTTPConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultHTTPAddr, hc.Addr)
	assert.Equal(t, "tok", hc.Token)
	assert.Equal(t, 30*time.Second, hc.ReadTimeout)
	assert.Equal(t, time.Duration(0), hc.WriteTimeout)
	assert.Equal(t, 5*time.Second, hc.RequestTimeout)

	cfg.HTTP.IdleTimeout = "soon"
	_, err = mapHTTPConfig(cfg)
	require.ErrorContains(t, err, "http.idle_timeout")
}

func TestMapWhatsAppConfig(t *testing.T) {
	cfg := config.Default()
	wc, callTimeout, err := mapWhatsAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSessionID, wc.SessionID)
	assert.Equal(t, config.DefaultStorePath, wc.StorePath)
	assert.Equal(t, time.Minute, wc.ConnectTimeout)
	assert.Equal(t, 3*time.Minute, wc.PairTimeout)
	assert.Equal(t, time.Duration(0), callTimeout, "unbounded by default")

	cfg.WhatsApp.CallTimeout = "20s"
	_, callTimeout, err = mapWhatsAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, callTimeout)
}

func TestNewAppFallsBackToDefaults(t *testing.T) {
	a, err := NewApp(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, a.usingDefaults)
	assert.Equal(t, config.DefaultHTTPAddr, a.cfgm.Get().HTTP.Addr)
	assert.Nil(t, a.notify)
	assert.False(t, a.engine.IsReady())
}

func TestNewAppRejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  nope: 1\n"), 0o644))
	_, err := NewApp(path)
	require.Error(t, err)
}

func TestApplyConfigRestartsHTTPAndPublishes(t *testing.T) {
	a, err := NewApp(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	events, unsub := a.bus.Subscribe(8)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prev := a.cfgm.Get()
	next := *prev
	next.HTTP.Addr = "127.0.0.1:0"
	next.Probe.Enabled = false
	a.applyConfig(ctx, prev, &next)

	require.Eventually(t, func() bool { return a.http.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	e := <-events
	assert.Equal(t, eventbus.ConfigReloaded, e.Type)
	assert.Equal(t, []string{"http", "probe"}, e.Data)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	a.http.Stop(stopCtx)
}

func TestStopReasonFor(t *testing.T) {
	assert.Equal(t, StopSIGINT, StopReasonFor(os.Interrupt))
	assert.Equal(t, StopSIGTERM, StopReasonFor(syscall.SIGTERM))
	assert.Equal(t, StopUnknown, StopReasonFor(syscall.SIGHUP))
}
