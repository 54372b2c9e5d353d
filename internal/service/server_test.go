package service

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"aquawatch/internal/config"
)

func startServer(t *testing.T, cfg config.HTTPConfig, h http.Handler, logger *zap.Logger) (*Server, string, <-chan error) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(cfg, h, logger)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()
	return srv, "http://" + l.Addr().String(), done
}

func TestServer_AppliesConfiguredTimeouts(t *testing.T) {
	srv := NewServer(config.HTTPConfig{
		Addr:         ":0",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  time.Minute,
	}, http.NotFoundHandler(), zap.NewNop())

	assert.Equal(t, 3*time.Second, srv.httpServer.ReadTimeout)
	assert.Equal(t, 40*time.Second, srv.httpServer.WriteTimeout)
	assert.Equal(t, time.Minute, srv.httpServer.IdleTimeout)
	assert.Equal(t, 5*time.Second, srv.httpServer.ReadHeaderTimeout)
}

func TestServer_ServeAndStop(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv, url, done := startServer(t, config.HTTPConfig{ShutdownTimeout: time.Second}, h, zap.New(core))

	resp, err := http.Get(url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(context.Background()))
	assert.True(t, errors.Is(<-done, http.ErrServerClosed))

	stopping := logs.FilterMessage("Stopping aquawatch console API").All()
	require.Len(t, stopping, 1)
	assert.Equal(t, time.Second, stopping[0].ContextMap()["timeout"])
}

func TestServer_StopGivesUpAfterShutdownTimeout(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
	})
	srv, url, done := startServer(t, config.HTTPConfig{ShutdownTimeout: 50 * time.Millisecond}, h, zap.NewNop())

	reqErr := make(chan error, 1)
	go func() {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
		}
		reqErr <- err
	}()
	<-started

	begin := time.Now()
	err := srv.Stop(context.Background())
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.True(t, errors.Is(<-done, http.ErrServerClosed))
	// connection was dropped rather than answered
	assert.Error(t, <-reqErr)
}
