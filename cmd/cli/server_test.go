package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers /health once up and /ready once readyAfter polls of
// /ready have been made since it came up
type fakeServer struct {
	up         atomic.Bool
	readyPolls atomic.Int32
	readyAfter int32
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !f.up.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	switch r.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
	case "/ready":
		if f.readyPolls.Add(1) > f.readyAfter {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestLauncher(t *testing.T, fake *fakeServer, configPath string) (*serverLauncher, *bytes.Buffer, *[][]string) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	var starts [][]string
	l := newServerLauncher(srv.URL, configPath)
	l.log = &logs
	l.timeout = 500 * time.Millisecond
	l.interval = time.Millisecond
	l.start = func(args ...string) error {
		starts = append(starts, args)
		fake.up.Store(true)
		return nil
	}
	return l, &logs, &starts
}

func TestServerLauncher_Ensure(t *testing.T) {
	t.Run("already ready", func(t *testing.T) {
		fake := &fakeServer{}
		fake.up.Store(true)
		l, logs, starts := newTestLauncher(t, fake, "")

		require.NoError(t, l.ensure())
		assert.Empty(t, *starts)
		assert.Empty(t, logs.String())
	})

	t.Run("starts server with config", func(t *testing.T) {
		fake := &fakeServer{readyAfter: 2}
		l, logs, starts := newTestLauncher(t, fake, "conf/app.yaml")

		require.NoError(t, l.ensure())

		abs, err := filepath.Abs("conf/app.yaml")
		require.NoError(t, err)
		require.Len(t, *starts, 1)
		assert.Equal(t, []string{"-config", abs}, (*starts)[0])
		assert.Contains(t, logs.String(), "Server not running, starting...")
		assert.Contains(t, logs.String(), "Server ready")
	})

	t.Run("starts server without config", func(t *testing.T) {
		fake := &fakeServer{}
		l, _, starts := newTestLauncher(t, fake, "")

		require.NoError(t, l.ensure())
		require.Len(t, *starts, 1)
		assert.Empty(t, (*starts)[0])
	})

	t.Run("waits for dispatcher of a live server", func(t *testing.T) {
		fake := &fakeServer{readyAfter: 3}
		fake.up.Store(true)
		l, logs, starts := newTestLauncher(t, fake, "")

		require.NoError(t, l.ensure())
		assert.Empty(t, *starts)
		assert.Contains(t, logs.String(), "waiting for the dispatcher")
	})

	t.Run("never ready", func(t *testing.T) {
		fake := &fakeServer{readyAfter: 1 << 30}
		l, _, _ := newTestLauncher(t, fake, "")

		err := l.ensure()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not become ready")
	})

	t.Run("spawn failure", func(t *testing.T) {
		fake := &fakeServer{}
		l, _, _ := newTestLauncher(t, fake, "")
		l.start = func(args ...string) error { return errors.New("binary not found") }

		err := l.ensure()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start server: binary not found")
	})
}
