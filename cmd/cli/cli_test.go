package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

func TestAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/tasks/stats":
			json.NewEncoder(w).Encode(domain.TaskStats{Total: 3, Completed: 2})
		case "/api/v1/downloads":
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["url"] == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"url: missing url"}`))
				return
			}
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]interface{}{"accepted": true, "session_id": body["session_id"]})
		case "/api/v1/tasks":
			w.Write([]byte(r.URL.RawQuery))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("404 page not found"))
		}
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL + "/")

	t.Run("get", func(t *testing.T) {
		var stats domain.TaskStats
		require.NoError(t, c.get("/api/v1/tasks/stats", nil, &stats))
		assert.Equal(t, int64(3), stats.Total)
	})

	t.Run("post", func(t *testing.T) {
		var ack struct {
			Accepted  bool   `json:"accepted"`
			SessionID string `json:"session_id"`
		}
		require.NoError(t, c.post("/api/v1/downloads", map[string]string{"url": "https://e.com/v", "session_id": "s1"}, &ack))
		assert.True(t, ack.Accepted)
		assert.Equal(t, "s1", ack.SessionID)
	})

	t.Run("error payload", func(t *testing.T) {
		err := c.post("/api/v1/downloads", map[string]string{"url": ""}, nil)
		var apiErr *apiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, "url: missing url", apiErr.Message)
	})

	t.Run("plain error body", func(t *testing.T) {
		err := c.get("/nope", nil, nil)
		var apiErr *apiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "404 page not found", apiErr.Message)
	})
}

func TestAPIClient_WSURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/v1/sessions/s1/ws"},
		{"https://media.example.com/", "wss://media.example.com/api/v1/sessions/s1/ws"},
		{"http://host/prefix", "ws://host/prefix/api/v1/sessions/s1/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := newAPIClient(tt.base).wsURL("s1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter(t *testing.T) {
	stats := domain.TaskStats{Total: 2, Failed: 1}
	table := func(w *tabwriter.Writer) {
		w.Write([]byte("Total:\t2\n"))
	}

	tests := []struct {
		format string
		want   string
	}{
		{outputTable, "Total:  2\n"},
		{outputJSON, "\"failed\": 1"},
		{outputYAML, "failed: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			p := &printer{format: tt.format, out: &buf}

			require.NoError(t, p.print(stats, table))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	assert.True(t, validOutput("yaml"))
	assert.False(t, validOutput("xml"))
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{10 * 1024 * 1024, "10.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.in))
	}
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.ProgressEvent
		want string
	}{
		{
			name: "queued",
			ev:   domain.QueuedEvent(),
			want: "[s1] queued",
		},
		{
			name: "starting",
			ev:   domain.ProgressEvent{Status: domain.ProgressStarting, Title: "clip", MediaKind: domain.MediaVideo, IsOriginal: true},
			want: "[s1] starting: clip (video, original)",
		},
		{
			name: "downloading",
			ev: domain.ProgressEvent{
				Status: domain.ProgressDownloading, Percentage: 45.3,
				Total: "10.0MiB", Speed: "2.0MiB/s", ETA: "5s",
			},
			want: "[s1]  45.3% of 10.0MiB at 2.0MiB/s ETA 5s",
		},
		{
			name: "finished",
			ev:   domain.FinishedEvent("/data/clip.mp4"),
			want: "[s1] finished: clip.mp4",
		},
		{
			name: "error with hint",
			ev:   domain.ProgressEvent{Status: domain.ProgressError, Kind: domain.KindPostProcess, Message: "ffmpeg failed", Hint: "retry"},
			want: "[s1] error (post_process): ffmpeg failed\n  hint: retry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeEvent("s1", tt.ev))
		})
	}
}

func newWatchServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions/s1/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWatchSession(t *testing.T) {
	srv := newWatchServer(t,
		`{"event":"connected"}`,
		`{"event":"download_progress","data":{"status":"downloading","percentage":50,"timestamp":"2024-01-01T00:00:00Z"}}`,
		`{"event":"download_progress","data":{"status":"finished","filename":"clip.mp4","percentage":100,"timestamp":"2024-01-01T00:00:01Z"}}`,
	)

	var buf bytes.Buffer
	err := watchSession(context.Background(), newAPIClient(srv.URL), "s1", &printer{format: outputTable, out: &buf})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[s1]  50.0%", lines[0])
	assert.Equal(t, "[s1] finished: clip.mp4", lines[1])
}

func TestWatchSession_Error(t *testing.T) {
	srv := newWatchServer(t,
		`{"event":"download_progress","data":{"status":"error","message":"boom","kind":"transfer","timestamp":"2024-01-01T00:00:00Z"}}`,
	)

	var buf bytes.Buffer
	err := watchSession(context.Background(), newAPIClient(srv.URL), "s1", &printer{format: outputJSON, out: &buf})

	assert.ErrorIs(t, err, errDownloadFailed)
	assert.Contains(t, buf.String(), `"message": "boom"`)
}
