package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gorilla/websocket"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// wsMessage mirrors the server's websocket envelope
type wsMessage struct {
	Event string                `json:"event"`
	Data  *domain.ProgressEvent `json:"data,omitempty"`
}

// errDownloadFailed is returned by watch when the session ends in error
var errDownloadFailed = errors.New("download failed")

// watchSession streams a session's events until a terminal one arrives
func watchSession(ctx context.Context, c *apiClient, sessionID string, p *printer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	endpoint, err := c.wsURL(sessionID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event != "download_progress" || msg.Data == nil {
			continue
		}

		ev := *msg.Data
		if err := p.print(ev, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, describeEvent(sessionID, ev))
		}); err != nil {
			return err
		}

		if ev.IsTerminal() {
			if ev.Status == domain.ProgressError {
				return errDownloadFailed
			}
			return nil
		}
	}
}

// describeEvent renders one progress event as a status line
func describeEvent(sessionID string, ev domain.ProgressEvent) string {
	prefix := "[" + truncate(sessionID, 12) + "] "

	switch ev.Status {
	case domain.ProgressStarting:
		var details []string
		if ev.MediaKind != "" {
			details = append(details, string(ev.MediaKind))
		}
		if ev.IsOriginal {
			details = append(details, "original")
		}
		if ev.Backend != "" {
			details = append(details, string(ev.Backend))
		}
		line := prefix + "starting: " + ev.Title
		if len(details) > 0 {
			line += " (" + strings.Join(details, ", ") + ")"
		}
		return line
	case domain.ProgressDownloading:
		line := fmt.Sprintf("%s%5.1f%%", prefix, ev.Percentage)
		if ev.Total != "" {
			line += " of " + ev.Total
		}
		if ev.Speed != "" {
			line += " at " + ev.Speed
		}
		if ev.ETA != "" {
			line += " ETA " + ev.ETA
		}
		if ev.TotalFragments > 0 {
			line += fmt.Sprintf(" [%d/%d fragments]", ev.FragmentsDownloaded, ev.TotalFragments)
		}
		return line
	case domain.ProgressFinished:
		return prefix + "finished: " + ev.Filename
	case domain.ProgressError:
		line := prefix + "error"
		if ev.Kind != "" {
			line += " (" + string(ev.Kind) + ")"
		}
		line += ": " + ev.Message
		if ev.Hint != "" {
			line += "\n  hint: " + ev.Hint
		}
		return line
	case domain.ProgressNotFound:
		return prefix + "no such session"
	}
	return prefix + string(ev.Status)
}
