package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ProgressReporter normalizes, throttles and publishes the events of one task.
// Only downloading events are throttled; any other status is published
// immediately and restarts the throttle window.
type ProgressReporter struct {
	sessionID string
	taskID    string
	backend   domain.Backend

	store     domain.SessionStore
	publisher domain.Publisher
	clock     domain.Clock
	throttle  time.Duration

	mu          sync.Mutex
	lastEmit    time.Time
	emitted     bool
	lastPercent float64
}

// NewProgressReporter creates a reporter for task
func NewProgressReporter(
	task *domain.Task,
	store domain.SessionStore,
	publisher domain.Publisher,
	clock domain.Clock,
	throttle time.Duration,
) *ProgressReporter {
	if clock == nil {
		clock = time.Now
	}
	return &ProgressReporter{
		sessionID: task.SessionID,
		taskID:    task.ID,
		backend:   task.Backend,
		store:     store,
		publisher: publisher,
		clock:     clock,
		throttle:  throttle,
	}
}

// Emit publishes ev unless it falls inside the throttle window.
// It reports whether the event was published.
func (r *ProgressReporter) Emit(ev domain.ProgressEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	if ev.Throttled() {
		if r.emitted && now.Sub(r.lastEmit) < r.throttle {
			return false
		}
		if ev.Percentage < r.lastPercent {
			ev.Percentage = r.lastPercent
		}
		if ev.Percentage > domain.MaxInFlightPercent {
			ev.Percentage = domain.MaxInFlightPercent
		}
		r.lastPercent = ev.Percentage
	}
	r.lastEmit = now
	r.emitted = true

	ev.SessionID = r.sessionID
	ev.TaskID = r.taskID
	ev.Backend = r.backend
	ev.Timestamp = now

	r.store.Put(r.sessionID, ev)
	if r.publisher != nil {
		r.publisher.Publish(r.sessionID, ev)
	}
	return true
}

// Transfer publishes a progress hook payload of the embedded backend
func (r *ProgressReporter) Transfer(p domain.TransferProgress) bool {
	return r.Emit(TransferEvent(p))
}

// Accelerator publishes a parsed accelerator summary line
func (r *ProgressReporter) Accelerator(s domain.AcceleratorSnapshot) bool {
	return r.Emit(AcceleratorEvent(s))
}

// TransferEvent converts an embedded-backend hook payload into a downloading event
func TransferEvent(p domain.TransferProgress) domain.ProgressEvent {
	percent := 0.0
	if p.TotalBytes > 0 {
		percent = math.Min(domain.MaxInFlightPercent, float64(p.DownloadedBytes)/float64(p.TotalBytes)*100)
	}

	speed := "calculating..."
	if p.Speed > 0 {
		speed = FormatBytes(p.Speed) + "/s"
	}

	return domain.ProgressEvent{
		Status:              domain.ProgressDownloading,
		Percentage:          roundTenth(percent),
		DownloadedBytes:     p.DownloadedBytes,
		TotalBytes:          p.TotalBytes,
		Downloaded:          FormatBytes(float64(p.DownloadedBytes)),
		Total:               FormatBytes(float64(p.TotalBytes)),
		Speed:               speed,
		ETA:                 FormatETA(p.ETA),
		FragmentsDownloaded: p.FragmentIndex,
		TotalFragments:      p.FragmentCount,
	}
}

// AcceleratorEvent converts an accelerator snapshot into a downloading event
func AcceleratorEvent(s domain.AcceleratorSnapshot) domain.ProgressEvent {
	return domain.ProgressEvent{
		Status:          domain.ProgressDownloading,
		Percentage:      math.Min(domain.MaxInFlightPercent, s.Percent),
		DownloadedBytes: s.DownloadedBytes,
		TotalBytes:      s.TotalBytes,
		Downloaded:      FormatBytes(float64(s.DownloadedBytes)),
		Total:           FormatBytes(float64(s.TotalBytes)),
		Speed:           s.Speed,
		ETA:             s.ETA,
	}
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with one decimal in 1024 steps
func FormatBytes(n float64) string {
	if n == 0 {
		return "0 B"
	}
	for _, unit := range byteUnits {
		if n < 1024 {
			return fmt.Sprintf("%.1f %s", n, unit)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.1f PB", n)
}

// FormatETA renders seconds as Ns, XmYs or XhYm; zero or negative is "--"
func FormatETA(seconds float64) string {
	if seconds <= 0 {
		return "--"
	}
	s := int(seconds)
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", s)
	case seconds < 3600:
		return fmt.Sprintf("%dm%ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh%dm", s/3600, (s%3600)/60)
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
