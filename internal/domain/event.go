package domain

import "time"

// ProgressStatus tags a ProgressEvent
type ProgressStatus string

const (
	ProgressQueued      ProgressStatus = "queued"
	ProgressStarting    ProgressStatus = "starting"
	ProgressDownloading ProgressStatus = "downloading"
	ProgressFinished    ProgressStatus = "finished"
	ProgressError       ProgressStatus = "error"
	ProgressNotFound    ProgressStatus = "not_found"
)

// MaxInFlightPercent caps progress until the terminal event
const MaxInFlightPercent = 99.9

// ProgressEvent is a snapshot of a download job's state.
// Only the fields of the active status are populated.
type ProgressEvent struct {
	Status    ProgressStatus `json:"status"`
	SessionID string         `json:"session_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Backend   Backend        `json:"downloader,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// starting
	Title         string  `json:"title,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
	EstimatedSize int64   `json:"estimated_size,omitempty"`

	// downloading
	Percentage          float64 `json:"percentage"`
	DownloadedBytes     int64   `json:"downloaded_bytes,omitempty"`
	TotalBytes          int64   `json:"total_bytes,omitempty"`
	Downloaded          string  `json:"downloaded,omitempty"`
	Total               string  `json:"total,omitempty"`
	Speed               string  `json:"speed,omitempty"`
	ETA                 string  `json:"eta,omitempty"`
	FragmentsDownloaded int     `json:"fragments_downloaded,omitempty"`
	TotalFragments      int     `json:"total_fragments,omitempty"`

	// finished
	Filename  string    `json:"filename,omitempty"`
	FilePath  string    `json:"filepath,omitempty"`
	MediaKind MediaKind `json:"download_type,omitempty"`

	// starting and finished
	IsOriginal bool `json:"is_original"`

	// error
	Message string    `json:"message,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Hint    string    `json:"suggestion,omitempty"`
}

// IsTerminal reports whether no further events follow
func (e ProgressEvent) IsTerminal() bool {
	return e.Status == ProgressFinished || e.Status == ProgressError
}

// Throttled reports whether the event is subject to rate limiting
func (e ProgressEvent) Throttled() bool {
	return e.Status == ProgressDownloading
}

// QueuedEvent is published when a task enters the queue
func QueuedEvent() ProgressEvent {
	return ProgressEvent{Status: ProgressQueued}
}

// StartingEvent is published once metadata is known
func StartingEvent(info *MediaInfo, kind MediaKind, original bool) ProgressEvent {
	ev := ProgressEvent{
		Status:     ProgressStarting,
		MediaKind:  kind,
		IsOriginal: original,
	}
	if info != nil {
		ev.Title = info.Title
		ev.Duration = info.Duration
		ev.EstimatedSize = info.EstimatedSize()
	}
	return ev
}

// FinishedEvent is published when the file is in place
func FinishedEvent(path string) ProgressEvent {
	name := baseName(path)
	return ProgressEvent{
		Status:     ProgressFinished,
		Percentage: 100,
		Filename:   name,
		FilePath:   path,
		MediaKind:  MediaKindFromName(name),
		IsOriginal: IsOriginalName(name),
	}
}

// FailedEvent converts an error into a terminal event
func FailedEvent(err error) ProgressEvent {
	return ProgressEvent{
		Status:  ProgressError,
		Message: err.Error(),
		Kind:    KindOf(err),
		Hint:    HintOf(err),
	}
}

// NotFoundEvent answers status queries for unknown sessions
func NotFoundEvent(sessionID string) ProgressEvent {
	return ProgressEvent{Status: ProgressNotFound, SessionID: sessionID}
}
