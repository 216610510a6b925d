package domain

import (
	"context"
	"sync/atomic"
)

// Extractor resolves a URL into metadata and candidate formats
type Extractor interface {
	// Extract returns media metadata; failures are *ExtractionError
	Extract(ctx context.Context, url string) (*MediaInfo, error)

	// Name identifies the extractor in logs and diagnostics
	Name() string
}

// ProbeResult is the outcome of a capability liveness probe
type ProbeResult struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Message   string `json:"message"`
}

// CapabilityProbe checks that an external executable is usable
type CapabilityProbe interface {
	Probe(ctx context.Context) ProbeResult
}

// AcceleratorJob is a direct transfer handed to the accelerator
type AcceleratorJob struct {
	TaskID    string
	URL       string
	Dir       string
	Filename  string
	UserAgent string
}

// AcceleratorSnapshot is one parsed summary line of accelerator output
type AcceleratorSnapshot struct {
	DownloadedBytes int64
	TotalBytes      int64
	Percent         float64
	Speed           string
	ETA             string
}

// Accelerator runs a segmented transfer of one resolved URL.
// The transfer honours the cancel flag between output lines.
type Accelerator interface {
	Download(ctx context.Context, job AcceleratorJob, cancel *CancelFlag, onProgress func(AcceleratorSnapshot)) (string, error)
}

// TransferProgress is a progress hook payload from the embedded backend
type TransferProgress struct {
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64 // bytes per second
	ETA             float64 // seconds
	FragmentIndex   int
	FragmentCount   int
	Filename        string
}

// FetchOptions tunes one embedded fetch
type FetchOptions struct {
	TaskID    string
	Dir       string
	UserAgent string
	// UseAccelerator hands the byte transfer to the accelerator as a private helper.
	// Progress hooks are not produced in that case.
	UseAccelerator bool
}

// EmbeddedFetcher resolves and retrieves a media stream in one step.
// A started fetch runs to completion; there is no cancellation hook.
type EmbeddedFetcher interface {
	Fetch(req *DownloadRequest, opts FetchOptions, onProgress func(TransferProgress)) (string, error)
}

// CancelFlag is a cooperative cancellation flag polled by cancellable transfers
type CancelFlag struct {
	cancelled atomic.Bool
}

// Cancel requests cancellation
func (f *CancelFlag) Cancel() {
	f.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested
func (f *CancelFlag) Cancelled() bool {
	return f != nil && f.cancelled.Load()
}
