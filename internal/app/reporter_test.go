package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

func newTestReporter(clock *fakeClock) (*ProgressReporter, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	task := &domain.Task{ID: "t1", SessionID: "s1", Backend: domain.BackendEmbedded}
	return NewProgressReporter(task, store, pub, clock.Now, 100*time.Millisecond), store, pub
}

func downloading(pct float64) domain.ProgressEvent {
	return domain.ProgressEvent{Status: domain.ProgressDownloading, Percentage: pct}
}

func TestProgressReporter_Throttle(t *testing.T) {
	clock := newFakeClock()
	reporter, _, pub := newTestReporter(clock)

	published := 0
	for i, offset := range []time.Duration{0, 30, 70, 120} {
		clock.Set(offset * time.Millisecond)
		if reporter.Emit(downloading(float64(i * 10))) {
			published++
		}
	}

	assert.Equal(t, 2, published)
	require.Len(t, pub.all(), 2)
	assert.Equal(t, 0.0, pub.all()[0].Percentage)
	assert.Equal(t, 30.0, pub.all()[1].Percentage)
}

func TestProgressReporter_NonDownloadingBypassesAndResets(t *testing.T) {
	clock := newFakeClock()
	reporter, _, pub := newTestReporter(clock)

	clock.Set(0)
	assert.True(t, reporter.Emit(downloading(5)))

	clock.Set(30 * time.Millisecond)
	assert.False(t, reporter.Emit(downloading(6)))

	clock.Set(40 * time.Millisecond)
	assert.True(t, reporter.Emit(domain.ProgressEvent{Status: domain.ProgressStarting}))

	// window restarts at 40ms
	clock.Set(120 * time.Millisecond)
	assert.False(t, reporter.Emit(downloading(7)))

	clock.Set(140 * time.Millisecond)
	assert.True(t, reporter.Emit(downloading(8)))

	assert.Equal(t, []domain.ProgressStatus{
		domain.ProgressDownloading, domain.ProgressStarting, domain.ProgressDownloading,
	}, pub.statuses())
}

func TestProgressReporter_MonotonicAndCapped(t *testing.T) {
	clock := newFakeClock()
	reporter, store, pub := newTestReporter(clock)

	steps := []float64{10, 40, 25, 100}
	for i, pct := range steps {
		clock.Set(time.Duration(i) * time.Second)
		reporter.Emit(downloading(pct))
	}

	var got []float64
	for _, ev := range pub.all() {
		got = append(got, ev.Percentage)
	}
	assert.Equal(t, []float64{10, 40, 40, 99.9}, got)

	clock.Set(10 * time.Second)
	reporter.Emit(domain.FinishedEvent("/d/clip.mp4"))

	last, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, domain.ProgressFinished, last.Status)
	assert.Equal(t, 100.0, last.Percentage)
}

func TestProgressReporter_Stamps(t *testing.T) {
	clock := newFakeClock()
	reporter, store, _ := newTestReporter(clock)

	reporter.Emit(domain.QueuedEvent())

	ev, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "t1", ev.TaskID)
	assert.Equal(t, domain.BackendEmbedded, ev.Backend)
	assert.Equal(t, clock.Now(), ev.Timestamp)
}

func TestTransferEvent(t *testing.T) {
	ev := TransferEvent(domain.TransferProgress{
		DownloadedBytes: 512 * 1024,
		TotalBytes:      3 * 1024 * 1024,
		Speed:           1536,
		ETA:             125,
		FragmentIndex:   3,
		FragmentCount:   10,
	})

	assert.Equal(t, domain.ProgressDownloading, ev.Status)
	assert.Equal(t, 16.7, ev.Percentage)
	assert.Equal(t, "512.0 KB", ev.Downloaded)
	assert.Equal(t, "3.0 MB", ev.Total)
	assert.Equal(t, "1.5 KB/s", ev.Speed)
	assert.Equal(t, "2m5s", ev.ETA)
	assert.Equal(t, 3, ev.FragmentsDownloaded)
	assert.Equal(t, 10, ev.TotalFragments)

	ev = TransferEvent(domain.TransferProgress{DownloadedBytes: 10})
	assert.Equal(t, 0.0, ev.Percentage)
	assert.Equal(t, "calculating...", ev.Speed)
	assert.Equal(t, "--", ev.ETA)

	ev = TransferEvent(domain.TransferProgress{DownloadedBytes: 100, TotalBytes: 100})
	assert.Equal(t, 99.9, ev.Percentage)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0, "0 B"},
		{512, "512.0 B"},
		{1024, "1.0 KB"},
		{1572864, "1.5 MB"},
		{1 << 40, "1.0 TB"},
		{1 << 50, "1.0 PB"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatBytes(tt.in))
		})
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0, "--"},
		{45, "45s"},
		{60, "1m0s"},
		{3599, "59m59s"},
		{3720, "1h2m"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatETA(tt.in))
		})
	}
}
