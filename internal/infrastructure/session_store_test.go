package infrastructure

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

func TestSessionRegistry_PutGet(t *testing.T) {
	r := NewSessionRegistry(domain.RegistryConfig{}, nil, nil)

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Put("s1", domain.QueuedEvent())
	r.Put("s1", domain.ProgressEvent{Status: domain.ProgressDownloading, Percentage: 42})

	ev, ok := r.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 42.0, ev.Percentage)
	assert.Equal(t, 1, r.Len())

	snap := r.Snapshot()
	snap["s2"] = domain.QueuedEvent()
	assert.Equal(t, 1, r.Len())

	r.Delete("s1")
	assert.Equal(t, 0, r.Len())
}

func TestSessionRegistry_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	r := NewSessionRegistry(domain.RegistryConfig{TTL: time.Minute}, clock, nil)

	r.Put("old-finished", domain.FinishedEvent("/data/a.mp4"))
	r.Put("old-running", domain.ProgressEvent{Status: domain.ProgressDownloading})
	now = now.Add(2 * time.Minute)
	r.Put("fresh-finished", domain.FinishedEvent("/data/b.mp4"))

	assert.Equal(t, 1, r.Sweep())

	_, ok := r.Get("old-finished")
	assert.False(t, ok)
	_, ok = r.Get("old-running")
	assert.True(t, ok)
	_, ok = r.Get("fresh-finished")
	assert.True(t, ok)
}

func TestSessionRegistry_SweepDisabled(t *testing.T) {
	r := NewSessionRegistry(domain.RegistryConfig{}, nil, nil)
	r.Put("s1", domain.FinishedEvent("/data/a.mp4"))

	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_Concurrent(t *testing.T) {
	r := NewSessionRegistry(domain.RegistryConfig{}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Put("shared", domain.ProgressEvent{Status: domain.ProgressDownloading, Percentage: float64(j)})
				r.Get("shared")
				r.Len()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
}

func TestEventBusPublisher(t *testing.T) {
	pub := NewEventBusPublisher(nil)
	assert.False(t, pub.HasSubscribers())

	var got []string
	require.NoError(t, pub.Subscribe(func(sessionID string, ev domain.ProgressEvent) {
		got = append(got, sessionID+":"+string(ev.Status))
	}))

	pub.Publish("s1", domain.QueuedEvent())
	pub.Publish("s2", domain.FinishedEvent("/data/x.mp4"))

	assert.True(t, pub.HasSubscribers())
	assert.Equal(t, []string{"s1:queued", "s2:finished"}, got)
}
