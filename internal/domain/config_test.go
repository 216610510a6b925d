package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 6, config.Dispatcher.Workers)
	assert.True(t, config.Dispatcher.AutoStart)
	assert.Equal(t, 100*time.Millisecond, config.Progress.Throttle)
	assert.Equal(t, "aria2c", config.Accelerator.Binary)
	assert.Equal(t, 16, config.Accelerator.MaxConnectionPerServer)
	assert.Equal(t, 16, config.Accelerator.Split)
	assert.Equal(t, "1M", config.Accelerator.MinSplitSize)
	assert.Equal(t, 20, config.Accelerator.MaxTries)
	assert.Equal(t, "yt-dlp", config.Extractor.YTDLPBinary)
	assert.Equal(t, 30, config.Extractor.FragmentRetries)
	assert.Zero(t, config.Registry.TTL, "registry must not evict by default")
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
