package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMultiLogger_WritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "debug", LogsDir: dir}, nil)
	require.NoError(t, err)

	ml.LogDispatchEvent("task_dequeued", zap.String("task_id", "t1"))
	ml.WriteTransferLine("t1", "aria2c", "[#1 SIZE:1MiB/2MiB(50%) CN:16 DL:1MiB ETA:1s]")
	ml.LogAppError("boom", zap.String("task_id", "t1"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)
	today := time.Now()

	dispatch, err := reader.ReadLogs(CategoryDispatch, today, 0)
	require.NoError(t, err)
	require.Len(t, dispatch, 1)
	assert.Equal(t, "task_dequeued", dispatch[0].Message)
	assert.Equal(t, "info", dispatch[0].Level)
	assert.Equal(t, "t1", dispatch[0].Fields["task_id"])
	assert.NotEmpty(t, dispatch[0].Timestamp)

	transfer, err := reader.ReadLogs(CategoryTransfer, today, 0)
	require.NoError(t, err)
	require.Len(t, transfer, 1)
	assert.Equal(t, "aria2c", transfer[0].Fields["tool"])

	errs, err := reader.ReadLogs(CategoryError, today, 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)
}

func TestMultiLogger_RollsOverAtMidnight(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{LogsDir: dir}, nil)
	require.NoError(t, err)
	defer ml.Close()

	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	ml.now = func() time.Time { return day }
	ml.LogDispatchEvent("before")

	day = day.Add(2 * time.Minute)
	ml.LogDispatchEvent("after")
	require.NoError(t, ml.Sync())

	_, err = os.Stat(filepath.Join(dir, "dispatch-20240301.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "dispatch-20240302.log"))
	assert.NoError(t, err)
}

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{}, nil)
	assert.Error(t, err)
}

func TestLogReader(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	content := `{"level":"info","ts":"2024-05-06T10:00:00.000Z","msg":"task_dequeued","task_id":"a"}
not json at all
{"level":"error","ts":"2024-05-06T10:00:01.000Z","msg":"task_failed","task_id":"b"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatch-20240506.log"), []byte(content), 0644))
	reader := NewLogReader(dir)

	t.Run("limit keeps the newest lines", func(t *testing.T) {
		entries, err := reader.ReadLogs(CategoryDispatch, date, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "not json at all", entries[0].Message)
		assert.Equal(t, "task_failed", entries[1].Message)
	})

	t.Run("search matches fields", func(t *testing.T) {
		entries, err := reader.SearchLogs(CategoryDispatch, date, "b", 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "task_failed", entries[0].Message)
	})

	t.Run("missing file is empty", func(t *testing.T) {
		entries, err := reader.ReadLogs(CategoryError, date, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := reader.ReadLogs(LogCategory("web"), date, 0)
		assert.Error(t, err)
	})
}
