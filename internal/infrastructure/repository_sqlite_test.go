package infrastructure

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteTaskRepository {
	t.Helper()
	repo, err := NewSQLiteTaskRepository(filepath.Join(t.TempDir(), "nested", "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newRepoTask(t *testing.T, session string, backend string) *domain.Task {
	t.Helper()
	req, err := domain.NewDownloadRequest(domain.SubmitInput{
		URL:       "https://example.com/v/" + session,
		MediaKind: "video",
		Backend:   backend,
		SessionID: session,
	})
	require.NoError(t, err)
	return domain.NewTask(req, domain.Selection{Backend: req.Backend, Mode: req.Mode()})
}

func TestSQLiteTaskRepository_CreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)

	task := newRepoTask(t, "s1", "embedded")
	require.NoError(t, repo.Create(task))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, found.ID)
	assert.Equal(t, "s1", found.SessionID)
	assert.Equal(t, domain.TaskQueued, found.Status)
	assert.Equal(t, domain.ModePassthrough, found.Mode)
	assert.Nil(t, found.Request, "the request is not persisted")
}

func TestSQLiteTaskRepository_FindByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByID("missing")
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestSQLiteTaskRepository_UpdateLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	task := newRepoTask(t, "s1", "embedded")
	require.NoError(t, repo.Create(task))

	task.MarkProcessing()
	require.NoError(t, repo.Update(task))
	task.MarkFailed(&domain.TransferError{Backend: domain.BackendEmbedded, Err: errors.New("HTTP Error 403")})
	require.NoError(t, repo.Update(task))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskFailed, found.Status)
	assert.Equal(t, domain.KindTransfer, found.ErrorKind)
	assert.Contains(t, found.ErrorMessage, "403")
	require.NotNil(t, found.StartedAt)
	require.NotNil(t, found.CompletedAt)
}

func TestSQLiteTaskRepository_FindAllAndSession(t *testing.T) {
	repo := setupTestRepo(t)

	first := newRepoTask(t, "s1", "embedded")
	require.NoError(t, repo.Create(first))
	time.Sleep(5 * time.Millisecond)
	second := newRepoTask(t, "s1", "accelerator")
	second.MarkCompleted("/d/file.mp4")
	require.NoError(t, repo.Create(second))
	require.NoError(t, repo.Create(newRepoTask(t, "s2", "embedded")))

	bySession, err := repo.FindBySession("s1")
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, second.ID, bySession[0].ID)

	completed, err := repo.FindAll(map[string]interface{}{"status": string(domain.TaskCompleted)}, 0)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, second.ID, completed[0].ID)

	limited, err := repo.FindAll(nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = repo.FindAll(map[string]interface{}{"1=1; drop table tasks; --": 1}, 0)
	assert.Error(t, err)
}

func TestSQLiteTaskRepository_GetStats(t *testing.T) {
	repo := setupTestRepo(t)

	statuses := []func(*domain.Task){
		func(tk *domain.Task) {},
		func(tk *domain.Task) { tk.MarkProcessing() },
		func(tk *domain.Task) { tk.MarkCompleted("/d/a.mp4") },
		func(tk *domain.Task) { tk.MarkCompleted("/d/b.mp4") },
		func(tk *domain.Task) { tk.MarkFailed(errors.New("boom")) },
		func(tk *domain.Task) { tk.MarkCancelled() },
	}
	for _, mark := range statuses {
		task := newRepoTask(t, "s", "embedded")
		mark(task)
		require.NoError(t, repo.Create(task))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Cancelled)
}
