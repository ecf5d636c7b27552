package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"backoffice-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackups struct {
	nextID  int64
	backups []models.Backup
}

func (m *memBackups) InsertBackup(ctx context.Context, b *models.Backup) error {
	m.nextID++
	b.ID = m.nextID
	b.CreatedAt = time.Now()
	m.backups = append(m.backups, *b)
	return nil
}

func (m *memBackups) ListBackups(ctx context.Context, backupType string) ([]models.Backup, error) {
	var out []models.Backup
	for _, b := range m.backups {
		if b.Type == backupType && b.Status == models.BackupStatusCompleted {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memBackups) DeleteBackup(ctx context.Context, id int64) error {
	for i, b := range m.backups {
		if b.ID == id {
			m.backups = append(m.backups[:i], m.backups[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeDumper struct {
	err error
}

func (d fakeDumper) Dump(ctx context.Context, path string) error {
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(path, []byte("-- dump\n"), 0o644)
}

func newTestRunner(t *testing.T, repo *memBackups, dumper Dumper, keep int) *Runner {
	t.Helper()
	r := NewRunner(repo, dumper, t.TempDir(), Retention{Daily: keep, Weekly: keep, Monthly: keep})
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}
	return r
}

func TestValidType(t *testing.T) {
	assert.True(t, ValidType("daily"))
	assert.True(t, ValidType("weekly"))
	assert.True(t, ValidType("monthly"))
	assert.False(t, ValidType("hourly"))
	assert.False(t, ValidType(""))
}

func TestRunRecordsBackup(t *testing.T) {
	repo := &memBackups{}
	r := newTestRunner(t, repo, fakeDumper{}, 3)

	b, err := r.Run(context.Background(), models.BackupDaily)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusCompleted, b.Status)
	assert.Equal(t, int64(len("-- dump\n")), b.SizeBytes)
	assert.Equal(t, "daily", filepath.Base(filepath.Dir(b.FilePath)))
	assert.FileExists(t, b.FilePath)
}

func TestRunRejectsUnknownType(t *testing.T) {
	r := newTestRunner(t, &memBackups{}, fakeDumper{}, 3)
	_, err := r.Run(context.Background(), "hourly")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestRunRecordsFailure(t *testing.T) {
	repo := &memBackups{}
	r := newTestRunner(t, repo, fakeDumper{err: errors.New("pg_dump: connection refused")}, 3)

	_, err := r.Run(context.Background(), models.BackupWeekly)
	require.Error(t, err)
	require.Len(t, repo.backups, 1)
	assert.Equal(t, models.BackupStatusFailed, repo.backups[0].Status)
}

func TestRunAppliesRetention(t *testing.T) {
	repo := &memBackups{}
	r := newTestRunner(t, repo, fakeDumper{}, 2)

	var paths []string
	for i := 0; i < 4; i++ {
		b, err := r.Run(context.Background(), models.BackupMonthly)
		require.NoError(t, err)
		paths = append(paths, b.FilePath)
	}

	kept, err := repo.ListBackups(context.Background(), models.BackupMonthly)
	require.NoError(t, err)
	assert.Len(t, kept, 2)

	assert.NoFileExists(t, paths[0])
	assert.NoFileExists(t, paths[1])
	assert.FileExists(t, paths[2])
	assert.FileExists(t, paths[3])
}
