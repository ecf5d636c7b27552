package store

import (
	"context"

	"backoffice-service/internal/models"
)

// InsertBackup records a dump
func (s *Store) InsertBackup(ctx context.Context, b *models.Backup) error {
	query := `
		INSERT INTO backups (type, file_path, size_bytes, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query, b.Type, b.FilePath, b.SizeBytes, b.Status)
	return row.Scan(&b.ID, &b.CreatedAt)
}

// ListBackups lists completed backups of one type, newest first
func (s *Store) ListBackups(ctx context.Context, backupType string) ([]models.Backup, error) {
	backups := []models.Backup{}
	err := s.db.SelectContext(ctx, &backups,
		"SELECT * FROM backups WHERE type = $1 AND status = $2 ORDER BY created_at DESC, id DESC",
		backupType, models.BackupStatusCompleted)
	return backups, err
}

// DeleteBackup removes a backup row
func (s *Store) DeleteBackup(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM backups WHERE id = $1", id)
	return err
}
