package store

import (
	"context"

	"backoffice-service/internal/models"
)

// InsertLog appends an audit row
func (s *Store) InsertLog(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO logs (username, action, status, severity, ip, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return s.db.GetContext(ctx, &entry.ID, query,
		entry.Username, entry.Action, entry.Status, entry.Severity,
		entry.IP, entry.UserAgent, entry.Details, entry.CreatedAt)
}
