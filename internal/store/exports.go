package store

import (
	"context"
	"fmt"

	"backoffice-service/internal/models"
)

// invoiceLockKey serializes invoice allocation across connections
const invoiceLockKey = 0x1A4A_0001

// CreateExport allocates the next invoice number from the export count and inserts the
// export in one transaction. The advisory lock keeps concurrent exports from reading the
// same count.
func (s *Store) CreateExport(ctx context.Context, export *models.Export, number func(seq int64) string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", invoiceLockKey); err != nil {
		return fmt.Errorf("failed to lock invoice sequence: %w", err)
	}

	var count int64
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM exports"); err != nil {
		return fmt.Errorf("failed to count exports: %w", err)
	}
	export.InvoiceNumber = number(count + 1)

	query := `
		INSERT INTO exports (client_id, data, invoice_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	row := tx.QueryRowxContext(ctx, query, export.ClientID, export.Data, export.InvoiceNumber)
	if err := row.Scan(&export.ID, &export.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert export: %w", translate(err))
	}

	return tx.Commit()
}

// ListExportsByClient retrieves a client's exports, newest first
func (s *Store) ListExportsByClient(ctx context.Context, clientID int64) ([]models.Export, error) {
	exports := []models.Export{}
	err := s.db.SelectContext(ctx, &exports,
		"SELECT * FROM exports WHERE client_id = $1 ORDER BY created_at DESC", clientID)
	return exports, err
}

