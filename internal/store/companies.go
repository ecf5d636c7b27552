package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"backoffice-service/internal/models"

	"github.com/lib/pq"
)

var tableIdent = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// quoteTable validates a normalized company table name and returns it quoted.
// Only names that already passed normalization reach the store; anything else is refused.
func quoteTable(name string) (string, error) {
	if !tableIdent.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return pq.QuoteIdentifier(name), nil
}

// CreateCompanyTable creates the product table and its metadata row in one transaction
func (s *Store) CreateCompanyTable(ctx context.Context, name string) (*models.Company, error) {
	table, err := quoteTable(name)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price NUMERIC(12,2) NOT NULL DEFAULT 0,
			discount NUMERIC(5,2) NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			packages INTEGER NOT NULL DEFAULT 0 CHECK (packages >= 0),
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`, table)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, translate(err))
	}

	var company models.Company
	err = tx.GetContext(ctx, &company,
		"INSERT INTO company_meta (name) VALUES ($1) RETURNING id, name, created_at", name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert company metadata: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &company, nil
}

// RenameCompanyTable renames the product table and its metadata row in one transaction
func (s *Store) RenameCompanyTable(ctx context.Context, oldName, newName string) (*models.Company, error) {
	oldTable, err := quoteTable(oldName)
	if err != nil {
		return nil, err
	}
	newTable, err := quoteTable(newName)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// a table created outside the registry has no metadata row yet; it gets one here
	var metaID int64
	err = tx.GetContext(ctx, &metaID,
		"SELECT id FROM company_meta WHERE name = $1 FOR UPDATE", oldName)
	hasMeta := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, translate(err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", oldTable, newTable)); err != nil {
		return nil, fmt.Errorf("failed to rename table %s: %w", oldName, translate(err))
	}

	var company models.Company
	if hasMeta {
		err = tx.GetContext(ctx, &company,
			"UPDATE company_meta SET name = $1 WHERE id = $2 RETURNING id, name, created_at", newName, metaID)
	} else {
		err = tx.GetContext(ctx, &company,
			"INSERT INTO company_meta (name) VALUES ($1) RETURNING id, name, created_at", newName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update company metadata: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &company, nil
}

// DropCompanyTable drops the product table and deletes its metadata row in one transaction
func (s *Store) DropCompanyTable(ctx context.Context, name string) error {
	table, err := quoteTable(name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var tableExists bool
	if err := tx.GetContext(ctx, &tableExists, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, name); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, translate(err))
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM company_meta WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete company metadata: %w", err)
	}
	deleted, _ := res.RowsAffected()
	if deleted == 0 && !tableExists {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListTables returns every base table in the current schema
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := s.db.SelectContext(ctx, &tables, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	return tables, err
}

// ListCompanyMeta returns all metadata rows
func (s *Store) ListCompanyMeta(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := s.db.SelectContext(ctx, &companies,
		"SELECT id, name, created_at FROM company_meta ORDER BY name")
	return companies, err
}

// CountModels counts rows in a company table
func (s *Store) CountModels(ctx context.Context, name string) (int, error) {
	table, err := quoteTable(name)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
		return 0, translate(err)
	}
	return n, nil
}
