package store

import (
	"context"
	"fmt"
	"strings"

	"backoffice-service/internal/models"
)

const modelColumns = "id, name, price, discount, quantity, packages, created_at"

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern matches q anywhere in the column, with LIKE wildcards in q taken literally
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// ListModels lists a company's models, optionally filtered by a name substring
func (s *Store) ListModels(ctx context.Context, company, nameLike string) ([]models.Model, error) {
	table, err := quoteTable(company)
	if err != nil {
		return nil, err
	}

	items := []models.Model{}
	query := fmt.Sprintf("SELECT %s FROM %s", modelColumns, table)
	args := []interface{}{}
	if nameLike != "" {
		query += " WHERE name ILIKE $1"
		args = append(args, likePattern(nameLike))
	}
	query += " ORDER BY id"

	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// GetModel reads one model row
func (s *Store) GetModel(ctx context.Context, company string, id int64) (*models.Model, error) {
	table, err := quoteTable(company)
	if err != nil {
		return nil, err
	}

	var m models.Model
	err = s.db.GetContext(ctx, &m,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", modelColumns, table), id)
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// CreateModel inserts a model and fills its id and created_at
func (s *Store) CreateModel(ctx context.Context, company string, m *models.Model) error {
	table, err := quoteTable(company)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name, price, discount, quantity, packages)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, table)

	row := s.db.QueryRowxContext(ctx, query, m.Name, m.Price, m.Discount, m.Quantity, m.Packages)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return translate(err)
	}
	return nil
}

// UpdateModel overwrites a model's attributes
func (s *Store) UpdateModel(ctx context.Context, company string, m *models.Model) error {
	table, err := quoteTable(company)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET name = $1, price = $2, discount = $3, quantity = $4, packages = $5
		WHERE id = $6
		RETURNING created_at`, table)

	row := s.db.QueryRowxContext(ctx, query, m.Name, m.Price, m.Discount, m.Quantity, m.Packages, m.ID)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return translate(err)
	}
	return nil
}

// DeleteModel removes a model row
func (s *Store) DeleteModel(ctx context.Context, company string, id int64) error {
	table, err := quoteTable(company)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock lowers quantity and packages, clamping both at zero
func (s *Store) DecrementStock(ctx context.Context, company string, id int64, quantity, packages int) error {
	table, err := quoteTable(company)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET quantity = GREATEST(quantity - $1, 0), packages = GREATEST(packages - $2, 0)
		WHERE id = $3`, table)

	res, err := s.db.ExecContext(ctx, query, quantity, packages, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
