package store

import (
	"context"

	"backoffice-service/internal/models"
)

// CreateClient inserts a client
func (s *Store) CreateClient(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (name, email)
		VALUES ($1, $2)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query, client.Name, client.Email)
	return translate(row.Scan(&client.ID, &client.CreatedAt))
}

// GetClientByID retrieves a client by ID
func (s *Store) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	err := s.db.GetContext(ctx, &client, "SELECT * FROM clients WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

// GetClientByName retrieves a client by its unique name
func (s *Store) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	var client models.Client
	err := s.db.GetContext(ctx, &client, "SELECT * FROM clients WHERE name = $1", name)
	if err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

// SearchClients lists clients whose name contains q; an empty q lists everyone
func (s *Store) SearchClients(ctx context.Context, q string) ([]models.Client, error) {
	clients := []models.Client{}
	var err error
	if q == "" {
		err = s.db.SelectContext(ctx, &clients, "SELECT * FROM clients ORDER BY name")
	} else {
		err = s.db.SelectContext(ctx, &clients,
			"SELECT * FROM clients WHERE name ILIKE $1 ORDER BY name", likePattern(q))
	}
	return clients, err
}

// UpdateClient updates name and email
func (s *Store) UpdateClient(ctx context.Context, client *models.Client) error {
	row := s.db.QueryRowxContext(ctx,
		"UPDATE clients SET name = $1, email = $2 WHERE id = $3 RETURNING created_at",
		client.Name, client.Email, client.ID)
	return translate(row.Scan(&client.CreatedAt))
}

// DeleteClient removes a client; clients with exports are refused by the foreign key
func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
