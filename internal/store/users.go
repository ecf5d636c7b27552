package store

import (
	"context"

	"backoffice-service/internal/models"
)

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = $1", username)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CreateUser inserts a user with an already hashed password
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	row := s.db.QueryRowxContext(ctx,
		"INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id, created_at",
		user.Username, user.Password)
	return translate(row.Scan(&user.ID, &user.CreatedAt))
}
