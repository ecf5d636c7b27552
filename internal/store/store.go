package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrReferenced    = errors.New("record is referenced")
	ErrInvalidTable  = errors.New("invalid table identifier")
)

// Postgres error codes the store translates
const (
	codeUniqueViolation = "23505"
	codeFKViolation     = "23503"
	codeUndefinedTable  = "42P01"
	codeDuplicateTable  = "42P07"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS company_meta (
		id SERIAL PRIMARY KEY,
		name VARCHAR(63) UNIQUE NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS exports (
		id SERIAL PRIMARY KEY,
		client_id INTEGER NOT NULL REFERENCES clients(id),
		data JSONB NOT NULL,
		invoice_number VARCHAR(32) UNIQUE NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(50),
		action VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		severity SMALLINT NOT NULL,
		ip VARCHAR(64),
		user_agent TEXT,
		details TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS backups (
		id SERIAL PRIMARY KEY,
		type VARCHAR(10) NOT NULL,
		file_path TEXT NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exports_client_id ON exports(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_backups_type ON backups(type, created_at)`,
}

// Migrate creates the fixed system tables
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// translate maps driver errors onto the store's sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Message)
		case codeFKViolation:
			return fmt.Errorf("%w: %s", ErrReferenced, pqErr.Message)
		case codeUndefinedTable:
			return fmt.Errorf("%w: %s", ErrTableNotFound, pqErr.Message)
		case codeDuplicateTable:
			return fmt.Errorf("%w: %s", ErrTableExists, pqErr.Message)
		}
	}
	return err
}
