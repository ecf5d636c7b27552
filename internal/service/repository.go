package service

import (
	"context"
	"time"

	"backoffice-service/internal/models"
)

// CompanyRepository is the storage the schema registry needs
type CompanyRepository interface {
	CreateCompanyTable(ctx context.Context, name string) (*models.Company, error)
	RenameCompanyTable(ctx context.Context, oldName, newName string) (*models.Company, error)
	DropCompanyTable(ctx context.Context, name string) error
	ListTables(ctx context.Context) ([]string, error)
	ListCompanyMeta(ctx context.Context) ([]models.Company, error)
	CountModels(ctx context.Context, name string) (int, error)
}

// StockRepository is the storage behind a company's models
type StockRepository interface {
	ListModels(ctx context.Context, company, nameLike string) ([]models.Model, error)
	GetModel(ctx context.Context, company string, id int64) (*models.Model, error)
	CreateModel(ctx context.Context, company string, m *models.Model) error
	UpdateModel(ctx context.Context, company string, m *models.Model) error
	DeleteModel(ctx context.Context, company string, id int64) error
	DecrementStock(ctx context.Context, company string, id int64, quantity, packages int) error
}

// ClientRepository is the storage behind the client directory
type ClientRepository interface {
	CreateClient(ctx context.Context, client *models.Client) error
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	GetClientByName(ctx context.Context, name string) (*models.Client, error)
	SearchClients(ctx context.Context, q string) ([]models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id int64) error
	ListExportsByClient(ctx context.Context, clientID int64) ([]models.Export, error)
}

// ExportRepository persists exports; number is called with the allocated sequence
type ExportRepository interface {
	CreateExport(ctx context.Context, export *models.Export, number func(seq int64) string) error
}

// UserRepository is the storage behind staff accounts
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// SessionStore keeps server-side session state
type SessionStore interface {
	SaveSession(ctx context.Context, id string, sess *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Locker is a best-effort distributed mutex
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Notifier tells a client their invoice is ready. The returned status is "sent" or "queued".
type Notifier interface {
	NotifyExport(ctx context.Context, n *models.ExportNotification) (string, error)
}
