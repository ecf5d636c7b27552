// Package servicetest provides in-memory implementations of the service repositories for tests.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
)

// MemStore is an in-memory stand-in for the Postgres store. It satisfies every
// repository interface the services depend on.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	System  []string
	Tables  map[string]map[int64]*models.Model
	Meta    map[string]models.Company
	Clients map[int64]*models.Client
	Exports []models.Export
	Users   map[string]*models.User

	FailDecrement map[int64]error
	FailExport    error
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		System:        []string{"clients", "company_meta", "exports", "logs", "users"},
		Tables:        make(map[string]map[int64]*models.Model),
		Meta:          make(map[string]models.Company),
		Clients:       make(map[int64]*models.Client),
		Users:         make(map[string]*models.User),
		FailDecrement: make(map[int64]error),
	}
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) CreateCompanyTable(ctx context.Context, name string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Meta[name]; ok {
		return nil, store.ErrDuplicate
	}
	if _, ok := m.Tables[name]; !ok {
		m.Tables[name] = make(map[int64]*models.Model)
	}
	c := models.Company{ID: m.id(), Name: name, CreatedAt: models.DisplayTime(time.Now())}
	m.Meta[name] = c
	return &c, nil
}

func (m *MemStore) RenameCompanyTable(ctx context.Context, oldName, newName string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, hasTable := m.Tables[oldName]
	if !hasTable {
		return nil, store.ErrTableNotFound
	}
	c, ok := m.Meta[oldName]
	if !ok {
		c = models.Company{ID: m.id(), CreatedAt: models.DisplayTime(time.Now())}
	}
	if _, exists := m.Tables[newName]; exists {
		return nil, store.ErrTableExists
	}
	m.Tables[newName] = rows
	delete(m.Tables, oldName)
	delete(m.Meta, oldName)
	c.Name = newName
	m.Meta[newName] = c
	return &c, nil
}

func (m *MemStore) DropCompanyTable(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hasTable := m.Tables[name]
	_, hasMeta := m.Meta[name]
	if !hasTable && !hasMeta {
		return store.ErrNotFound
	}
	delete(m.Tables, name)
	delete(m.Meta, name)
	return nil
}

func (m *MemStore) ListTables(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tables := append([]string{}, m.System...)
	for name := range m.Tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, nil
}

func (m *MemStore) ListCompanyMeta(ctx context.Context) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Company
	for _, c := range m.Meta {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) CountModels(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.Tables[name]
	if !ok {
		return 0, store.ErrTableNotFound
	}
	return len(rows), nil
}

func (m *MemStore) table(name string) (map[int64]*models.Model, error) {
	rows, ok := m.Tables[name]
	if !ok {
		return nil, store.ErrTableNotFound
	}
	return rows, nil
}

func (m *MemStore) ListModels(ctx context.Context, company, nameLike string) ([]models.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(company)
	if err != nil {
		return nil, err
	}
	out := []models.Model{}
	for _, row := range rows {
		if nameLike == "" || strings.Contains(strings.ToLower(row.Name), strings.ToLower(nameLike)) {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) GetModel(ctx context.Context, company string, id int64) (*models.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(company)
	if err != nil {
		return nil, err
	}
	row, ok := rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MemStore) CreateModel(ctx context.Context, company string, model *models.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(company)
	if err != nil {
		return err
	}
	model.ID = m.id()
	model.CreatedAt = models.DisplayTime(time.Now())
	cp := *model
	rows[model.ID] = &cp
	return nil
}

func (m *MemStore) UpdateModel(ctx context.Context, company string, model *models.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(company)
	if err != nil {
		return err
	}
	row, ok := rows[model.ID]
	if !ok {
		return store.ErrNotFound
	}
	model.CreatedAt = row.CreatedAt
	cp := *model
	rows[model.ID] = &cp
	return nil
}

func (m *MemStore) DeleteModel(ctx context.Context, company string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(company)
	if err != nil {
		return err
	}
	if _, ok := rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func (m *MemStore) DecrementStock(ctx context.Context, company string, id int64, quantity, packages int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailDecrement[id]; err != nil {
		return err
	}
	rows, err := m.table(company)
	if err != nil {
		return err
	}
	row, ok := rows[id]
	if !ok {
		return store.ErrNotFound
	}
	row.Quantity = clamp(row.Quantity - quantity)
	row.Packages = clamp(row.Packages - packages)
	return nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (m *MemStore) CreateClient(ctx context.Context, client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.Clients {
		if c.Name == client.Name {
			return store.ErrDuplicate
		}
	}
	client.ID = m.id()
	client.CreatedAt = time.Now()
	cp := *client
	m.Clients[client.ID] = &cp
	return nil
}

func (m *MemStore) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.Clients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemStore) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.Clients {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) SearchClients(ctx context.Context, q string) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Client{}
	for _, c := range m.Clients {
		if q == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) UpdateClient(ctx context.Context, client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Clients[client.ID]
	if !ok {
		return store.ErrNotFound
	}
	for _, c := range m.Clients {
		if c.ID != client.ID && c.Name == client.Name {
			return store.ErrDuplicate
		}
	}
	client.CreatedAt = existing.CreatedAt
	cp := *client
	m.Clients[client.ID] = &cp
	return nil
}

func (m *MemStore) DeleteClient(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Clients[id]; !ok {
		return store.ErrNotFound
	}
	for _, e := range m.Exports {
		if e.ClientID == id {
			return store.ErrReferenced
		}
	}
	delete(m.Clients, id)
	return nil
}

func (m *MemStore) ListExportsByClient(ctx context.Context, clientID int64) ([]models.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Export{}
	for i := len(m.Exports) - 1; i >= 0; i-- {
		if m.Exports[i].ClientID == clientID {
			out = append(out, m.Exports[i])
		}
	}
	return out, nil
}

func (m *MemStore) CreateExport(ctx context.Context, export *models.Export, number func(seq int64) string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailExport != nil {
		return m.FailExport
	}
	export.InvoiceNumber = number(int64(len(m.Exports)) + 1)
	for _, e := range m.Exports {
		if e.InvoiceNumber == export.InvoiceNumber {
			return store.ErrDuplicate
		}
	}
	export.ID = m.id()
	export.CreatedAt = time.Now()
	m.Exports = append(m.Exports, *export)
	return nil
}

func (m *MemStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.Users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Users[user.Username]; ok {
		return store.ErrDuplicate
	}
	user.ID = m.id()
	user.CreatedAt = time.Now()
	cp := *user
	m.Users[user.Username] = &cp
	return nil
}

// Sessions is an in-memory session store
type Sessions struct {
	mu       sync.Mutex
	Sessions map[string]models.Session
}

func NewSessions() *Sessions {
	return &Sessions{Sessions: make(map[string]models.Session)}
}

func (m *Sessions) SaveSession(ctx context.Context, id string, sess *models.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[id] = *sess
	return nil
}

func (m *Sessions) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *Sessions) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, id)
	return nil
}

// Locker is an in-process lock table
type Locker struct {
	mu    sync.Mutex
	Held  map[string]string
	Taken []string
}

func NewLocker() *Locker {
	return &Locker{Held: make(map[string]string)}
}

func (l *Locker) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.Held[key]; ok {
		return false, nil
	}
	l.Held[key] = token
	l.Taken = append(l.Taken, key)
	return true, nil
}

func (l *Locker) ReleaseLock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Held[key] == token {
		delete(l.Held, key)
	}
	return nil
}

// Notifier records notifications; Err makes every call fail
type Notifier struct {
	mu     sync.Mutex
	Status string
	Err    error
	Sent   []models.ExportNotification
}

func (n *Notifier) NotifyExport(ctx context.Context, note *models.ExportNotification) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return "", n.Err
	}
	n.Sent = append(n.Sent, *note)
	if n.Status == "" {
		return "sent", nil
	}
	return n.Status, nil
}

// ErrBoom is a generic injected failure
var ErrBoom = errors.New("boom")
