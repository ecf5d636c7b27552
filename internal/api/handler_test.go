package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"backoffice-service/internal/audit"
	"backoffice-service/internal/backup"
	"backoffice-service/internal/invoice"
	"backoffice-service/internal/models"
	"backoffice-service/internal/service"
	"backoffice-service/internal/service/servicetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLinkSecret = "test-link-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type memLogs struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (m *memLogs) InsertLog(ctx context.Context, entry *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memLogs) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action+":"+e.Status)
	}
	return out
}

type fakeBackups struct {
	dir string
}

func (f *fakeBackups) Run(ctx context.Context, backupType string) (*models.Backup, error) {
	if !backup.ValidType(backupType) {
		return nil, backup.ErrInvalidType
	}
	path := filepath.Join(f.dir, backupType+"-20240101-000000.sql")
	if err := os.WriteFile(path, []byte("-- dump"), 0o644); err != nil {
		return nil, err
	}
	return &models.Backup{Type: backupType, FilePath: path, SizeBytes: 7, Status: models.BackupStatusCompleted}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	repo     *servicetest.MemStore
	logs     *memLogs
	recorder *audit.Recorder
	cookie   *http.Cookie
}

func newTestServer(t *testing.T, loginRate string, checks map[string]Pinger) *testServer {
	t.Helper()
	ctx := context.Background()

	repo := servicetest.NewMemStore()
	auth := service.NewAuthService(repo, servicetest.NewSessions(), time.Hour)
	_, err := auth.CreateUser(ctx, "admin", "secret123")
	require.NoError(t, err)

	pdfs, err := invoice.NewPDFStore(t.TempDir())
	require.NoError(t, err)

	logs := &memLogs{}
	recorder := audit.NewRecorder(logs, nil)

	h, err := NewHandler(Options{
		Companies: service.NewCompanyService(repo),
		Stock:     service.NewStockService(repo),
		Clients:   service.NewClientService(repo),
		Exports: service.NewExportService(service.ExportServiceConfig{
			Clients:  repo,
			Stock:    repo,
			Exports:  repo,
			Locker:   servicetest.NewLocker(),
			Notifier: &servicetest.Notifier{},
			PDFs:     pdfs,
			Links:    invoice.NewLinkSigner(testLinkSecret, time.Hour),
			BaseURL:  "http://localhost:8080",
		}),
		Auth:       auth,
		Audit:      recorder,
		Backups:    &fakeBackups{dir: t.TempDir()},
		Checks:     checks,
		LoginRate:  loginRate,
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)

	router := gin.New()
	h.SetupRoutes(router)

	return &testServer{t: t, router: router, repo: repo, logs: logs, recorder: recorder}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if _, ok := body.([]byte); ok {
		req.Header.Set("Content-Type", "application/pdf")
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login() {
	s.t.Helper()
	w := s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "secret123"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			s.cookie = c
		}
	}
	require.NotNil(s.t, s.cookie)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, "5-M", nil)

	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestReadinessCheck(t *testing.T) {
	s := newTestServer(t, "5-M", map[string]Pinger{
		"postgres": pinger{},
		"redis":    pinger{err: errors.New("connection refused")},
	})

	w := s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decode(t, w)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "connection refused", checks["redis"])
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	s := newTestServer(t, "5-M", nil)

	for _, path := range []string{"/api/companies", "/api/clients", "/invoices/AFAK-INV-00001.pdf"} {
		w := s.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestLoginRejectsBadCredentialsGenerically(t *testing.T) {
	s := newTestServer(t, "10-M", nil)

	wrongPassword := s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "nope12345"})
	unknownUser := s.do(http.MethodPost, "/login", gin.H{"username": "ghost", "password": "secret123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, "Invalid username or password", decode(t, wrongPassword)["error"])

	short := s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, short.Code)
	assert.Equal(t, wrongPassword.Body.String(), short.Body.String())
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, "2-M", nil)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "wrong123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "secret123"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t, "5-M", nil)
	s.login()

	page := s.do(http.MethodGet, "/login", nil)
	assert.Equal(t, true, decode(t, page)["loggedIn"])

	w := s.do(http.MethodGet, "/api/companies", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusFound, w.Code)

	w = s.do(http.MethodGet, "/api/companies", nil)
	assert.Equal(t, http.StatusFound, w.Code)

	require.NoError(t, s.recorder.Close())
	assert.Contains(t, s.logs.actions(), "login:success")
	assert.Contains(t, s.logs.actions(), "logout:success")
}

func TestExportFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, "5-M", nil)
	s.login()

	w := s.do(http.MethodPost, "/api/companies", gin.H{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "acme_corp", decode(t, w)["name"])

	w = s.do(http.MethodPost, "/api/companies", gin.H{"name": "acme corp"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/companies/acme_corp/models", gin.H{
		"name":     "Shoe A",
		"price":    "100",
		"discount": "10",
		"quantity": 50,
		"packages": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	modelID := int64(decode(t, w)["id"].(float64))

	w = s.do(http.MethodPost, "/api/clients", gin.H{"name": "Bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clientID := int64(decode(t, w)["id"].(float64))

	line := gin.H{"id": modelID, "table": "acme_corp", "quantity": 10, "packages": 1}
	w = s.do(http.MethodPost, "/api/exports", gin.H{"clientName": "Bob", "data": []gin.H{line}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "AFAK-INV-00001", body["invoiceNumber"])
	assert.Equal(t, "http://localhost:8080/invoices/AFAK-INV-00001.pdf", body["pdfUrl"])
	assert.Equal(t, service.NotifySkipped, body["notification"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/companies/acme_corp/models/%d", modelID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	model := decode(t, w)
	assert.Equal(t, float64(40), model["quantity"])
	assert.Equal(t, float64(4), model["packages"])

	over := gin.H{"id": modelID, "table": "acme_corp", "quantity": 45}
	w = s.do(http.MethodPost, "/api/exports", gin.H{"clientName": "Bob", "data": []gin.H{over}})
	assert.Equal(t, http.StatusConflict, w.Code)
	rejected := decode(t, w)
	assert.Contains(t, rejected["error"], "Not enough stock")
	assert.Equal(t, float64(40), rejected["model"].(map[string]interface{})["available_quantity"])

	w = s.do(http.MethodGet, "/api/models?table=acme_corp&q=shoe", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":40`)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/exports", clientID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AFAK-INV-00001")

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/clients/%d", clientID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, s.recorder.Close())
	actions := s.logs.actions()
	assert.Contains(t, actions, "create_company:success")
	assert.Contains(t, actions, "create_company:failure")
	assert.Contains(t, actions, "create_export:success")
	assert.Contains(t, actions, "create_export:failure")
}

func TestUnknownCompanyIsNotFound(t *testing.T) {
	s := newTestServer(t, "5-M", nil)
	s.login()

	w := s.do(http.MethodGet, "/api/companies/nope/models", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/models", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/companies/nope/models/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAndServePDF(t *testing.T) {
	s := newTestServer(t, "5-M", nil)
	s.login()

	w := s.do(http.MethodPost, "/api/save-pdf", gin.H{
		"invoiceNumber": "AFAK-INV-00001",
		"pdf":           []int{37, 80, 68, 70},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/invoices/AFAK-INV-00001.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF", w.Body.String())

	w = s.do(http.MethodPut, "/api/invoices/AFAK-INV-00002/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/invoices/AFAK-INV-00002.pdf", nil)
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = s.do(http.MethodGet, "/invoices/AFAK-INV-00003.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/invoices/passwd", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/save-pdf", gin.H{"invoiceNumber": "../etc", "pdf": []int{1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestByteArrayAcceptsBase64(t *testing.T) {
	var req savePDFRequest
	require.NoError(t, json.Unmarshal([]byte(`{"invoiceNumber":"AFAK-INV-00001","pdf":"JVBERg=="}`), &req))
	assert.Equal(t, "%PDF", string(req.PDF))

	assert.Error(t, json.Unmarshal([]byte(`{"pdf":[256]}`), &req))
}

func TestRunBackup(t *testing.T) {
	s := newTestServer(t, "5-M", nil)
	s.login()

	w := s.do(http.MethodPost, "/api/backup?type=weekly", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment"))
	assert.Equal(t, "-- dump", w.Body.String())

	w = s.do(http.MethodPost, "/api/backup?type=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSharedInvoiceLinkWorksWithoutSession(t *testing.T) {
	s := newTestServer(t, "5-M", nil)
	s.login()

	w := s.do(http.MethodPut, "/api/invoices/AFAK-INV-00001/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.cookie = nil

	token, err := invoice.NewLinkSigner(testLinkSecret, time.Hour).Sign("AFAK-INV-00001")
	require.NoError(t, err)

	w = s.do(http.MethodGet, "/public/invoices/AFAK-INV-00001.pdf?token="+token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = s.do(http.MethodGet, "/public/invoices/AFAK-INV-00002.pdf?token="+token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/public/invoices/AFAK-INV-00001.pdf", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	forged, err := invoice.NewLinkSigner("wrong-secret", time.Hour).Sign("AFAK-INV-00001")
	require.NoError(t, err)
	w = s.do(http.MethodGet, "/public/invoices/AFAK-INV-00001.pdf?token="+forged, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/invoices/AFAK-INV-00001.pdf", nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, "5-M", nil)

	w := s.do(http.MethodPost, "/register", gin.H{"username": "clerk", "password": "clerk-pass"})
	assert.Equal(t, http.StatusFound, w.Code)

	s.login()

	w = s.do(http.MethodPost, "/register", gin.H{"username": "clerk", "password": "clerk-pass"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "clerk", decode(t, w)["username"])

	w = s.do(http.MethodPost, "/register", gin.H{"username": "clerk", "password": "other-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/register", gin.H{"username": "ab", "password": "clerk-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.cookie = nil
	w = s.do(http.MethodPost, "/login", gin.H{"username": "clerk", "password": "clerk-pass"})
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, s.recorder.Close())
	actions := s.logs.actions()
	assert.Contains(t, actions, "register:success")
	assert.Contains(t, actions, "register:failure")
}
