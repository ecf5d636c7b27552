package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"backoffice-service/internal/audit"
	"backoffice-service/internal/models"
	"backoffice-service/internal/service"
	"backoffice-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackupRunner takes an on-demand dump
type BackupRunner interface {
	Run(ctx context.Context, backupType string) (*models.Backup, error)
}

// Options are the handler's dependencies
type Options struct {
	Companies    *service.CompanyService
	Stock        *service.StockService
	Clients      *service.ClientService
	Exports      *service.ExportService
	Auth         *service.AuthService
	Audit        *audit.Recorder
	Backups      BackupRunner
	Checks       map[string]Pinger
	LoginRate    string
	SessionTTL   time.Duration
	SecureCookie bool
}

// Handler contains HTTP handlers
type Handler struct {
	companies    *service.CompanyService
	stock        *service.StockService
	clients      *service.ClientService
	exports      *service.ExportService
	auth         *service.AuthService
	audit        *audit.Recorder
	backups      BackupRunner
	checks       map[string]Pinger
	loginLimiter *limiter.Limiter
	sessionTTL   time.Duration
	secureCookie bool
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options) (*Handler, error) {
	loginLimiter, err := newLoginLimiter(opts.LoginRate)
	if err != nil {
		return nil, fmt.Errorf("invalid login rate %q: %w", opts.LoginRate, err)
	}

	return &Handler{
		companies:    opts.Companies,
		stock:        opts.Stock,
		clients:      opts.Clients,
		exports:      opts.Exports,
		auth:         opts.Auth,
		audit:        opts.Audit,
		backups:      opts.Backups,
		checks:       opts.Checks,
		loginLimiter: loginLimiter,
		sessionTTL:   opts.SessionTTL,
		secureCookie: opts.SecureCookie,
		logger:       util.Named("api"),
	}, nil
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/login", h.loginPage)
	router.POST("/login", rateLimit(h.loginLimiter), h.login)
	router.POST("/logout", h.logout)
	router.GET("/logout", h.logout)
	router.GET("/public/invoices/:file", h.getSharedInvoicePDF)

	protected := router.Group("/")
	protected.Use(h.requireAuth())
	{
		protected.GET("/invoices/:file", h.getInvoicePDF)
		protected.POST("/register", h.register)
	}

	api := router.Group("/api")
	api.Use(h.requireAuth())
	{
		api.POST("/companies", h.createCompany)
		api.GET("/companies", h.listCompanies)
		api.GET("/companies-with-models", h.listCompaniesWithModels)
		api.PUT("/companies/:company", h.renameCompany)
		api.DELETE("/companies/:company", h.deleteCompany)

		api.GET("/companies/:company/models", h.listModels)
		api.POST("/companies/:company/models", h.createModel)
		api.GET("/companies/:company/models/:id", h.getModel)
		api.PUT("/companies/:company/models/:id", h.updateModel)
		api.DELETE("/companies/:company/models/:id", h.deleteModel)
		api.GET("/models", h.listModelsByQuery)

		api.POST("/clients", h.createClient)
		api.GET("/clients", h.searchClients)
		api.PUT("/clients/:id", h.updateClient)
		api.DELETE("/clients/:id", h.deleteClient)
		api.GET("/clients/:id/exports", h.listClientExports)

		api.POST("/exports", h.createExport)
		api.POST("/save-pdf", h.savePDF)
		api.PUT("/invoices/:invoice/pdf", h.uploadPDF)

		api.POST("/backup", h.runBackup)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": results,
		"time":   time.Now().Unix(),
	})
}

// record writes an audit entry for the request in the background
func (h *Handler) record(c *gin.Context, action string, err error, details string) {
	if h.audit == nil {
		return
	}

	status := models.StatusSuccess
	if err != nil {
		details = err.Error()
		status = models.StatusFailure
		if statusFor(err) >= http.StatusInternalServerError {
			status = models.StatusError
		}
	}

	h.audit.Go(models.LogEntry{
		Username:  currentUser(c),
		Action:    action,
		Status:    status,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Details:   details,
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid ID",
		})
		return 0, false
	}
	return id, true
}
