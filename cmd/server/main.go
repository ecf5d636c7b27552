package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice-service/config"
	"backoffice-service/internal/api"
	"backoffice-service/internal/audit"
	"backoffice-service/internal/backup"
	"backoffice-service/internal/broker"
	"backoffice-service/internal/invoice"
	"backoffice-service/internal/mailer"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/service"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"
	"backoffice-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting backoffice service")

	tp, err := util.InitTracer("backoffice-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	pdfs, err := invoice.NewPDFStore(cfg.Storage.InvoiceDir)
	if err != nil {
		logger.Fatal("Failed to prepare invoice storage", zap.Error(err))
	}

	linkSecret := cfg.Auth.LinkSecret
	if linkSecret == "" {
		linkSecret = uuid.New().String()
		logger.Warn("INVOICE_LINK_SECRET not set, mailed invoice links stop working after a restart")
	}
	links := invoice.NewLinkSigner(linkSecret, cfg.Auth.LinkTTL)

	fileSink, err := audit.NewFileSink(cfg.Storage.LogDir)
	if err != nil {
		logger.Fatal("Failed to open audit log", zap.Error(err))
	}
	recorder := audit.NewRecorder(db, fileSink)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error("Error closing audit log", zap.Error(err))
		}
	}()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Kafka carries notifications to the mail worker when brokers are set; otherwise mail inline
	var notifier service.Notifier
	var notificationWorker *worker.NotificationWorker
	mail := mailer.New(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)

	switch {
	case cfg.Kafka.Enabled():
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicExport)
		defer producer.Close()
		notifier = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicExport, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, mail.HandleExportCreated)
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
	case cfg.Mail.Host != "":
		notifier = mail
	default:
		logger.Warn("No SMTP host or Kafka brokers configured, export notifications are skipped")
	}

	companyService := service.NewCompanyService(db)
	stockService := service.NewStockService(db)
	clientService := service.NewClientService(db)
	exportService := service.NewExportService(service.ExportServiceConfig{
		Clients:  db,
		Stock:    db,
		Exports:  db,
		Locker:   redisClient,
		Notifier: notifier,
		PDFs:     pdfs,
		Links:    links,
		BaseURL:  cfg.Server.PublicBaseURL,
	})
	authService := service.NewAuthService(db, redisClient, cfg.Auth.SessionTTL)

	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Error("Failed to ensure admin user", zap.Error(err))
	}

	backupRunner := backup.NewRunner(db,
		backup.PgDump{Binary: cfg.Storage.PgDumpPath, DatabaseURL: cfg.Database.URL},
		cfg.Storage.BackupDir,
		backup.Retention{
			Daily:   cfg.Storage.KeepDaily,
			Weekly:  cfg.Storage.KeepWeekly,
			Monthly: cfg.Storage.KeepMonthly,
		})

	if cfg.Storage.BackupSchedule {
		backupWorker := worker.NewBackupWorker(backupRunner, nil)
		go func() {
			if err := backupWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Backup worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler, err := api.NewHandler(api.Options{
		Companies: companyService,
		Stock:     stockService,
		Clients:   clientService,
		Exports:   exportService,
		Auth:      authService,
		Audit:     recorder,
		Backups:   backupRunner,
		Checks: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
		LoginRate:    cfg.Auth.LoginRate,
		SessionTTL:   cfg.Auth.SessionTTL,
		SecureCookie: cfg.Auth.SecureCookie,
	})
	if err != nil {
		logger.Fatal("Failed to build HTTP handler", zap.Error(err))
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if notificationWorker != nil {
		if err := notificationWorker.Stop(); err != nil {
			logger.Error("Error stopping notification worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
