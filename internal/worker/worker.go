package worker

import (
	"context"
	"sync"
	"time"

	"backoffice-service/internal/broker"
	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker emails clients for EXPORT_CREATED events
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	consumer *broker.Consumer,
	onExportCreated func(context.Context, *models.ExportCreatedEvent) error,
) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnExportCreated(onExportCreated)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("worker"),
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// BackupRunner takes one dump of a type
type BackupRunner interface {
	Run(ctx context.Context, backupType string) (*models.Backup, error)
}

// DefaultSchedule is how often each backup type runs
var DefaultSchedule = map[string]time.Duration{
	models.BackupDaily:   24 * time.Hour,
	models.BackupWeekly:  7 * 24 * time.Hour,
	models.BackupMonthly: 30 * 24 * time.Hour,
}

// BackupWorker runs each backup type on its own ticker
type BackupWorker struct {
	runner   BackupRunner
	schedule map[string]time.Duration
	logger   *zap.Logger
}

// NewBackupWorker creates a backup worker; a nil schedule means DefaultSchedule
func NewBackupWorker(runner BackupRunner, schedule map[string]time.Duration) *BackupWorker {
	if schedule == nil {
		schedule = DefaultSchedule
	}
	return &BackupWorker{
		runner:   runner,
		schedule: schedule,
		logger:   util.Named("worker"),
	}
}

// Start blocks until ctx is cancelled
func (w *BackupWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting backup worker")

	var wg sync.WaitGroup
	for backupType, every := range w.schedule {
		wg.Add(1)
		go func(backupType string, every time.Duration) {
			defer wg.Done()
			w.loop(ctx, backupType, every)
		}(backupType, every)
	}
	wg.Wait()

	w.logger.Info("Backup worker stopped")
	return ctx.Err()
}

func (w *BackupWorker) loop(ctx context.Context, backupType string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.runner.Run(ctx, backupType); err != nil {
				w.logger.Error("Scheduled backup failed",
					zap.String("type", backupType),
					zap.Error(err))
			}
		}
	}
}
