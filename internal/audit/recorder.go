package audit

import (
	"context"
	"sync"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Severity ranks
const (
	SeverityInfo    = 1
	SeverityWarning = 2
	SeverityError   = 3
)

const asyncWriteTimeout = 5 * time.Second

// Severity derives the rank from an outcome status
func Severity(status string) int {
	switch status {
	case models.StatusSuccess:
		return SeverityInfo
	case models.StatusFailure:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Level maps a severity rank onto a zap level
func Level(severity int) zapcore.Level {
	switch severity {
	case SeverityInfo:
		return zapcore.InfoLevel
	case SeverityWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// LogRepository is the database sink
type LogRepository interface {
	InsertLog(ctx context.Context, entry *models.LogEntry) error
}

// Result reports each sink independently
type Result struct {
	DBErr   error
	FileErr error
}

// OK reports whether both sinks accepted the entry
func (r Result) OK() bool {
	return r.DBErr == nil && r.FileErr == nil
}

// Recorder dual-writes audit entries to the logs table and the daily file
type Recorder struct {
	db     LogRepository
	file   *FileSink
	wg     sync.WaitGroup
	now    func() time.Time
	logger *zap.Logger
}

// NewRecorder creates a recorder; either sink may be nil
func NewRecorder(db LogRepository, file *FileSink) *Recorder {
	return &Recorder{
		db:     db,
		file:   file,
		now:    time.Now,
		logger: util.Named("audit"),
	}
}

// Record writes the entry to both sinks. A failure in one sink does not stop the other.
func (r *Recorder) Record(ctx context.Context, entry models.LogEntry) Result {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	if entry.Status == "" {
		entry.Status = models.StatusSuccess
	}
	entry.Severity = Severity(entry.Status)

	var res Result
	if r.db != nil {
		if err := r.db.InsertLog(ctx, &entry); err != nil {
			res.DBErr = err
			util.AuditSinkFailures.WithLabelValues("db").Inc()
			r.logger.Error("Failed to write audit row",
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}
	if r.file != nil {
		if err := r.file.Write(&entry); err != nil {
			res.FileErr = err
			util.AuditSinkFailures.WithLabelValues("file").Inc()
			r.logger.Error("Failed to write audit file",
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}
	return res
}

// Go records the entry in the background. The request path never waits on it.
func (r *Recorder) Go(entry models.LogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
		defer cancel()
		r.Record(ctx, entry)
	}()
}

// Close waits for background writes and closes the file
func (r *Recorder) Close() error {
	r.wg.Wait()
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
