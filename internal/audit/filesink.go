package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"backoffice-service/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const dayLayout = "2006-01-02"

// FileSink appends one JSON line per entry to LOG_DIR/YYYY-MM-DD.log, switching files
// when the entry's day changes
type FileSink struct {
	mu      sync.Mutex
	dir     string
	day     string
	file    *os.File
	encoder zapcore.Encoder
}

// NewFileSink creates the log directory if needed
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	cfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "action",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	return &FileSink{
		dir:     dir,
		encoder: zapcore.NewJSONEncoder(cfg),
	}, nil
}

// PathFor returns the file an entry written at t lands in
func (s *FileSink) PathFor(t time.Time) string {
	return filepath.Join(s.dir, t.Format(dayLayout)+".log")
}

// Write appends the entry
func (s *FileSink) Write(entry *models.LogEntry) error {
	buf, err := s.encoder.EncodeEntry(zapcore.Entry{
		Level:   Level(entry.Severity),
		Time:    entry.CreatedAt,
		Message: entry.Action,
	}, []zap.Field{
		zap.String("username", entry.Username),
		zap.String("status", entry.Status),
		zap.Int("severity", entry.Severity),
		zap.String("ip", entry.IP),
		zap.String("user_agent", entry.UserAgent),
		zap.String("details", entry.Details),
	})
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}
	defer buf.Free()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotate(entry.CreatedAt); err != nil {
		return err
	}
	_, err = s.file.Write(buf.Bytes())
	return err
}

func (s *FileSink) rotate(t time.Time) error {
	day := t.Format(dayLayout)
	if s.file != nil && s.day == day {
		return nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	f, err := os.OpenFile(s.PathFor(t), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	s.file = f
	s.day = day
	return nil
}

// Close closes the current file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
