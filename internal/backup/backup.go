package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

var ErrInvalidType = errors.New("invalid backup type: must be daily, weekly or monthly")

const fileTimeLayout = "20060102-150405"

// ValidType reports whether t is a known backup type
func ValidType(t string) bool {
	switch t {
	case models.BackupDaily, models.BackupWeekly, models.BackupMonthly:
		return true
	}
	return false
}

// Repository records completed dumps
type Repository interface {
	InsertBackup(ctx context.Context, b *models.Backup) error
	ListBackups(ctx context.Context, backupType string) ([]models.Backup, error)
	DeleteBackup(ctx context.Context, id int64) error
}

// Dumper writes a full database dump to path
type Dumper interface {
	Dump(ctx context.Context, path string) error
}

// PgDump shells out to the pg_dump binary
type PgDump struct {
	Binary      string
	DatabaseURL string
}

// Dump runs pg_dump and surfaces its stderr on failure
func (d PgDump) Dump(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, d.Binary,
		"--dbname="+d.DatabaseURL,
		"--file="+path,
		"--no-owner",
		"--no-privileges",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Retention is how many completed dumps of each type are kept
type Retention struct {
	Daily   int
	Weekly  int
	Monthly int
}

func (r Retention) keep(t string) int {
	switch t {
	case models.BackupDaily:
		return r.Daily
	case models.BackupWeekly:
		return r.Weekly
	case models.BackupMonthly:
		return r.Monthly
	}
	return 0
}

// Runner takes a dump, records it and prunes old ones
type Runner struct {
	repo      Repository
	dumper    Dumper
	dir       string
	retention Retention
	now       func() time.Time
	logger    *zap.Logger
}

// NewRunner creates a backup runner writing under dir/<type>/
func NewRunner(repo Repository, dumper Dumper, dir string, retention Retention) *Runner {
	return &Runner{
		repo:      repo,
		dumper:    dumper,
		dir:       dir,
		retention: retention,
		now:       time.Now,
		logger:    util.Named("backup"),
	}
}

// Run takes one dump of the given type
func (r *Runner) Run(ctx context.Context, backupType string) (*models.Backup, error) {
	ctx, span := util.StartSpan(ctx, "Backup.Run")
	defer span.End()

	if !ValidType(backupType) {
		return nil, ErrInvalidType
	}

	dir := filepath.Join(r.dir, backupType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.sql", backupType, r.now().Format(fileTimeLayout)))
	start := time.Now()

	record := &models.Backup{Type: backupType, FilePath: path}
	if err := r.dumper.Dump(ctx, path); err != nil {
		record.Status = models.BackupStatusFailed
		if insErr := r.repo.InsertBackup(ctx, record); insErr != nil {
			r.logger.Error("Failed to record failed backup", zap.Error(insErr))
		}
		os.Remove(path)
		util.BackupsTotal.WithLabelValues(backupType, models.BackupStatusFailed).Inc()
		r.logger.Error("Backup failed",
			zap.String("type", backupType),
			zap.Error(err))
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup file missing after dump: %w", err)
	}
	record.SizeBytes = info.Size()
	record.Status = models.BackupStatusCompleted

	if err := r.repo.InsertBackup(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}

	util.BackupsTotal.WithLabelValues(backupType, models.BackupStatusCompleted).Inc()
	r.logger.Info("Backup completed",
		zap.String("type", backupType),
		zap.String("path", path),
		zap.Int64("size_bytes", record.SizeBytes),
		zap.Duration("took", time.Since(start)))

	if err := r.prune(ctx, backupType); err != nil {
		r.logger.Warn("Failed to prune old backups",
			zap.String("type", backupType),
			zap.Error(err))
	}
	return record, nil
}

// prune deletes completed dumps beyond the retention count, oldest first
func (r *Runner) prune(ctx context.Context, backupType string) error {
	keep := r.retention.keep(backupType)
	if keep <= 0 {
		return nil
	}

	backups, err := r.repo.ListBackups(ctx, backupType)
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}

	for _, b := range backups[keep:] {
		if err := os.Remove(b.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := r.repo.DeleteBackup(ctx, b.ID); err != nil {
			return err
		}
		r.logger.Info("Old backup removed",
			zap.String("type", backupType),
			zap.String("path", b.FilePath))
	}
	return nil
}
