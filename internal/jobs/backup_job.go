package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/reliability"
)

// backupTimeout bounds one backup run, upload included.
const backupTimeout = 10 * time.Minute

// BackupJob creates a backup archive, uploads it, and rotates old backups
// out of the store. Scheduled nightly.
type BackupJob struct {
	backups *reliability.BackupService
	log     zerolog.Logger
}

// NewBackupJob creates a backup job
func NewBackupJob(backups *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run executes a backup followed by rotation
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.backups.CreateAndUpload(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}

	if err := j.backups.RotateOldBackups(ctx); err != nil {
		// Don't fail the job - the archive is already uploaded
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

// Name returns the job name for scheduling and logging
func (j *BackupJob) Name() string {
	return "backup"
}
