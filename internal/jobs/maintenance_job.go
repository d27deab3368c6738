package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
)

// MaintenanceJob keeps the databases healthy: integrity checks, WAL
// checkpoints to stop the log growing, a VACUUM of the cache database, and a
// size report. Scheduled daily, off-hours.
type MaintenanceJob struct {
	databases []*database.DB
	cacheDB   *database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job over all databases. cacheDB is
// the one database that gets vacuumed, its tables churn enough to fragment.
func NewMaintenanceJob(databases []*database.DB, cacheDB *database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		cacheDB:   cacheDB,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance pass
func (j *MaintenanceJob) Run() error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Not critical, the next checkpoint will catch up
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if j.cacheDB != nil {
		if err := j.cacheDB.Vacuum(); err != nil {
			j.log.Warn().Err(err).Str("database", j.cacheDB.Name()).Msg("VACUUM failed")
		}
	}

	for _, db := range j.databases {
		stats, err := db.GetStats()
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			continue
		}

		j.log.Info().
			Str("database", db.Name()).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("Database size")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Maintenance completed")

	return nil
}

// Name returns the job name for scheduling and logging
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}
