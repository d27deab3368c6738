// Package jobs contains the background jobs wired into the scheduler.
package jobs

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/modules/auth"
)

// TokenCleanupJob deletes refresh tokens that expired, or were revoked,
// longer than the grace window ago. Scheduled hourly.
type TokenCleanupJob struct {
	tokens *auth.TokenRepository
	grace  time.Duration
	log    zerolog.Logger
}

// NewTokenCleanupJob creates a token cleanup job. Tokens are kept for grace
// after expiry so recently rotated sessions remain inspectable.
func NewTokenCleanupJob(tokens *auth.TokenRepository, grace time.Duration, log zerolog.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		tokens: tokens,
		grace:  grace,
		log:    log.With().Str("job", "token_cleanup").Logger(),
	}
}

// Run executes the cleanup
func (j *TokenCleanupJob) Run() error {
	deleted, err := j.tokens.DeleteExpired(time.Now().Add(-j.grace))
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired tokens")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired refresh tokens deleted")
	}

	return nil
}

// Name returns the job name for scheduling and logging
func (j *TokenCleanupJob) Name() string {
	return "token_cleanup"
}
