package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/qvarlab/qvar/internal/modules/vqe"
)

// RetentionJob prunes completed optimization runs older than the
// configured retention window. Running runs are never pruned.
type RetentionJob struct {
	repo          *vqe.RunRepository
	retentionDays int
	log           zerolog.Logger
}

// NewRetentionJob creates a retention job
func NewRetentionJob(repo *vqe.RunRepository, retentionDays int, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:          repo,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "run_retention").Logger(),
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "run_retention"
}

// Run prunes old runs
func (j *RetentionJob) Run() error {
	if j.retentionDays <= 0 {
		return nil // Retention disabled
	}

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.repo.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Pruned old runs")
	}
	return nil
}
