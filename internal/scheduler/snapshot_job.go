package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/modules/calculations"
)

// SnapshotJob precomputes the comprehensive analysis for the configured
// watchlist so morning requests hit a warm cache
type SnapshotJob struct {
	analysis     *calculations.AnalysisService
	cache        *calculations.Cache
	tickers      []string
	benchmark    string
	lookbackDays int
	log          zerolog.Logger
}

// NewSnapshotJob creates the nightly snapshot job. lookbackDays <= 0
// uses the analytics default window.
func NewSnapshotJob(
	analysis *calculations.AnalysisService,
	cache *calculations.Cache,
	tickers []string,
	benchmark string,
	lookbackDays int,
	log zerolog.Logger,
) *SnapshotJob {
	return &SnapshotJob{
		analysis:     analysis,
		cache:        cache,
		tickers:      tickers,
		benchmark:    benchmark,
		lookbackDays: lookbackDays,
		log:          log.With().Str("job", "analytics_snapshot").Logger(),
	}
}

// Name implements Job
func (j *SnapshotJob) Name() string {
	return "analytics_snapshot"
}

// Run recomputes the comprehensive analysis for the watchlist and
// evicts expired cache entries
func (j *SnapshotJob) Run() error {
	if len(j.tickers) == 0 {
		j.log.Debug().Msg("No snapshot tickers configured, skipping")
		return nil
	}

	report, err := j.analysis.Refresh(j.tickers, j.benchmark, j.lookbackDays)
	if err != nil {
		return fmt.Errorf("snapshot analysis failed: %w", err)
	}

	for _, warning := range report.Warnings {
		j.log.Warn().Str("snapshot_id", report.ID).Str("warning", warning).
			Msg("Snapshot section degraded")
	}

	dropped, err := j.cache.PurgeExpired()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to purge expired cache entries")
	}

	j.log.Info().
		Str("snapshot_id", report.ID).
		Strs("tickers", j.tickers).
		Int64("purged_entries", dropped).
		Msg("Nightly analytics snapshot complete")

	return nil
}
