package jobs

import (
	"context"
	"infinite-experiment/edigate/internal/common"
	"infinite-experiment/edigate/internal/config"
	"infinite-experiment/edigate/internal/metrics"
	"infinite-experiment/edigate/internal/sftp"
	"log"
)

// InitializeJobs builds the SFTP poll scheduler and starts it in the
// background. A failed initial load is logged; the next refresh retries it.
func InitializeJobs(
	ctx context.Context,
	cfg *config.AppConfig,
	partners PartnerSource,
	txRepo TransactionWriter,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
) *PollScheduler {
	pollJob := NewSFTPPollJob(sftp.NewSSHDialer(cfg.SFTPTimeout), txRepo, cache, metricsReg)

	scheduler := NewPollScheduler(partners, pollJob, metricsReg, cfg.SFTPMaxConcurrentPolls, 10*cfg.SFTPTimeout)
	if err := scheduler.Start(ctx); err != nil {
		log.Printf("[Jobs] Poll scheduler started without partner jobs: %v", err)
	}

	return scheduler
}
