package workers

import (
	"context"
	"infinite-experiment/edigate/internal/config"
	"infinite-experiment/edigate/internal/metrics"
)

type WorkersContainer struct {
	Pending *PendingWorker
}

// InitWorkers starts the background workers. They stop when ctx is cancelled.
func InitWorkers(
	ctx context.Context,
	cfg *config.AppConfig,
	source PendingSource,
	processor InboundProcessor,
	metricsReg *metrics.MetricsRegistry,
) *WorkersContainer {
	pending := NewPendingWorker(source, processor, metricsReg, cfg.PendingBatchSize)
	go pending.Start(ctx, cfg.PendingWorkerInterval)

	return &WorkersContainer{
		Pending: pending,
	}
}
