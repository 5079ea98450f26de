package workers

import (
	"context"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/services"
	"sync/atomic"
	"time"
)

// PendingSource lists inbound transactions that still need processing
type PendingSource interface {
	ListPending(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error)
}

// InboundProcessor parses and applies one inbound transaction
type InboundProcessor interface {
	Process(ctx context.Context, tx *gormModels.EdiTransaction) (*services.InboundOutcome, error)
}

// BatchStats summarises one pass of the worker
type BatchStats struct {
	Picked    int
	Completed int
	Failed    int
	Deferred  int
}

// PendingWorker drains pending inbound transactions, mostly files dropped
// in by the SFTP poller
type PendingWorker struct {
	source    PendingSource
	processor InboundProcessor
	metrics   *metrics.MetricsRegistry
	batchSize int
	running   atomic.Bool
}

// NewPendingWorker creates a worker processing up to batchSize transactions per tick
func NewPendingWorker(source PendingSource, processor InboundProcessor, metricsReg *metrics.MetricsRegistry, batchSize int) *PendingWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &PendingWorker{
		source:    source,
		processor: processor,
		metrics:   metricsReg,
		batchSize: batchSize,
	}
}

// Start runs a batch immediately and then on every tick until ctx is done
func (w *PendingWorker) Start(ctx context.Context, interval time.Duration) {
	logging.Info("[PendingWorker] Starting", "interval", interval.String(), "batch_size", w.batchSize)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info("[PendingWorker] Shutting down")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes one batch. A pass that is still running when the next
// one is requested makes the new one a no-op.
func (w *PendingWorker) RunOnce(ctx context.Context) BatchStats {
	var stats BatchStats
	if !w.running.CompareAndSwap(false, true) {
		return stats
	}
	defer w.running.Store(false)

	pending, err := w.source.ListPending(ctx, w.batchSize)
	if err != nil {
		logging.Error("[PendingWorker] Failed to list pending transactions", "error", err)
		return stats
	}
	stats.Picked = len(pending)
	if w.metrics != nil {
		w.metrics.PendingWorkerBatch.Observe(float64(len(pending)))
	}
	if len(pending) == 0 {
		return stats
	}

	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		tx := &pending[i]
		outcome, err := w.processor.Process(ctx, tx)
		if err != nil {
			stats.Deferred++
			logging.WithPartner(tx.TenantID, tx.PartnerID).Errorw("[PendingWorker] Processing deferred",
				"transaction_id", tx.ID, "error", err)
			continue
		}
		if outcome.Status == constants.StatusFailed {
			stats.Failed++
		} else {
			stats.Completed++
		}
	}

	logging.Info("[PendingWorker] Batch done",
		"picked", stats.Picked, "completed", stats.Completed, "failed", stats.Failed, "deferred", stats.Deferred)
	return stats
}
