package workers

import (
	"context"
	"errors"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/metrics"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/services"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type mockPendingSource struct {
	ListPendingFunc func(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error)
}

func (m *mockPendingSource) ListPending(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error) {
	return m.ListPendingFunc(ctx, limit)
}

type mockProcessor struct {
	ProcessFunc func(ctx context.Context, tx *gormModels.EdiTransaction) (*services.InboundOutcome, error)
}

func (m *mockProcessor) Process(ctx context.Context, tx *gormModels.EdiTransaction) (*services.InboundOutcome, error) {
	return m.ProcessFunc(ctx, tx)
}

func newTestMetrics() *metrics.MetricsRegistry {
	return metrics.NewMetricsRegistryWith(prometheus.NewRegistry())
}

func TestPendingWorker_RunOnceCountsOutcomes(t *testing.T) {
	var gotLimit int
	source := &mockPendingSource{
		ListPendingFunc: func(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error) {
			gotLimit = limit
			return []gormModels.EdiTransaction{{ID: "ok"}, {ID: "bad"}, {ID: "db-down"}}, nil
		},
	}
	processor := &mockProcessor{
		ProcessFunc: func(ctx context.Context, tx *gormModels.EdiTransaction) (*services.InboundOutcome, error) {
			switch tx.ID {
			case "ok":
				return &services.InboundOutcome{TransactionID: tx.ID, Status: constants.StatusCompleted}, nil
			case "bad":
				return &services.InboundOutcome{TransactionID: tx.ID, Status: constants.StatusFailed}, nil
			default:
				return nil, errors.New("connection reset")
			}
		},
	}

	w := NewPendingWorker(source, processor, newTestMetrics(), 10)
	stats := w.RunOnce(context.Background())

	if gotLimit != 10 {
		t.Errorf("Expected batch limit 10, got %d", gotLimit)
	}
	want := BatchStats{Picked: 3, Completed: 1, Failed: 1, Deferred: 1}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}
}

func TestPendingWorker_ListErrorProcessesNothing(t *testing.T) {
	source := &mockPendingSource{
		ListPendingFunc: func(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error) {
			return nil, errors.New("db unavailable")
		},
	}
	processor := &mockProcessor{
		ProcessFunc: func(ctx context.Context, tx *gormModels.EdiTransaction) (*services.InboundOutcome, error) {
			t.Fatal("Process must not be called")
			return nil, nil
		},
	}

	stats := NewPendingWorker(source, processor, nil, 0).RunOnce(context.Background())
	if stats.Picked != 0 {
		t.Errorf("Expected nothing picked, got %d", stats.Picked)
	}
}

func TestPendingWorker_SkipsOverlappingRun(t *testing.T) {
	source := &mockPendingSource{
		ListPendingFunc: func(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error) {
			return []gormModels.EdiTransaction{{ID: "a"}}, nil
		},
	}
	processor := &mockProcessor{
		ProcessFunc: func(ctx context.Context, tx *gormModels.EdiTransaction) (*services.InboundOutcome, error) {
			return &services.InboundOutcome{Status: constants.StatusCompleted}, nil
		},
	}

	w := NewPendingWorker(source, processor, nil, 5)
	w.running.Store(true)
	if stats := w.RunOnce(context.Background()); stats.Picked != 0 {
		t.Errorf("Expected overlapping run to be skipped, got %+v", stats)
	}
}

func TestPendingWorker_StartStopsOnCancel(t *testing.T) {
	calls := make(chan struct{}, 10)
	source := &mockPendingSource{
		ListPendingFunc: func(ctx context.Context, limit int) ([]gormModels.EdiTransaction, error) {
			calls <- struct{}{}
			return nil, nil
		},
	}
	w := NewPendingWorker(source, &mockProcessor{}, nil, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an immediate first batch")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected worker to stop after cancel")
	}
}
