package jobs

import (
	"context"
	"errors"
	"fmt"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrPartnerNotScheduled is returned by RunNow for partners without a job
var ErrPartnerNotScheduled = errors.New("partner has no polling job")

// PartnerSource lists the partners that should be polled
type PartnerSource interface {
	ListActiveSFTP(ctx context.Context) ([]gormModels.TradingPartner, error)
}

// PartnerPoller runs one poll of one partner
type PartnerPoller interface {
	PollPartner(ctx context.Context, partner gormModels.TradingPartner) (*PollResult, error)
}

// JobStatus describes one scheduled partner job
type JobStatus struct {
	PartnerID   string      `json:"partner_id"`
	TenantID    string      `json:"tenant_id"`
	PartnerName string      `json:"partner_name"`
	Schedule    string      `json:"schedule"`
	Next        time.Time   `json:"next_run"`
	Prev        time.Time   `json:"prev_run,omitempty"`
	LastResult  *PollResult `json:"last_result,omitempty"`
}

type partnerJob struct {
	partner     gormModels.TradingPartner
	cronEntryID cron.EntryID

	mu         sync.Mutex
	lastResult *PollResult
}

func (pj *partnerJob) setResult(r *PollResult) {
	pj.mu.Lock()
	pj.lastResult = r
	pj.mu.Unlock()
}

func (pj *partnerJob) result() *PollResult {
	pj.mu.Lock()
	defer pj.mu.Unlock()
	return pj.lastResult
}

// PollScheduler owns one cron entry per active SFTP partner. Each entry is
// wrapped with SkipIfStillRunning, so a tick never overlaps its own previous
// tick, while different partners run concurrently.
type PollScheduler struct {
	cron          *cron.Cron
	partners      PartnerSource
	poller        PartnerPoller
	metrics       *metrics.MetricsRegistry
	maxConcurrent int
	pollTimeout   time.Duration

	jobs       map[string]*partnerJob
	jobsMutex  sync.RWMutex
	refreshMux sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPollScheduler creates a scheduler. It does nothing until Start.
func NewPollScheduler(
	partners PartnerSource,
	poller PartnerPoller,
	metricsReg *metrics.MetricsRegistry,
	maxConcurrent int,
	pollTimeout time.Duration,
) *PollScheduler {
	logger := NewCronLogger(logging.GetLogger())
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &PollScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		partners:      partners,
		poller:        poller,
		metrics:       metricsReg,
		maxConcurrent: maxConcurrent,
		pollTimeout:   pollTimeout,
		jobs:          make(map[string]*partnerJob),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start loads the partner jobs and starts the cron loop. The loop runs even
// when loading fails so that a later Refresh can populate it.
func (s *PollScheduler) Start(ctx context.Context) error {
	count, err := s.Refresh(ctx)
	s.cron.Start()
	if err != nil {
		return err
	}
	logging.Info("[PollScheduler] Started", "scheduled_partners", count)
	return nil
}

// Stop prevents future ticks and waits for ticks already in flight
func (s *PollScheduler) Stop() {
	logging.Info("[PollScheduler] Stopping")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cancel()
	logging.Info("[PollScheduler] Stopped")
}

// AddPartner schedules (or reschedules) the polling job of a partner.
// Inactive and non-SFTP partners are unscheduled instead.
func (s *PollScheduler) AddPartner(partner gormModels.TradingPartner) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	s.removeLocked(partner.ID)
	if !partner.IsActive || !partner.UsesSFTP() {
		return nil
	}
	if partner.PollSchedule == "" {
		return fmt.Errorf("partner %s has no poll schedule", partner.ID)
	}
	if _, err := cron.ParseStandard(partner.PollSchedule); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", partner.PollSchedule, err)
	}

	pj := &partnerJob{partner: partner}
	logger := NewCronLogger(logging.GetLogger())
	job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		s.runJob(pj)
	}))

	entryID, err := s.cron.AddJob(partner.PollSchedule, job)
	if err != nil {
		return fmt.Errorf("failed to schedule partner %s: %w", partner.ID, err)
	}
	pj.cronEntryID = entryID
	s.jobs[partner.ID] = pj
	s.updateGauge()
	return nil
}

// RemovePartner stops the partner's job. A tick in flight completes.
func (s *PollScheduler) RemovePartner(partnerID string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	s.removeLocked(partnerID)
}

func (s *PollScheduler) removeLocked(partnerID string) {
	pj, exists := s.jobs[partnerID]
	if !exists {
		return
	}
	s.cron.Remove(pj.cronEntryID)
	delete(s.jobs, partnerID)
	s.updateGauge()
}

// Refresh removes every job and rebuilds the set from the current partner
// records. Partners with invalid schedules are logged and skipped.
func (s *PollScheduler) Refresh(ctx context.Context) (int, error) {
	s.refreshMux.Lock()
	defer s.refreshMux.Unlock()

	partners, err := s.partners.ListActiveSFTP(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load sftp partners: %w", err)
	}

	s.jobsMutex.Lock()
	for id := range s.jobs {
		s.removeLocked(id)
	}
	s.jobsMutex.Unlock()

	count := 0
	for _, p := range partners {
		if err := s.AddPartner(p); err != nil {
			logging.WithPartner(p.TenantID, p.ID).Warnw("[PollScheduler] Skipping partner", "error", err)
			continue
		}
		count++
	}
	return count, nil
}

func (s *PollScheduler) runJob(pj *partnerJob) {
	ctx := s.ctx
	if s.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pollTimeout)
		defer cancel()
	}
	result, _ := s.poller.PollPartner(ctx, pj.partner)
	pj.setResult(result)
}

// RunNow polls one scheduled partner immediately and waits for the result
func (s *PollScheduler) RunNow(ctx context.Context, tenantID, partnerID string) (*PollResult, error) {
	s.jobsMutex.RLock()
	pj, exists := s.jobs[partnerID]
	s.jobsMutex.RUnlock()
	if !exists || pj.partner.TenantID != tenantID {
		return nil, ErrPartnerNotScheduled
	}

	result, err := s.poller.PollPartner(ctx, pj.partner)
	pj.setResult(result)
	return result, err
}

// PollAll polls every scheduled partner of tenantID once with bounded
// concurrency, or every partner when tenantID is empty. One partner failing
// does not stop the others.
func (s *PollScheduler) PollAll(ctx context.Context, tenantID string) []*PollResult {
	s.jobsMutex.RLock()
	jobs := make([]*partnerJob, 0, len(s.jobs))
	for _, pj := range s.jobs {
		if tenantID != "" && pj.partner.TenantID != tenantID {
			continue
		}
		jobs = append(jobs, pj)
	}
	s.jobsMutex.RUnlock()

	results := make([]*PollResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, pj := range jobs {
		i, pj := i, pj
		g.Go(func() error {
			result, _ := s.poller.PollPartner(gctx, pj.partner)
			pj.setResult(result)
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	polled := results[:0]
	for _, r := range results {
		if r != nil {
			polled = append(polled, r)
		}
	}
	return polled
}

// Scheduled reports whether a partner currently has a job
func (s *PollScheduler) Scheduled(partnerID string) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	_, ok := s.jobs[partnerID]
	return ok
}

// Status lists the scheduled jobs, optionally limited to one tenant
func (s *PollScheduler) Status(tenantID string) []JobStatus {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, pj := range s.jobs {
		if tenantID != "" && pj.partner.TenantID != tenantID {
			continue
		}
		entry := s.cron.Entry(pj.cronEntryID)
		out = append(out, JobStatus{
			PartnerID:   pj.partner.ID,
			TenantID:    pj.partner.TenantID,
			PartnerName: pj.partner.Name,
			Schedule:    pj.partner.PollSchedule,
			Next:        entry.Next,
			Prev:        entry.Prev,
			LastResult:  pj.result(),
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].PartnerName < out[k].PartnerName })
	return out
}

func (s *PollScheduler) updateGauge() {
	if s.metrics != nil {
		s.metrics.ScheduledJobs.Set(float64(len(s.jobs)))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.SugaredLogger
}

// NewCronLogger returns a cron.Logger writing through the given zap logger
func NewCronLogger(log *zap.SugaredLogger) cron.Logger {
	return &cronLogger{log: log}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("[cron] "+msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("[cron] "+msg, append(keysAndValues, "error", err)...)
}
