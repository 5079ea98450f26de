package jobs

import (
	"context"
	"fmt"
	"infinite-experiment/edigate/internal/common"
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/formats"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/sftp"
	"path"
	"strings"
	"time"
)

// ProcessedDirName is the archive subdirectory created under a partner's
// incoming directory
const ProcessedDirName = "processed"

// TransactionWriter inserts transaction log entries
type TransactionWriter interface {
	Create(ctx context.Context, tx *gormModels.EdiTransaction) error
}

// PollResult summarizes one poll of one partner
type PollResult struct {
	PartnerID string    `json:"partner_id"`
	TenantID  string    `json:"tenant_id"`
	StartedAt time.Time `json:"started_at"`
	Files     int       `json:"files"`
	Moved     int       `json:"moved"`
	Skipped   int       `json:"skipped"`
	Error     string    `json:"error,omitempty"`
}

// SFTPPollJob downloads new files from a partner's incoming directory and
// logs each one as a pending inbound transaction
type SFTPPollJob struct {
	dialer  sftp.Dialer
	txRepo  TransactionWriter
	cache   common.CacheInterface
	metrics *metrics.MetricsRegistry
}

// NewSFTPPollJob creates a new poll job. cache and metricsReg may be nil.
func NewSFTPPollJob(
	dialer sftp.Dialer,
	txRepo TransactionWriter,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
) *SFTPPollJob {
	return &SFTPPollJob{
		dialer:  dialer,
		txRepo:  txRepo,
		cache:   cache,
		metrics: metricsReg,
	}
}

// PollPartner runs one tick for a partner. A connection or listing failure
// is returned; per-file failures are logged and the file is left in place to
// be picked up again on the next tick.
func (j *SFTPPollJob) PollPartner(ctx context.Context, partner gormModels.TradingPartner) (*PollResult, error) {
	start := time.Now()
	log := logging.WithPartner(partner.TenantID, partner.ID)
	result := &PollResult{PartnerID: partner.ID, TenantID: partner.TenantID, StartedAt: start.UTC()}

	err := j.poll(ctx, partner, result)

	if j.metrics != nil {
		j.metrics.SFTPPollDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		j.metrics.SFTPPollsTotal.WithLabelValues(outcome).Inc()
		j.metrics.SFTPFilesTotal.Add(float64(result.Files))
	}

	if err != nil {
		result.Error = err.Error()
		log.Errorw("[SFTPPollJob] Poll failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	} else if result.Files > 0 {
		log.Infow("[SFTPPollJob] Poll completed",
			"files", result.Files,
			"moved", result.Moved,
			"skipped", result.Skipped,
			"duration_ms", time.Since(start).Milliseconds())
	}

	if j.cache != nil {
		j.cache.Set(string(constants.CachePrefixPollStatus)+partner.ID, *result, 7*24*time.Hour)
	}
	return result, err
}

func (j *SFTPPollJob) poll(ctx context.Context, partner gormModels.TradingPartner, result *PollResult) error {
	log := logging.WithPartner(partner.TenantID, partner.ID)

	client, err := j.dialer.Dial(ctx, sftp.ConfigFromPartner(&partner))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	dir := partner.SFTPIncomingDir
	entries, err := client.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	docType := partner.DefaultDocumentType
	if docType == "" {
		docType = constants.DefaultInboundDocumentType
	}

	processedDir := path.Join(dir, ProcessedDirName)
	archiveReady, archiveFailed := false, false

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		src := path.Join(dir, name)
		content, err := client.ReadFile(src)
		if err != nil {
			log.Warnw("[SFTPPollJob] Failed to download file", "file", name, "error", err)
			result.Skipped++
			continue
		}

		tx := &gormModels.EdiTransaction{
			TenantID:     partner.TenantID,
			PartnerID:    partner.ID,
			Direction:    constants.DirectionInbound,
			DocumentType: docType,
			Format:       formats.DetectFormat(name),
			Status:       constants.StatusPending,
			FileName:     name,
			RawContent:   string(content),
		}
		if err := j.txRepo.Create(ctx, tx); err != nil {
			log.Errorw("[SFTPPollJob] Failed to log inbound file", "file", name, "error", err)
			result.Skipped++
			continue
		}
		result.Files++

		// Archiving is best effort: a file left behind is picked up again
		if archiveFailed {
			continue
		}
		if !archiveReady {
			if err := client.MkdirAll(processedDir); err != nil {
				log.Warnw("[SFTPPollJob] Failed to create archive directory", "dir", processedDir, "error", err)
				archiveFailed = true
				continue
			}
			archiveReady = true
		}
		if err := client.Rename(src, path.Join(processedDir, name)); err != nil {
			log.Warnw("[SFTPPollJob] Failed to archive file", "file", name, "transaction_id", tx.ID, "error", err)
			continue
		}
		result.Moved++
	}
	return nil
}
