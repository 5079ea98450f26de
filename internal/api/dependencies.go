package api

import (
	"context"
	"errors"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/common"
	"infinite-experiment/edigate/internal/config"
	"infinite-experiment/edigate/internal/db"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/erp"
	"infinite-experiment/edigate/internal/jobs"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/metrics"
	"infinite-experiment/edigate/internal/services"
	"infinite-experiment/edigate/internal/sftp"

	"gorm.io/gorm"
)

type Repositories struct {
	Partners     *repositories.PartnerRepo
	Settings     *repositories.SettingsRepo
	Mappings     *repositories.FieldMappingRepo
	Transactions *repositories.TransactionRepo
}

type Services struct {
	Cache     common.CacheInterface
	Partners  *services.PartnerService
	Inbound   *services.InboundService
	Outbound  *services.OutboundService
	AS2       *services.AS2Service
	Scheduler *jobs.PollScheduler
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	// HealthChecks are pinged by /healthCheck
	HealthChecks map[string]Pinger
}

// NewCache picks the cache backend. An unreachable Redis falls back to the
// in-process cache, which only deduplicates within this instance.
func NewCache(cfg *config.AppConfig) common.CacheInterface {
	if cfg.CacheBackend == "redis" {
		redisCache, err := common.NewRedisCacheService(cfg.RedisAddr(), cfg.RedisPassword)
		if err == nil {
			logging.Info("Using Redis cache", "addr", cfg.RedisAddr())
			return redisCache
		}
		logging.Warn("Redis unavailable, falling back to in-memory cache", "error", err)
	}
	return common.NewCacheService(3600, 600)
}

// InitDependencies wires repositories, services and the SFTP poll scheduler.
// The scheduler is already running when this returns; callers Stop it on
// shutdown.
func InitDependencies(
	ctx context.Context,
	cfg *config.AppConfig,
	gdb *gorm.DB,
	seq db.Sequencer,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
) (*Dependencies, error) {
	if gdb == nil {
		return nil, errors.New("database is not initialized")
	}
	if seq == nil {
		seq = db.NewCounterSequencer(gdb)
	}

	repos := &Repositories{
		Partners:     repositories.NewPartnerRepo(gdb),
		Settings:     repositories.NewSettingsRepo(gdb),
		Mappings:     repositories.NewFieldMappingRepo(gdb),
		Transactions: repositories.NewTransactionRepo(gdb, seq),
	}

	bridge := erp.NewBridge(erp.NewGormStore(gdb))
	as2Client := as2.NewClient(cfg.AS2HTTPTimeout, cfg.AS2ReportingUA)

	outbound := services.NewOutboundService(
		repos.Transactions,
		repos.Partners,
		repos.Settings,
		repos.Mappings,
		bridge,
		as2Client,
		sftp.NewSSHDialer(cfg.SFTPTimeout),
		metricsReg,
		cfg.AS2AsyncMDNURL,
	)
	inbound := services.NewInboundService(repos.Transactions, repos.Partners, repos.Mappings, bridge, outbound, metricsReg)
	as2Svc := services.NewAS2Service(
		repos.Partners,
		repos.Settings,
		repos.Transactions,
		inbound,
		cache,
		as2Client,
		metricsReg,
		services.AS2Options{
			ReportingUA:     cfg.AS2ReportingUA,
			StrictSigner:    cfg.AS2StrictSigner,
			DuplicateWindow: cfg.DuplicateWindow,
		},
	)

	scheduler := jobs.InitializeJobs(ctx, cfg, repos.Partners, repos.Transactions, cache, metricsReg)

	healthChecks := map[string]Pinger{}
	if sqlDB, err := gdb.DB(); err == nil {
		healthChecks["postgres"] = sqlDB
	}
	if pinger, ok := cache.(Pinger); ok {
		healthChecks["redis"] = pinger
	}

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Cache:     cache,
			Partners:  services.NewPartnerService(repos.Partners, repos.Settings, repos.Mappings, scheduler),
			Inbound:   inbound,
			Outbound:  outbound,
			AS2:       as2Svc,
			Scheduler: scheduler,
		},
		HealthChecks: healthChecks,
	}, nil
}
