package cmd

import (
	"context"
	"time"

	"permsync/core/cache"
	"permsync/core/config"
	"permsync/core/database"
	"permsync/core/guard"
	"permsync/core/logger"
	"permsync/core/source"
	"permsync/core/storage"
	"permsync/core/syncer"
	"permsync/feature/profile"

	"go.uber.org/zap"
)

// runtime bundles everything a command needs after bootstrap.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *profile.Service
}

// buildSources wraps one guarded org source per configured alias. Each
// alias gets its own rate limiter and circuit breaker, shared by every
// operation in this process that touches the alias.
func buildSources(cfg *config.Config, store storage.Client) []source.Source {
	aliases := cfg.Sync.SourceAliases()
	out := make([]source.Source, 0, len(aliases))
	for _, alias := range aliases {
		limiter := guard.NewRateLimiter(cfg.Guard.RateLimit,
			time.Duration(cfg.Guard.RateWindowSeconds)*time.Second)
		breaker := guard.NewCircuitBreaker(guard.BreakerConfig{
			Threshold: cfg.Guard.BreakerThreshold,
			Cooldown:  time.Duration(cfg.Guard.BreakerCooldownSeconds) * time.Second,
		})
		org := source.NewOrg(alias, cfg.Sync.ApiVersion, store, cfg.Storage.Bucket)
		out = append(out, source.NewGuarded(org, limiter, breaker))
	}
	return out
}

// setup loads configuration and wires the full service: storage-backed
// org sources behind their guardrails, the two-tier cache, the sync
// engine, the local tree, and the optional audit database.
func setup() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, err
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logg)

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, err
	}
	// Surfaces a bad endpoint or missing bucket at startup; operations
	// still run so a transient storage outage does not block the CLI.
	if err := storage.CheckBucket(context.Background(), store, cfg.Storage.Bucket); err != nil {
		logg.Warn("Storage bucket check failed", zap.Error(err))
	}

	c, err := cache.New(cfg.Cache.Dir, logg)
	if err != nil {
		return nil, err
	}

	// Database is optional; without it the audit log is a no-op.
	var audit *database.AuditStore
	if db, err := database.Connect(cfg.Database); err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
	} else if audit, err = database.NewAuditStore(db); err != nil {
		logg.Warn("Audit table migration failed", zap.Error(err))
		audit = nil
	}

	engine := syncer.NewEngine(logg, c,
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute, cfg.Guard.Concurrency)
	sources := buildSources(cfg, store)
	local := source.NewLocal(cfg.Sync.LocalRoot)

	return &runtime{
		cfg:     cfg,
		logger:  logg,
		service: profile.NewService(logg, engine, sources, local, c, audit),
	}, nil
}
