package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Gautam3767/additive_registry_backend/config"
	"github.com/Gautam3767/additive_registry_backend/database"
	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/metrics"
	"github.com/Gautam3767/additive_registry_backend/models"
	"github.com/Gautam3767/additive_registry_backend/services"
)

// app is the wired service graph shared by the commands.
type app struct {
	remote *database.RemoteStore
	cache  *database.BadgerCache // nil in live-only mode

	bus        *events.Bus
	metrics    *metrics.Metrics
	limiter    *services.SubmissionLimiter
	pipeline   *services.BulkIngestionPipeline
	submitter  *services.Submitter
	moderator  *services.Moderator
	reconciler *services.Reconciler
	extractor  services.TextExtractor
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	remote, err := database.Connect(ctx, database.MongoConfig{
		URI:                    cfg.MongoURI,
		Database:               cfg.MongoDatabase,
		ProductsCollection:     cfg.ProductsCollection,
		ContributorsCollection: cfg.ContributorsCollection,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect remote store: %w", err)
	}
	a := &app{
		remote:  remote,
		bus:     events.NewBus(logger),
		metrics: metrics.New(),
	}

	// A nil *BadgerCache must not leak into the interface.
	var recordCache services.RecordCache
	if cfg.LiveOnly {
		logger.Info("live-only mode, offline cache disabled")
	} else {
		c, err := database.OpenCache(database.CacheConfig{Path: cfg.CachePath, Logger: logger})
		if err != nil {
			_ = remote.Disconnect(ctx)
			return nil, err
		}
		a.cache = c
		recordCache = c
	}

	limits := services.TierLimits{
		models.TierNew:      cfg.QuotaNew,
		models.TierTrusted:  cfg.QuotaTrusted,
		models.TierVerified: cfg.QuotaVerified,
	}
	a.limiter = services.NewSubmissionLimiter(remote, recordCache, limits, a.metrics, logger)
	a.pipeline = services.NewBulkIngestionPipeline(services.PipelineConfig{
		Remote:  remote,
		Cache:   recordCache,
		Limiter: a.limiter,
		Bus:     a.bus,
		Metrics: a.metrics,
		Logger:  logger,
	})
	a.submitter = services.NewSubmitter(services.SubmitterConfig{
		Remote:  remote,
		Cache:   recordCache,
		Matcher: services.NewKeywordMatcher(cfg.Keywords),
		Limiter: a.limiter,
		Bus:     a.bus,
		Metrics: a.metrics,
		Logger:  logger,
	})
	a.moderator = services.NewModerator(remote, recordCache, a.bus, logger)
	a.reconciler = services.NewReconciler(services.ReconcilerConfig{
		Remote:          remote,
		Cache:           recordCache,
		Bus:             a.bus,
		Metrics:         a.metrics,
		Logger:          logger,
		RefreshInterval: cfg.RefreshInterval,
		ViewCacheTTL:    cfg.ViewCacheTTL,
	})
	a.extractor = &services.PDFTextExtractor{Timeout: cfg.PDFTimeout, Logger: logger}
	return a, nil
}

func (a *app) Close(ctx context.Context) error {
	a.bus.Close()
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.remote.Disconnect(ctx))
	return errors.Join(errs...)
}
