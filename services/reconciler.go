package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/metrics"
	"github.com/Gautam3767/additive_registry_backend/models"
)

// ViewRequest is the caller context for a reconciled view.
type ViewRequest struct {
	IsAdmin     bool
	IsAdminView bool
	Country     string
}

// AdminView reports whether the admin-only view applies; a non-admin
// asking for it gets the public view.
func (r ViewRequest) AdminView() bool {
	return r.IsAdmin && r.IsAdminView
}

func (r ViewRequest) cacheKey() string {
	return fmt.Sprintf("%t|%s", r.AdminView(), normalizeRegion(r.Country))
}

// View is the display-ready product list.
type View struct {
	Records     []models.ProductRecord `json:"records"`
	Pending     []models.ProductRecord `json:"pending,omitempty"` // admin views only
	Country     string                 `json:"country"`
	AdminView   bool                   `json:"adminView"`
	Stale       bool                   `json:"stale"`
	RefreshedAt time.Time              `json:"refreshedAt"`
}

func normalizeRegion(region string) string {
	region = fold(strings.TrimSpace(region))
	if region == "" {
		return fold(models.GlobalRegion)
	}
	return region
}

// InRegion reports whether rec is visible for the selected country.
// "Global" on either side, or a record without regions, matches anything.
func InRegion(rec models.ProductRecord, selected string) bool {
	global := fold(models.GlobalRegion)
	sel := normalizeRegion(selected)
	if sel == global || len(rec.Country) == 0 {
		return true
	}
	for _, c := range rec.Country {
		rc := normalizeRegion(c)
		if rc == global || rc == sel {
			return true
		}
	}
	return false
}

// Reconcile merges the two sources for req. Remote records take precedence:
// a cached record with the same id as a remote record is always dropped, and
// one with the same (brand, name) is dropped when that remote record is
// visible in this view. Non-admin views keep approved records only; admin
// views keep everything and list unapproved records separately, without
// region filtering, for moderation.
func Reconcile(remote, cached []models.ProductRecord, req ViewRequest) View {
	admin := req.AdminView()
	ids := make(map[string]struct{}, len(remote))
	keys := NewKeySet(nil)
	for _, r := range remote {
		ids[r.ID] = struct{}{}
		if admin || r.Approved {
			keys.Add(r)
		}
	}
	merged := make([]models.ProductRecord, 0, len(remote)+len(cached))
	merged = append(merged, remote...)
	for _, c := range cached {
		if _, ok := ids[c.ID]; ok {
			continue
		}
		if _, ok := keys.Lookup(c.Brand, c.Name); ok {
			continue
		}
		merged = append(merged, c)
	}

	view := View{
		Records:   make([]models.ProductRecord, 0, len(merged)),
		Country:   req.Country,
		AdminView: admin,
	}
	if view.Country == "" {
		view.Country = models.GlobalRegion
	}
	if admin {
		view.Pending = make([]models.ProductRecord, 0)
	}
	for _, rec := range merged {
		if admin && !rec.Approved {
			view.Pending = append(view.Pending, rec)
		}
		if !admin && !rec.Approved {
			continue
		}
		if !InRegion(rec, req.Country) {
			continue
		}
		view.Records = append(view.Records, rec)
	}
	return view
}

// ReconcilerConfig wires a Reconciler.
type ReconcilerConfig struct {
	Remote          RemoteStore
	Cache           RecordCache // nil in live-only mode
	Bus             *events.Bus
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	RefreshInterval time.Duration
	ViewCacheTTL    time.Duration
}

// Reconciler keeps a snapshot of both sources and serves filtered views.
// The snapshot is refreshed by Run on a timer and on bus signals.
type Reconciler struct {
	remote   RemoteStore
	cache    RecordCache
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	views    *cache.Cache
	fetches  atomic.Uint64

	// mu guards the snapshot. Cached views are flushed under the write lock
	// and stored under the read lock, so a view built from an old snapshot
	// can never outlive the Refresh that replaced it.
	mu          sync.RWMutex
	applied     uint64
	remoteRecs  []models.ProductRecord
	cachedRecs  []models.ProductRecord
	refreshedAt time.Time
	loaded      bool
	stale       bool
}

// NewReconciler builds a Reconciler from cfg.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if cfg.ViewCacheTTL <= 0 {
		cfg.ViewCacheTTL = time.Minute
	}
	return &Reconciler{
		remote:   cfg.Remote,
		cache:    cfg.Cache,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "reconciler"),
		interval: cfg.RefreshInterval,
		// No janitor goroutine: expired views are dropped lazily on Get.
		views: cache.New(cfg.ViewCacheTTL, 0),
	}
}

// Refresh re-fetches both sources. When the remote fetch fails the
// previous remote snapshot is kept, the view is marked stale and the error
// is returned; cached data is still served.
func (r *Reconciler) Refresh(ctx context.Context) error {
	seq := r.fetches.Add(1)
	var (
		g                      errgroup.Group
		remoteRecs, cachedRecs []models.ProductRecord
		remoteErr, cacheErr    error
	)
	g.Go(func() error {
		remoteRecs, remoteErr = r.remote.ListProducts(ctx)
		return remoteErr
	})
	if r.cache != nil {
		g.Go(func() error {
			cachedRecs, cacheErr = r.cache.List(ctx)
			return cacheErr
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	if seq < r.applied {
		// A refresh that started later has already been applied.
		r.mu.Unlock()
		if remoteErr != nil {
			return fmt.Errorf("%w: %v", ErrRemoteUnavailable, remoteErr)
		}
		return nil
	}
	r.applied = seq
	if cacheErr != nil {
		r.logger.Warn("offline cache read failed, keeping previous cache snapshot", "error", cacheErr)
	} else {
		r.cachedRecs = cachedRecs
	}
	if remoteErr != nil {
		r.stale = true
	} else {
		r.remoteRecs = remoteRecs
		r.stale = false
	}
	r.loaded = true
	r.refreshedAt = time.Now().UTC()
	total := len(r.remoteRecs) + len(r.cachedRecs)
	r.views.Flush()
	r.mu.Unlock()

	if remoteErr != nil {
		r.metrics.Reconcile(false, 0)
		r.logger.Error("remote fetch failed, serving cached data", "error", remoteErr)
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, remoteErr)
	}
	r.metrics.Reconcile(true, total)
	r.logger.Debug("snapshot refreshed", "remote", len(remoteRecs), "cached", len(cachedRecs))
	return nil
}

// Invalidate drops every cached view without re-fetching.
func (r *Reconciler) Invalidate() {
	r.mu.Lock()
	r.views.Flush()
	r.mu.Unlock()
}

// View returns the reconciled view for req, loading the snapshot on first use.
// A failed first fetch still yields a stale view built from the cache.
func (r *Reconciler) View(ctx context.Context, req ViewRequest) View {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		_ = r.Refresh(ctx)
	}

	key := req.cacheKey()
	if v, ok := r.views.Get(key); ok {
		return v.(View)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	view := Reconcile(r.remoteRecs, r.cachedRecs, req)
	view.Stale = r.stale
	view.RefreshedAt = r.refreshedAt
	r.views.SetDefault(key, view)
	return view
}

// Run refreshes on start, on every tick, and on bus signals until ctx ends.
func (r *Reconciler) Run(ctx context.Context) error {
	var signals <-chan events.Event
	if r.bus != nil {
		ch, unsubscribe := r.bus.Subscribe(8)
		defer unsubscribe()
		signals = ch
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshLogged(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refreshLogged(ctx, "timer")
		case ev, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			if _, invalidate := ev.(events.CacheInvalidated); invalidate {
				r.Invalidate()
			}
			r.refreshLogged(ctx, ev.Name())
		}
	}
}

func (r *Reconciler) refreshLogged(ctx context.Context, trigger string) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("refresh failed", "trigger", trigger, "error", err)
		return
	}
	r.logger.Debug("refresh done", "trigger", trigger)
}
