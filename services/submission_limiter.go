package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gautam3767/additive_registry_backend/metrics"
	"github.com/Gautam3767/additive_registry_backend/models"
)

// TierLimits maps a trust tier to its maximum number of pending records.
type TierLimits map[models.TrustTier]int

// DefaultTierLimits returns the stock quotas. VERIFIED is effectively unlimited.
func DefaultTierLimits() TierLimits {
	return TierLimits{
		models.TierNew:      3,
		models.TierTrusted:  10,
		models.TierVerified: 1000,
	}
}

// QuotaRequest asks whether Count more records may be submitted.
type QuotaRequest struct {
	Caller models.Caller
	Bulk   bool
	Count  int
}

// ComputeQuota derives the quota for a tier and pending count. Admins are
// always allowed and unbounded.
func ComputeQuota(tier models.TrustTier, limits TierLimits, pending, requested int, isAdmin bool) models.SubmissionQuota {
	if isAdmin || tier == models.TierAdmin {
		return models.SubmissionQuota{
			TrustTier:        models.TierAdmin,
			MaxAllowed:       -1,
			RemainingAllowed: -1,
			Unlimited:        true,
			Allowed:          true,
		}
	}
	maxAllowed, ok := limits[tier]
	if !ok {
		tier = models.TierNew
		maxAllowed = limits[models.TierNew]
	}
	remaining := maxAllowed - pending
	if remaining < 0 {
		remaining = 0
	}
	return models.SubmissionQuota{
		TrustTier:        tier,
		MaxAllowed:       maxAllowed,
		RemainingAllowed: remaining,
		Allowed:          remaining >= requested,
	}
}

// SubmissionLimiter computes per-contributor quotas from live pending counts.
type SubmissionLimiter struct {
	remote  RemoteStore
	cache   RecordCache
	limits  TierLimits
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSubmissionLimiter builds a limiter; cache may be nil in live-only mode.
func NewSubmissionLimiter(remote RemoteStore, cache RecordCache, limits TierLimits, m *metrics.Metrics, logger *slog.Logger) *SubmissionLimiter {
	if limits == nil {
		limits = DefaultTierLimits()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionLimiter{
		remote:  remote,
		cache:   cache,
		limits:  limits,
		metrics: m,
		logger:  logger.With("component", "submission_limiter"),
	}
}

// Check recomputes the caller's quota. It must be called again after every
// successful submission since the pending count changes.
func (l *SubmissionLimiter) Check(ctx context.Context, req QuotaRequest) (models.SubmissionQuota, error) {
	requested := req.Count
	if !req.Bulk && requested < 1 {
		requested = 1
	}
	if req.Caller.IsAdmin {
		return ComputeQuota(models.TierAdmin, l.limits, 0, requested, true), nil
	}

	tier := models.TierNew
	if !req.Caller.Anonymous {
		t, err := l.remote.TrustTier(ctx, req.Caller.UserID)
		if err != nil {
			l.logger.Warn("trust tier lookup failed, using NEW", "user", req.Caller.UserID, "error", err)
		} else {
			tier = t
		}
	}

	pending, err := l.pendingCount(ctx, req.Caller.UserID)
	if err != nil {
		return models.SubmissionQuota{}, err
	}

	q := ComputeQuota(tier, l.limits, pending, requested, false)
	if !q.Allowed {
		l.metrics.QuotaDenied(string(q.TrustTier))
	}
	l.logger.Debug("quota computed",
		"user", req.Caller.UserID, "tier", q.TrustTier, "pending", pending,
		"requested", requested, "bulk", req.Bulk, "remaining", q.RemainingAllowed, "allowed", q.Allowed)
	return q, nil
}

func (l *SubmissionLimiter) pendingCount(ctx context.Context, contributor string) (int, error) {
	n, err := l.remote.CountPending(ctx, contributor)
	if err != nil {
		return 0, fmt.Errorf("count pending submissions: %w", err)
	}
	if l.cache == nil {
		return n, nil
	}
	cached, err := l.cache.List(ctx)
	if err != nil {
		l.logger.Warn("offline cache unreadable while counting pending", "error", err)
		return n, nil
	}
	for _, r := range cached {
		if !r.Approved && r.SubmittedBy == contributor {
			n++
		}
	}
	return n, nil
}
