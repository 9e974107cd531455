package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Gautam3767/additive_registry_backend/models"
)

var (
	// ErrParse marks a bulk file that cannot be processed at all.
	ErrParse = errors.New("malformed import data")

	// ErrQuotaExceeded is returned when the caller has no submissions left.
	ErrQuotaExceeded = errors.New("submission quota exceeded")

	// ErrDuplicate is returned when a (brand, name) pair already exists.
	ErrDuplicate = errors.New("product already exists")

	// ErrForbidden is returned for admin-only operations.
	ErrForbidden = errors.New("administrator access required")

	// ErrValidation wraps field-level problems in a submission.
	ErrValidation = errors.New("invalid submission")

	// ErrRemoteUnavailable wraps remote store failures that were degraded
	// to the offline cache.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)

// RemoteStore is the authoritative record store.
type RemoteStore interface {
	ListProducts(ctx context.Context) ([]models.ProductRecord, error)
	GetProduct(ctx context.Context, id string) (models.ProductRecord, error)
	InsertProduct(ctx context.Context, rec models.ProductRecord) error
	UpdateProduct(ctx context.Context, rec models.ProductRecord) error
	DeleteProduct(ctx context.Context, id string) error
	CountPending(ctx context.Context, contributor string) (int, error)
	TrustTier(ctx context.Context, contributor string) (models.TrustTier, error)
	SetTrustTier(ctx context.Context, contributor string, tier models.TrustTier) error
}

// RecordCache is the offline key-value cache. Implementations are
// last-write-wins per id. A nil RecordCache means live-only mode.
type RecordCache interface {
	List(ctx context.Context) ([]models.ProductRecord, error)
	Get(ctx context.Context, id string) (models.ProductRecord, bool, error)
	Put(ctx context.Context, rec models.ProductRecord) error
	Delete(ctx context.Context, id string) error
}

// persistedRecords loads remote records, plus cached ones unless cache is nil.
// A remote failure is fatal; a cache failure only drops the cached half.
func persistedRecords(ctx context.Context, remote RemoteStore, cache RecordCache, logger *slog.Logger) ([]models.ProductRecord, error) {
	records, err := remote.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return records, nil
	}
	cached, err := cache.List(ctx)
	if err != nil {
		logger.Warn("offline cache unreadable, using remote records only", "error", err)
		return records, nil
	}
	return append(records, cached...), nil
}
