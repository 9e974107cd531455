package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/models"
)

// ProductPatch lists the fields an administrator may change. Nil fields are
// left as they are.
type ProductPatch struct {
	Brand           *string  `json:"brand"`
	Name            *string  `json:"name"`
	Type            *string  `json:"type"`
	Description     *string  `json:"description"`
	Status          *string  `json:"status"`
	Percentage      *float64 `json:"percentage"`
	ClearPercentage bool     `json:"clearPercentage"`
	Country         []string `json:"country"`
	ImageURL        *string  `json:"imageUrl"`
	VideoURL        *string  `json:"videoUrl"`
	WebsiteURL      *string  `json:"websiteUrl"`
	Approved        *bool    `json:"approved"`
}

func (p ProductPatch) apply(rec models.ProductRecord) (models.ProductRecord, error) {
	setString(&rec.Brand, p.Brand)
	setString(&rec.Name, p.Name)
	setString(&rec.Type, p.Type)
	setString(&rec.Description, p.Description)
	setString(&rec.ImageURL, p.ImageURL)
	setString(&rec.VideoURL, p.VideoURL)
	setString(&rec.WebsiteURL, p.WebsiteURL)
	if p.Status != nil {
		st, err := models.ParseStatus(*p.Status)
		if err != nil {
			return rec, err
		}
		rec.Status = st
	}
	if p.ClearPercentage {
		rec.Percentage = nil
	}
	if p.Percentage != nil {
		v := *p.Percentage
		rec.Percentage = &v
	}
	if p.Country != nil {
		rec.Country = cleanRegions(p.Country)
	}
	if p.Approved != nil {
		rec.Approved = *p.Approved
	}
	if rec.Brand == "" || rec.Name == "" || rec.Type == "" {
		return rec, errors.New("brand, name and type must not be empty")
	}
	return rec, models.CheckPercentage(rec.Status, rec.Percentage)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Moderator applies administrator mutations. Every mutation tries the
// remote store first; the offline cache entry follows on success, and is
// still written as a degraded fallback when the remote write fails.
type Moderator struct {
	remote RemoteStore
	cache  RecordCache
	bus    *events.Bus
	logger *slog.Logger
	now    Clock
}

// NewModerator builds a Moderator; cache may be nil in live-only mode.
func NewModerator(remote RemoteStore, cache RecordCache, bus *events.Bus, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Moderator{
		remote: remote,
		cache:  cache,
		bus:    bus,
		logger: logger.With("component", "moderator"),
		now:    utcNow,
	}
}

// Get returns a record from the remote store, or from the offline cache when
// the remote store does not have it or cannot be reached.
func (m *Moderator) Get(ctx context.Context, id string) (models.ProductRecord, error) {
	rec, _, err := m.load(ctx, id)
	return rec, err
}

// load reports whether the record only exists in the offline cache.
func (m *Moderator) load(ctx context.Context, id string) (models.ProductRecord, bool, error) {
	rec, remoteErr := m.remote.GetProduct(ctx, id)
	if remoteErr == nil {
		return rec, false, nil
	}
	if m.cache != nil {
		cached, ok, err := m.cache.Get(ctx, id)
		if err == nil && ok {
			return cached, true, nil
		}
	}
	if errors.Is(remoteErr, models.ErrNotFound) {
		return models.ProductRecord{}, false, remoteErr
	}
	return models.ProductRecord{}, false, fmt.Errorf("%w: %v", ErrRemoteUnavailable, remoteErr)
}

// Update applies patch to record id.
func (m *Moderator) Update(ctx context.Context, caller models.Caller, id string, patch ProductPatch) (models.ProductRecord, error) {
	if !caller.IsAdmin {
		return models.ProductRecord{}, ErrForbidden
	}
	current, onlyCached, err := m.load(ctx, id)
	if err != nil {
		return models.ProductRecord{}, err
	}
	updated, err := patch.apply(current)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	updated.UpdatedAt = m.now()

	if err := m.checkConflict(ctx, current, updated); err != nil {
		return models.ProductRecord{}, err
	}

	if onlyCached {
		err = m.remote.InsertProduct(ctx, updated)
	} else {
		err = m.remote.UpdateProduct(ctx, updated)
	}
	if err != nil {
		m.logger.Error("remote update failed, applying to offline cache only", "id", id, "error", err)
		if m.cache != nil {
			if cerr := m.cache.Put(ctx, updated); cerr != nil {
				m.logger.Error("offline cache update failed", "id", id, "error", cerr)
			}
		}
		return updated, fmt.Errorf("%w: update %s: %v", ErrRemoteUnavailable, id, err)
	}

	m.syncCache(ctx, updated, onlyCached)
	m.logger.Info("product updated", "id", id, "status", updated.Status, "approved", updated.Approved)
	if m.bus != nil {
		m.bus.RequestReload("product updated")
	}
	return updated, nil
}

// syncCache refreshes the cached copy after a successful remote write. A
// record promoted from the cache to the remote store leaves the cache.
func (m *Moderator) syncCache(ctx context.Context, rec models.ProductRecord, promoted bool) {
	if m.cache == nil {
		return
	}
	if promoted {
		if err := m.cache.Delete(ctx, rec.ID); err != nil {
			m.logger.Warn("could not drop promoted cache entry", "id", rec.ID, "error", err)
		}
		return
	}
	if _, ok, err := m.cache.Get(ctx, rec.ID); err == nil && ok {
		if err := m.cache.Put(ctx, rec); err != nil {
			m.logger.Warn("optimistic cache update failed", "id", rec.ID, "error", err)
		}
	}
}

// checkConflict keeps (brand, name) unique: a renamed record may not take an
// existing key, and an approved record may not share its key with another
// approved one.
func (m *Moderator) checkConflict(ctx context.Context, before, after models.ProductRecord) error {
	keyChanged := ProductKey(before.Brand, before.Name) != ProductKey(after.Brand, after.Name)
	if !keyChanged && !after.Approved {
		return nil
	}
	existing, err := persistedRecords(ctx, m.remote, m.cache, m.logger)
	if err != nil {
		m.logger.Warn("skipping conflict check, remote store unreadable", "id", after.ID, "error", err)
		return nil
	}
	key := ProductKey(after.Brand, after.Name)
	for _, r := range existing {
		if r.ID == after.ID || ProductKey(r.Brand, r.Name) != key {
			continue
		}
		if keyChanged || r.Approved {
			return fmt.Errorf("%w: %s %s (id %s)", ErrDuplicate, after.Brand, after.Name, r.ID)
		}
	}
	return nil
}

// Approve marks a record publicly visible.
func (m *Moderator) Approve(ctx context.Context, caller models.Caller, id string) (models.ProductRecord, error) {
	approved := true
	return m.Update(ctx, caller, id, ProductPatch{Approved: &approved})
}

// Delete removes a record from both sources.
func (m *Moderator) Delete(ctx context.Context, caller models.Caller, id string) error {
	if !caller.IsAdmin {
		return ErrForbidden
	}
	remoteErr := m.remote.DeleteProduct(ctx, id)
	if remoteErr != nil && !errors.Is(remoteErr, models.ErrNotFound) {
		m.logger.Error("remote delete failed", "id", id, "error", remoteErr)
		return fmt.Errorf("%w: delete %s: %v", ErrRemoteUnavailable, id, remoteErr)
	}

	cachedFound := false
	if m.cache != nil {
		if _, ok, err := m.cache.Get(ctx, id); err == nil && ok {
			cachedFound = true
		}
		if err := m.cache.Delete(ctx, id); err != nil {
			m.logger.Warn("offline cache delete failed", "id", id, "error", err)
		}
	}
	if remoteErr != nil && !cachedFound {
		return remoteErr
	}

	m.logger.Info("product deleted", "id", id)
	if m.bus != nil {
		m.bus.RequestReload("product deleted")
	}
	return nil
}

// SetTrustTier changes a contributor's tier.
func (m *Moderator) SetTrustTier(ctx context.Context, caller models.Caller, contributor string, tier models.TrustTier) error {
	if !caller.IsAdmin {
		return ErrForbidden
	}
	if strings.TrimSpace(contributor) == "" {
		return fmt.Errorf("%w: contributor id is required", ErrValidation)
	}
	if err := m.remote.SetTrustTier(ctx, contributor, tier); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	m.logger.Info("trust tier changed", "contributor", contributor, "tier", tier)
	return nil
}
