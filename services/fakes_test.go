package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gautam3767/additive_registry_backend/models"
)

var errRemoteDown = errors.New("connection refused")

// memoryRemote is an in-memory RemoteStore.
type memoryRemote struct {
	mu        sync.Mutex
	records   []models.ProductRecord
	tiers     map[string]models.TrustTier
	failList  bool
	failWrite bool
	inserts   int
}

func newMemoryRemote(records ...models.ProductRecord) *memoryRemote {
	return &memoryRemote{records: records, tiers: map[string]models.TrustTier{}}
}

func (m *memoryRemote) ListProducts(context.Context) ([]models.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errRemoteDown
	}
	return append([]models.ProductRecord(nil), m.records...), nil
}

func (m *memoryRemote) GetProduct(_ context.Context, id string) (models.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return models.ProductRecord{}, errRemoteDown
	}
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.ProductRecord{}, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
}

func (m *memoryRemote) InsertProduct(_ context.Context, rec models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errRemoteDown
	}
	m.inserts++
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryRemote) UpdateProduct(_ context.Context, rec models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errRemoteDown
	}
	for i, r := range m.records {
		if r.ID == rec.ID {
			m.records[i] = rec
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memoryRemote) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errRemoteDown
	}
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memoryRemote) CountPending(_ context.Context, contributor string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return 0, errRemoteDown
	}
	n := 0
	for _, r := range m.records {
		if !r.Approved && r.SubmittedBy == contributor {
			n++
		}
	}
	return n, nil
}

func (m *memoryRemote) TrustTier(_ context.Context, contributor string) (models.TrustTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tiers[contributor]; ok {
		return t, nil
	}
	return models.TierNew, nil
}

func (m *memoryRemote) SetTrustTier(_ context.Context, contributor string, tier models.TrustTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errRemoteDown
	}
	m.tiers[contributor] = tier
	return nil
}

func (m *memoryRemote) snapshot() []models.ProductRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ProductRecord(nil), m.records...)
}

// memoryCache is an in-memory RecordCache.
type memoryCache struct {
	mu      sync.Mutex
	records map[string]models.ProductRecord
	order   []string
}

func newMemoryCache(records ...models.ProductRecord) *memoryCache {
	c := &memoryCache{records: map[string]models.ProductRecord{}}
	for _, r := range records {
		_ = c.Put(context.Background(), r)
	}
	return c
}

func (c *memoryCache) List(context.Context) ([]models.ProductRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ProductRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.records[id])
	}
	return out, nil
}

func (c *memoryCache) Get(_ context.Context, id string) (models.ProductRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[id]
	return r, ok, nil
}

func (c *memoryCache) Put(_ context.Context, rec models.ProductRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[rec.ID]; !ok {
		c.order = append(c.order, rec.ID)
	}
	c.records[rec.ID] = rec
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; !ok {
		return nil
	}
	delete(c.records, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedClock() Clock {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func record(id, brand, name string, approved bool, country ...string) models.ProductRecord {
	return models.ProductRecord{
		ID:       id,
		Brand:    brand,
		Name:     name,
		Type:     "detergent",
		Status:   models.StatusNeedsVerification,
		Approved: approved,
		Country:  country,
	}
}
