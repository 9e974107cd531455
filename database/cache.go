package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/Gautam3767/additive_registry_backend/models"
)

const productKeyPrefix = "product/"

// CacheConfig configures the offline cache.
type CacheConfig struct {
	// Path is the directory for cache files; ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// BadgerCache is the local offline record cache. Writes are last-write-wins
// per record id.
type BadgerCache struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenCache opens (or creates) the cache.
func OpenCache(cfg CacheConfig) (*BadgerCache, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "offline_cache")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("cache path is required for a persistent cache")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open offline cache: %w", err)
	}
	return &BadgerCache{db: db, logger: logger}, nil
}

// Close releases the cache files.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func productKey(id string) []byte {
	return []byte(productKeyPrefix + id)
}

// List returns every cached record.
func (c *BadgerCache) List(ctx context.Context) ([]models.ProductRecord, error) {
	var records []models.ProductRecord
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(productKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var rec models.ProductRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					c.logger.Warn("skipping unreadable cache entry", "key", string(item.Key()), "error", err)
					return nil
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cached products: %w", err)
	}
	return records, nil
}

// Get returns the cached record and whether it exists.
func (c *BadgerCache) Get(_ context.Context, id string) (models.ProductRecord, bool, error) {
	var rec models.ProductRecord
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(productKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.ProductRecord{}, false, nil
	}
	if err != nil {
		return models.ProductRecord{}, false, fmt.Errorf("get cached product %s: %w", id, err)
	}
	return rec, true, nil
}

// Put stores rec, overwriting any previous entry with the same id.
func (c *BadgerCache) Put(_ context.Context, rec models.ProductRecord) error {
	if rec.ID == "" {
		return errors.New("cannot cache a record without id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode product %s: %w", rec.ID, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(productKey(rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("cache product %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes the entry; deleting a missing id is not an error.
func (c *BadgerCache) Delete(_ context.Context, id string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(productKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete cached product %s: %w", id, err)
	}
	return nil
}
