package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
)

type BadgerCache struct {
	db      *badger.DB
	metrics *Metrics
	config  *BadgerConfig
	stopGC  chan struct{}
}

type BadgerConfig struct {
	Path           string
	InMemory       bool
	MaxMemoryMB    int
	NumGoroutines  int
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns settings sized for a handful of adapters.
func DefaultBadgerConfig(path string) *BadgerConfig {
	return &BadgerConfig{
		Path:           path,
		MaxMemoryMB:    16,
		NumGoroutines:  2,
		GCInterval:     30 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func NewBadgerCache(config *BadgerConfig) (*BadgerCache, error) {
	if config.GCInterval == 0 {
		config.GCInterval = 30 * time.Minute
	}
	if config.GCDiscardRatio == 0 {
		config.GCDiscardRatio = 0.5
	}
	if config.Path == "" && !config.InMemory {
		return nil, fmt.Errorf("badger path is required unless running in memory")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}

	if config.MaxMemoryMB > 0 {
		opts = opts.WithMemTableSize(int64(config.MaxMemoryMB) << 20)
	}
	if config.NumGoroutines > 0 {
		opts = opts.WithNumGoroutines(config.NumGoroutines)
	}
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	c := &BadgerCache{
		db:      db,
		metrics: &Metrics{},
		config:  config,
		stopGC:  make(chan struct{}),
	}

	if !config.InMemory {
		go c.runGC()
	}

	return c, nil
}

func (bc *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if item.IsDeletedOrExpired() {
			return badger.ErrKeyNotFound
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		atomic.AddUint64(&bc.metrics.Misses, 1)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	atomic.AddUint64(&bc.metrics.Hits, 1)
	return value, nil
}

func (bc *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Sets, 1)
	}

	return err
}

func (bc *BadgerCache) Delete(ctx context.Context, key string) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, 1)
	}

	return err
}

func (bc *BadgerCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := []byte(strings.TrimSuffix(pattern, "*"))

	var keys [][]byte
	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = bc.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, uint64(len(keys)))
	}

	return err
}

func (bc *BadgerCache) GetMetrics() *Metrics {
	bc.updateSizeMetrics()
	return &Metrics{
		Hits:    atomic.LoadUint64(&bc.metrics.Hits),
		Misses:  atomic.LoadUint64(&bc.metrics.Misses),
		Sets:    atomic.LoadUint64(&bc.metrics.Sets),
		Deletes: atomic.LoadUint64(&bc.metrics.Deletes),
		Size:    atomic.LoadUint64(&bc.metrics.Size),
		Keys:    atomic.LoadUint64(&bc.metrics.Keys),
	}
}

func (bc *BadgerCache) Close() error {
	close(bc.stopGC)
	return bc.db.Close()
}

func (bc *BadgerCache) runGC() {
	ticker := time.NewTicker(bc.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bc.performGC()
		case <-bc.stopGC:
			return
		}
	}
}

func (bc *BadgerCache) performGC() {
	startTime := time.Now()
	cycles := 0

	for {
		err := bc.db.RunValueLogGC(bc.config.GCDiscardRatio)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				if cycles > 0 {
					logging.Debugf("Badger GC completed %d cycles in %v", cycles, time.Since(startTime))
				}
				break
			}
			logging.Warnf("Badger GC error after %d cycles: %v", cycles, err)
			break
		}
		cycles++
	}
}

func (bc *BadgerCache) updateSizeMetrics() {
	lsm, vlog := bc.db.Size()
	atomic.StoreUint64(&bc.metrics.Size, uint64(lsm+vlog))

	var keyCount uint64
	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keyCount++
		}
		return nil
	})

	if err == nil {
		atomic.StoreUint64(&bc.metrics.Keys, keyCount)
	}
}
