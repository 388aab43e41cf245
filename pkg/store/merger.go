package store

import (
	"context"
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/metrics"
	"github.com/reifydb/reifydb/pkg/types"
)

// MergerConfig controls how aggressively the background merger relocates
// versioned entries down the hot -> warm -> cold tier chain.
type MergerConfig struct {
	Interval   time.Duration
	HotMaxAge  int // versions: entries older than (currentVersion - HotMaxAge) move to warm
	WarmMaxAge int
	BatchLimit int // entries relocated per tick, bounds a single merge pass
}

// DefaultMergerConfig returns the merger thresholds config.Default starts
// from: a 30s interval, hot/warm ages of 10,000 and 1,000,000 versions, and
// 5,000 entries relocated per tick.
func DefaultMergerConfig() MergerConfig {
	return MergerConfig{
		Interval:   30 * time.Second,
		HotMaxAge:  10_000,
		WarmMaxAge: 1_000_000,
		BatchLimit: 5_000,
	}
}

// Merger is the ticker-loop background actor that ages entries out of the
// hot tier, grounded in the same ticker-driven actor shape the teacher used
// for its scheduler and reconciler loops.
type Merger struct {
	store  *BoltStore
	config MergerConfig
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewMerger(store *BoltStore, config MergerConfig) *Merger {
	return &Merger{store: store, config: config, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

func (m *Merger) Start(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	go func() {
		defer close(m.doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.tick(); err != nil {
					log.Logger.Error().Err(err).Msg("store merge tick failed")
				}
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Merger) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

// tick relocates entries whose version is older than the tier's max age
// threshold, relative to the store's current version, one bucket at a time.
func (m *Merger) tick() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.StoreCompactionDuration)

	current := m.store.currentVersion()
	if err := m.relocate(bucketHot, bucketWarm, current, m.config.HotMaxAge); err != nil {
		return err
	}
	return m.relocate(bucketWarm, bucketCold, current, m.config.WarmMaxAge)
}

func (m *Merger) relocate(from, to []byte, current types.CommitVersion, maxAge int) error {
	threshold := types.CommitVersion(0)
	if int(current) > maxAge {
		threshold = current - types.CommitVersion(maxAge)
	}

	return m.store.db.Update(func(tx *bolt.Tx) error {
		src := tx.Bucket(from)
		dst := tx.Bucket(to)
		c := src.Cursor()

		moved := 0
		var toDelete [][]byte
		for k, v := c.First(); k != nil && moved < m.config.BatchLimit; k, v = c.Next() {
			version := types.CommitVersion(binary.BigEndian.Uint64(k[len(k)-8:]))
			if version >= threshold {
				continue
			}
			if err := dst.Put(append([]byte(nil), k...), append([]byte(nil), v...)); err != nil {
				return err
			}
			toDelete = append(toDelete, append([]byte(nil), k...))
			moved++
		}
		for _, k := range toDelete {
			if err := src.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) currentVersion() types.CommitVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
