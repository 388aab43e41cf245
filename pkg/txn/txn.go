// Package txn implements ReifyDB's snapshot-isolation transaction layer
// (the design notes, "Transactions"): every Txn reads a fixed as-of snapshot and
// buffers its writes until Commit, which checks for write-write conflicts
// against everything committed since the snapshot was taken.
package txn

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/metrics"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/txn/interceptor"
	"github.com/reifydb/reifydb/pkg/types"
)

// Kind is the closed set of transaction kinds (the design notes). Query
// transactions never write; Command and Admin transactions may, and differ
// only in which catalog operations they're permitted to run (enforced by
// pkg/catalog, not here).
type Kind uint8

const (
	KindQuery Kind = iota
	KindCommand
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindCommand:
		return "command"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Coordinator opens transactions against one Store and serializes the
// check-then-commit sequence that write-write conflict detection depends
// on: the mutex here, not the store's own internal locking, is what makes
// "read CDCRange since the snapshot, then commit" atomic with respect to
// other Command/Admin transactions.
type Coordinator struct {
	store store.Store
	chain *interceptor.Chain

	mu sync.Mutex
}

func NewCoordinator(s store.Store, chain *interceptor.Chain) *Coordinator {
	if chain == nil {
		chain = interceptor.NewChain()
	}
	return &Coordinator{store: s, chain: chain}
}

// Begin opens a new transaction snapshotted at the store's current
// CommitVersion.
func (c *Coordinator) Begin(ctx context.Context, kind Kind) (*Txn, error) {
	version, err := c.store.CurrentVersion(ctx)
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.InternalError, err, "failed to read current version")
	}

	t := &Txn{
		id:           uuid.New(),
		kind:         kind,
		coord:        c,
		beginVersion: version,
		pendingIndex: make(map[string]int),
	}
	metrics.TxnActive.WithLabelValues(kind.String()).Inc()
	return t, nil
}

// commitLocked runs the conflict check and the commit itself. Callers must
// hold c.mu for Command/Admin transactions.
func (c *Coordinator) commitLocked(ctx context.Context, t *Txn) (types.CommitVersion, error) {
	if len(t.pending) == 0 {
		return t.beginVersion, nil
	}

	if t.kind != KindQuery {
		latest, err := c.store.CurrentVersion(ctx)
		if err != nil {
			return 0, diagnostic.Wrap(diagnostic.InternalError, err, "failed to read current version")
		}
		if latest > t.beginVersion {
			entries, err := c.store.CDCRange(ctx, t.beginVersion, latest)
			if err != nil {
				return 0, diagnostic.Wrap(diagnostic.InternalError, err, "failed to scan CDC range for conflicts")
			}
			writes := t.writeKeySet()
			for _, entry := range entries {
				for _, ch := range entry.Changes {
					if _, conflicted := writes[string(ch.Key)]; conflicted {
						metrics.TxnConflictsTotal.Inc()
						return 0, diagnostic.Newf(diagnostic.TxnConflict,
							"key %x was modified by a concurrent commit at version %d", []byte(ch.Key), entry.Version)
					}
				}
			}
		}
	}

	ev := &interceptor.Event{Deltas: t.pending}
	if err := c.chain.RunPreCommit(ctx, ev); err != nil {
		return 0, err
	}
	// Pre-commit interceptors (e.g. the transactional flow cascade) may
	// append further writes to ev.Deltas; pick those up so they commit
	// atomically with the rest of this transaction (the design notes,
	// "Transactional (inline) flow").
	t.pending = ev.Deltas
	if err := c.chain.RunPreEntity(ctx, t.pending); err != nil {
		return 0, err
	}

	timer := metrics.NewTimer()
	version, err := c.store.Commit(ctx, t.pending)
	timer.ObserveDurationVec(metrics.TxnCommitDuration, t.kind.String())
	if err != nil {
		return 0, err
	}

	if entries, cdcErr := c.store.CDCRange(ctx, version-1, version); cdcErr == nil && len(entries) > 0 {
		ev.Changes = entries[0].Changes
	}
	c.chain.RunPostCommit(ctx, ev)
	c.chain.RunPostEntity(ctx, t.pending)

	return version, nil
}

// Txn is one snapshot-isolated transaction. It is not safe for concurrent
// use by multiple goroutines.
type Txn struct {
	id           uuid.UUID
	kind         Kind
	coord        *Coordinator
	beginVersion types.CommitVersion

	pending      []types.Delta
	pendingIndex map[string]int

	done bool
}

func (t *Txn) ID() string                        { return t.id.String() }
func (t *Txn) Kind() Kind                        { return t.kind }
func (t *Txn) BeginVersion() types.CommitVersion { return t.beginVersion }

// Get reads key as of the transaction's snapshot, layered with this
// transaction's own uncommitted writes (read-your-own-writes).
func (t *Txn) Get(ctx context.Context, key types.EncodedKey) ([]byte, bool, error) {
	if idx, ok := t.pendingIndex[string(key)]; ok {
		d := t.pending[idx]
		if d.IsTombstone() {
			return nil, false, nil
		}
		return d.Values, true, nil
	}
	return t.coord.store.Get(ctx, key, t.beginVersion)
}

// Contains is Get without the value payload.
func (t *Txn) Contains(ctx context.Context, key types.EncodedKey) (bool, error) {
	_, ok, err := t.Get(ctx, key)
	return ok, err
}

// Range, RangeRev and Prefix read the transaction's snapshot from the store
// merged with this transaction's own pending writes (read-your-own-writes),
// matching the design notes' "all see the txn's snapshot union the txn's
// pending writes" contract: a pending write for a key in range overrides
// whatever the store holds for that key, including masking it entirely if
// the pending write is a tombstone.
func (t *Txn) Range(ctx context.Context, start, end types.EncodedKey) (store.Iterator, error) {
	it, err := t.coord.store.Range(ctx, start, end, t.beginVersion)
	if err != nil {
		return nil, err
	}
	pending := t.pendingInRange(start, end)
	return newMergeIterator(it, pending, false), nil
}

func (t *Txn) RangeRev(ctx context.Context, start, end types.EncodedKey) (store.Iterator, error) {
	it, err := t.coord.store.RangeRev(ctx, start, end, t.beginVersion)
	if err != nil {
		return nil, err
	}
	pending := t.pendingInRange(start, end)
	return newMergeIterator(it, pending, true), nil
}

func (t *Txn) Prefix(ctx context.Context, prefix types.EncodedKey) (store.Iterator, error) {
	it, err := t.coord.store.Prefix(ctx, prefix, t.beginVersion)
	if err != nil {
		return nil, err
	}
	pending := t.pendingWithPrefix(prefix)
	return newMergeIterator(it, pending, false), nil
}

// pendingInRange returns this transaction's pending deltas whose key falls
// in [start, end), sorted ascending by key bytes - the order
// newMergeIterator requires to merge against the store's own ordered
// iterator.
func (t *Txn) pendingInRange(start, end types.EncodedKey) []types.Delta {
	out := make([]types.Delta, 0, len(t.pending))
	for _, d := range t.pending {
		if bytes.Compare(d.Key, start) >= 0 && (end == nil || bytes.Compare(d.Key, end) < 0) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out
}

// pendingWithPrefix returns this transaction's pending deltas whose key has
// the given prefix, sorted ascending by key bytes.
func (t *Txn) pendingWithPrefix(prefix types.EncodedKey) []types.Delta {
	out := make([]types.Delta, 0, len(t.pending))
	for _, d := range t.pending {
		if bytes.HasPrefix(d.Key, prefix) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out
}

func (t *Txn) Set(ctx context.Context, key types.EncodedKey, values []byte) error {
	if t.kind == KindQuery {
		return diagnostic.New(diagnostic.TxnConflict, "query transactions cannot write")
	}
	t.put(types.Set(key, values))
	return nil
}

func (t *Txn) Unset(ctx context.Context, key types.EncodedKey, lastValues []byte) error {
	if t.kind == KindQuery {
		return diagnostic.New(diagnostic.TxnConflict, "query transactions cannot write")
	}
	t.put(types.Unset(key, lastValues))
	return nil
}

func (t *Txn) Remove(ctx context.Context, key types.EncodedKey) error {
	if t.kind == KindQuery {
		return diagnostic.New(diagnostic.TxnConflict, "query transactions cannot write")
	}
	t.put(types.Remove(key))
	return nil
}

func (t *Txn) put(d types.Delta) {
	key := string(d.Key)
	if idx, ok := t.pendingIndex[key]; ok {
		t.pending[idx] = d
		return
	}
	t.pendingIndex[key] = len(t.pending)
	t.pending = append(t.pending, d)
}

func (t *Txn) writeKeySet() map[string]struct{} {
	out := make(map[string]struct{}, len(t.pending))
	for _, d := range t.pending {
		out[string(d.Key)] = struct{}{}
	}
	return out
}

// Commit validates and applies the transaction's pending writes. It is a
// no-op for a Query transaction or one with no pending writes.
func (t *Txn) Commit(ctx context.Context) (types.CommitVersion, error) {
	if t.done {
		return 0, diagnostic.New(diagnostic.InternalError, "transaction already finished")
	}
	defer t.finish()

	if t.kind != KindQuery {
		t.coord.mu.Lock()
		defer t.coord.mu.Unlock()
	}

	version, err := t.coord.commitLocked(ctx, t)
	if err != nil {
		txnLogger := log.WithTxnID(t.ID())
		txnLogger.Warn().Str("kind", t.kind.String()).Err(err).Msg("transaction aborted")
		return 0, err
	}
	return version, nil
}

// Rollback discards the transaction's pending writes without touching the
// store.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	t.finish()
}

func (t *Txn) finish() {
	t.done = true
	t.pending = nil
	t.pendingIndex = nil
	metrics.TxnActive.WithLabelValues(t.kind.String()).Dec()
}

// mergeIterator merges a store.Iterator (the committed snapshot, already in
// key order) with a sorted slice of this transaction's own pending deltas,
// giving the pending delta priority whenever both sides have the same key -
// the read-your-own-writes overlay Range/RangeRev/Prefix need. Tombstoned
// pending keys (Unset/Remove) are skipped rather than surfaced, matching
// Get's "tombstone reads as absent" behavior.
type mergeIterator struct {
	store   store.Iterator
	pending []types.Delta
	rev     bool

	storeDone  bool
	pendingIdx int
	curKey     types.EncodedKey
	curValue   []byte
	curVersion types.CommitVersion
	err        error
}

func newMergeIterator(it store.Iterator, pending []types.Delta, rev bool) *mergeIterator {
	m := &mergeIterator{store: it, pending: pending, rev: rev}
	m.storeDone = !it.Next()
	if rev {
		m.pendingIdx = len(pending) - 1
	} else {
		m.pendingIdx = 0
	}
	return m
}

func (m *mergeIterator) hasPending() bool {
	if m.rev {
		return m.pendingIdx >= 0
	}
	return m.pendingIdx < len(m.pending)
}

func (m *mergeIterator) pendingKey() types.EncodedKey { return m.pending[m.pendingIdx].Key }

func (m *mergeIterator) advancePending() {
	if m.rev {
		m.pendingIdx--
	} else {
		m.pendingIdx++
	}
}

func (m *mergeIterator) advanceStore() {
	if !m.store.Next() {
		m.storeDone = true
		if err := m.store.Err(); err != nil {
			m.err = err
		}
	}
}

// Next advances to the next (key, value) pair in merged order, skipping
// tombstoned pending entries and any store entry a pending entry shadows.
func (m *mergeIterator) Next() bool {
	for {
		if m.err != nil {
			return false
		}
		if m.storeDone && !m.hasPending() {
			return false
		}

		var takePending bool
		switch {
		case m.storeDone:
			takePending = true
		case !m.hasPending():
			takePending = false
		default:
			cmp := bytes.Compare(m.pendingKey(), m.store.Key())
			if m.rev {
				takePending = cmp >= 0
			} else {
				takePending = cmp <= 0
			}
		}

		if takePending {
			d := m.pending[m.pendingIdx]
			m.advancePending()
			// A pending write shadows the store's value for the same
			// key; drop the store side too so it isn't yielded again
			// on the next call.
			if !m.storeDone && bytes.Equal(d.Key, m.store.Key()) {
				m.advanceStore()
			}
			if d.IsTombstone() {
				continue
			}
			m.curKey, m.curValue, m.curVersion = d.Key, d.Values, types.VersionLatest
			return true
		}

		m.curKey, m.curValue, m.curVersion = m.store.Key(), m.store.Value(), m.store.Version()
		m.advanceStore()
		return true
	}
}

func (m *mergeIterator) Key() types.EncodedKey       { return m.curKey }
func (m *mergeIterator) Value() []byte               { return m.curValue }
func (m *mergeIterator) Version() types.CommitVersion { return m.curVersion }
func (m *mergeIterator) Err() error                   { return m.err }
func (m *mergeIterator) Close() error                 { return m.store.Close() }
