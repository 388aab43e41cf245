package store

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// Store is ReifyDB's multi-version key-value contract (the design notes). All
// reads take an explicit as-of CommitVersion; types.VersionLatest reads the
// most recently committed state visible to the caller.
type Store interface {
	Get(ctx context.Context, key types.EncodedKey, asOf types.CommitVersion) ([]byte, bool, error)
	Contains(ctx context.Context, key types.EncodedKey, asOf types.CommitVersion) (bool, error)

	Range(ctx context.Context, start, end types.EncodedKey, asOf types.CommitVersion) (Iterator, error)
	RangeRev(ctx context.Context, start, end types.EncodedKey, asOf types.CommitVersion) (Iterator, error)
	Prefix(ctx context.Context, prefix types.EncodedKey, asOf types.CommitVersion) (Iterator, error)

	// Commit applies deltas atomically, assigns them the next
	// CommitVersion, and records one CDCEntry for the batch.
	Commit(ctx context.Context, deltas []types.Delta) (types.CommitVersion, error)

	// Drop deletes versions of key at or below upToVersion, beyond the
	// most recent keepLastVersions.
	Drop(ctx context.Context, key types.EncodedKey, upToVersion types.CommitVersion, keepLastVersions int) error

	// CDCRange returns committed change entries with from < Version <= to,
	// in commit order.
	CDCRange(ctx context.Context, from, to types.CommitVersion) ([]types.CDCEntry, error)

	// CurrentVersion returns the most recently assigned CommitVersion,
	// used by pkg/txn to establish a new transaction's snapshot.
	CurrentVersion(ctx context.Context) (types.CommitVersion, error)

	Close() error
}

// Iterator walks a range of (key, version) pairs in a single tier-merged
// view, newest-visible-version-first per key.
type Iterator interface {
	Next() bool
	Key() types.EncodedKey
	Value() []byte
	Version() types.CommitVersion
	Err() error
	Close() error
}
