/*
Package store implements ReifyDB's multi-version key-value layer: every
write is stamped with the CommitVersion that produced it, nothing is
overwritten in place, and reads are always as-of a version (MVCC).

# Architecture

Storage is tiered by version age, all three tiers backed by a single BoltDB
(bbolt) file:

	┌──────────────────────── TIERED STORE ─────────────────────────┐
	│                                                                  │
	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────┐       │
	│  │     hot      │──▶│     warm     │──▶│     cold     │       │
	│  │ recent        │   │  aging       │   │  retained    │       │
	│  │ versions      │   │  versions    │   │  versions    │       │
	│  └──────────────┘   └──────────────┘   └──────────────┘       │
	│         ▲                                                       │
	│         │ Commit(deltas) assigns the next CommitVersion         │
	│         │                                                       │
	│  ┌──────┴───────────────────────────────────────────────┐      │
	│  │                    merger (background)                │      │
	│  │  ticks on an interval, walks hot for versions older    │      │
	│  │  than the configured threshold, and relocates them     │      │
	│  │  down a tier - grounded in the same ticker-loop         │      │
	│  │  actor shape used for the engine's deferred flow loop  │      │
	│  └─────────────────────────────────────────────────────┘      │
	│                                                                  │
	└──────────────────────────────────────────────────────────────┘

Each tier is a flat bbolt bucket keyed by key-bytes followed by an 8-byte
big-endian CommitVersion, so a single Cursor.Seek finds the newest version of
a key at or before a given point in time without a secondary index.

A separate bucket holds one CDC entry per committed version, so a consumer
can replay changes in commit order starting from any previously checkpointed
version (the design notes, "Change Data Capture").

# Design Patterns

Upsert via append, not overwrite:
  - Every Commit appends new versioned entries; nothing is mutated in place.
  - Visibility of a key at a version is a property of which entries exist at
    or below that version, not of a single current value.

Tombstones carry weight:
  - Unset/Remove deltas are written as an explicit tombstone entry rather
    than an absence, so a reader positioned at an old version still sees
    "this key did not exist yet" versus "this key was removed here."

Drop is a synchronous retention delete:
  - Drop(key, upToVersion, keepLastVersions) deletes, in one write
    transaction, every version of key at or below upToVersion except the
    most recent keepLastVersions, counted across all tiers.
*/
package store
