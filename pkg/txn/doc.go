// Package txn provides snapshot-isolated transactions over pkg/store.
//
// # Isolation level
//
// A Txn reads a fixed snapshot taken at Begin and buffers every write until
// Commit. Commit detects write-write conflicts only: it scans the CDC
// entries committed since the snapshot and aborts with diagnostic.TxnConflict
// if any of them touched a key this transaction also wrote. Reads are never
// checked against concurrent writes, so write skew - two transactions each
// reading data the other changes, then writing disjoint keys based on a
// stale joint view - is not prevented. This is the documented behavior of
// snapshot isolation, not a bug; see txn_test.go's write-skew scenario.
//
// # Usage
//
//	coord := txn.NewCoordinator(s, interceptor.NewChain())
//	t, err := coord.Begin(ctx, txn.KindCommand)
//	_ = t.Set(ctx, key, encodedRow)
//	version, err := t.Commit(ctx)
//
// # Conflict detection
//
// Coordinator serializes the check-then-commit sequence for Command and
// Admin transactions with its own mutex: without it, two transactions could
// both observe no conflicting CDC entries and then both commit, each
// invisible to the other's check. Query transactions skip the lock and the
// check entirely since they never write.
package txn
