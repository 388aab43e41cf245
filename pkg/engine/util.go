package engine

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/reifydb/reifydb/pkg/flow"
)

// bg is used by the handful of interface methods pkg/flow declares without a
// context.Context parameter (transactional.Source.Decode, flowTxn.Write):
// decoding a row never blocks on anything but the in-process store, so a
// background context is the right default rather than threading one through
// an interface contract this package doesn't own.
func bg() context.Context { return context.Background() }

// hashRow content-addresses a flow.Row for view row identity: a view has no
// primary key of its own, so the row a Sink write targets is identified by
// the hash of its values rather than by a stored key. Two rows with the same
// columns and values collide by construction, which is the same identity a
// plain FILTER/MAP view's output rows have in SQL (the design notes never
// distinguishes duplicate rows it didn't aggregate).
func hashRow(r *flow.Row) uint64 {
	h := xxhash.New()
	for i, v := range r.Values {
		fmt.Fprintf(h, "%s=%v;", r.Columns[i], v)
	}
	return h.Sum64()
}
