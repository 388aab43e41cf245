package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/flow"
)

// Operator is one runtime Flow DAG node. Process consumes one incoming
// change and returns the change to hand downstream, or nil if the node
// fully absorbed it (a sink, or a filter that dropped every diff).
type Operator interface {
	Process(ctx context.Context, change *flow.FlowChange) (*flow.FlowChange, error)
}

// EdgeAware is implemented by operators with more than one upstream edge
// (currently only JoinInner and LeftEagerJoin, which need to tell a left
// row from a right row). A DAG walker must check for this interface
// before merging two upstreams' diffs into one Process call, and instead
// call ProcessFrom once per distinct origin.
type EdgeAware interface {
	ProcessFrom(ctx context.Context, origin flow.NodeID, change *flow.FlowChange) (*flow.FlowChange, error)
}

// SourceTable and SourceView are passthrough identity nodes: they exist so
// the DAG has a labeled entry point per source primitive, matching
// the design notes's node catalogue, but apply no transformation themselves.
type SourceTable struct{ Name string }
type SourceView struct{ Name string }

func (s *SourceTable) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	return change, nil
}

func (s *SourceView) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	return change, nil
}

// SinkTable and SinkView absorb the final FlowChange, persisting it into
// the target primitive's row keyspace. The actual persistence is done by
// the caller (pkg/engine, which has a store handle); the sink operator's
// role in this package is only to mark the terminal node and pass the
// change through for the caller to apply.
type SinkTable struct{ Name string }
type SinkView struct{ Name string }

func (s *SinkTable) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	return change, nil
}

func (s *SinkView) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	return change, nil
}
