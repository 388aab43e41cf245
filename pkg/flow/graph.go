package flow

import "github.com/reifydb/reifydb/pkg/diagnostic"

// NodeID identifies one operator within a Flow's DAG.
type NodeID string

// NodeKind is the closed set of Flow operator kinds (the design notes, "Model"):
// one tagged variant instead of a trait-object hierarchy, per the design
// notes' "Dynamic dispatch" guidance.
type NodeKind uint8

const (
	NodeSourceTable NodeKind = iota
	NodeSourceView
	NodeFilter
	NodeMap
	NodeAggregate
	NodeJoinInner
	NodeJoinLeft
	NodeWindow
	NodeSinkView
	NodeSinkTable
)

// Node is one DAG vertex. Config carries kind-specific configuration (a
// predicate, a group-by key, a join key) set up by whoever builds the
// Flow; the runtime operator implementations in pkg/flow/operator are
// constructed directly and do not read it.
type Node struct {
	ID     NodeID
	Kind   NodeKind
	Config any

	// SourceOf names the table or view primitive id this node reads
	// from or writes to, for SourceTable/SourceView/SinkTable/SinkView
	// nodes.
	SourceOf string
}

// Flow is a DAG of Nodes, acyclic by construction.
type Flow struct {
	ID    string
	Nodes map[NodeID]*Node

	downstream map[NodeID][]NodeID
	upstream   map[NodeID][]NodeID
}

func New(id string) *Flow {
	return &Flow{
		ID:         id,
		Nodes:      make(map[NodeID]*Node),
		downstream: make(map[NodeID][]NodeID),
		upstream:   make(map[NodeID][]NodeID),
	}
}

func (f *Flow) AddNode(n *Node) {
	f.Nodes[n.ID] = n
}

// AddEdge adds a from->to edge, rejecting it if to can already reach from -
// such an edge would close a cycle (design notes, "Cyclic graphs").
func (f *Flow) AddEdge(from, to NodeID) error {
	if _, ok := f.Nodes[from]; !ok {
		return diagnostic.Newf(diagnostic.InternalError, "flow edge references unknown node %q", from)
	}
	if _, ok := f.Nodes[to]; !ok {
		return diagnostic.Newf(diagnostic.InternalError, "flow edge references unknown node %q", to)
	}
	if from == to || f.reaches(to, from) {
		return diagnostic.Newf(diagnostic.InternalError, "flow edge %s -> %s would create a cycle", from, to)
	}
	f.downstream[from] = append(f.downstream[from], to)
	f.upstream[to] = append(f.upstream[to], from)
	return nil
}

// reaches reports whether start can reach target by following downstream
// edges.
func (f *Flow) reaches(start, target NodeID) bool {
	visited := map[NodeID]bool{}
	var walk func(NodeID) bool
	walk = func(n NodeID) bool {
		if n == target {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, next := range f.downstream[n] {
			if walk(next) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

func (f *Flow) Downstream(n NodeID) []NodeID { return f.downstream[n] }
func (f *Flow) Upstream(n NodeID) []NodeID   { return f.upstream[n] }

// TopologicalOrder returns every node id in an order where each node
// appears after all of its upstream nodes - the order both the inline
// cascade (the design notes, "Transactional (inline) flow") and backfill
// (the design notes, "Backfill") propagate diffs in.
func (f *Flow) TopologicalOrder() ([]NodeID, error) {
	indegree := make(map[NodeID]int, len(f.Nodes))
	for id := range f.Nodes {
		indegree[id] = len(f.upstream[id])
	}
	var queue []NodeID
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	var order []NodeID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range f.downstream[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if len(order) != len(f.Nodes) {
		return nil, diagnostic.New(diagnostic.InternalError, "flow graph contains a cycle")
	}
	return order, nil
}

// SourceNodes returns every node with no upstream edges - the entry points
// a FlowChange is injected at.
func (f *Flow) SourceNodes() []NodeID {
	var out []NodeID
	for id := range f.Nodes {
		if len(f.upstream[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}
