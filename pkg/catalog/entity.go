package catalog

import "github.com/reifydb/reifydb/pkg/types"

// ViewKind distinguishes a transactional view (recomputed inline with its
// triggering commit) from a deferred one (recomputed by a background loop).
type ViewKind uint8

const (
	ViewTransactional ViewKind = iota
	ViewDeferred
)

// Namespace groups tables, views, dictionaries, flows and sequences under
// one name scope (the design notes, "Catalog entities").
type Namespace struct {
	ID   uint64
	Name string
}

// Table is a primitive that accepts direct writes.
type Table struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	PrimaryKey  *uint64
}

// View is a primitive computed from a Flow, either transactionally or on a
// deferred schedule.
type View struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	Kind        ViewKind
	FlowID      uint64
}

// RingBuffer is a fixed-capacity primitive that evicts its oldest rows once
// full.
type RingBuffer struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	Capacity    uint64
}

// Column describes one field of a Table, View or RingBuffer. Name
// uniqueness is scoped to OwnerID, not to a Namespace.
type Column struct {
	ID             uint64
	OwnerID        uint64
	Index          int
	Name           string
	TypeConstraint types.Kind
	AutoIncrement  bool
	DictionaryID   *uint64
}

// PrimaryKey is at most one per owning primitive; it is keyed by OwnerID
// rather than by name.
type PrimaryKey struct {
	OwnerID   uint64
	ColumnIDs []uint64
}

// Dictionary maps small integer ids to decoded values of ValueType,
// addressed by ids of IDType (the design notes, "Dictionary decoding").
type Dictionary struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	IDType      types.Kind
	ValueType   types.Kind
}

// FlowNode is one operator in a Flow's DAG.
type FlowNode struct {
	ID       uint64
	Operator string
	Config   []byte
}

// FlowEdge connects two FlowNodes; a node may have several outgoing edges
// (fan-out) but the design notes requires the graph itself to be acyclic.
type FlowEdge struct {
	FromNodeID uint64
	ToNodeID   uint64
}

// Flow is the persisted definition of an incremental computation's DAG.
type Flow struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	Nodes       []FlowNode
	Edges       []FlowEdge
}

// Sequence backs a Column's auto-increment values.
type Sequence struct {
	ID          uint64
	NamespaceID uint64
	Name        string
	Next        uint64
}
