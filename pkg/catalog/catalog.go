// Package catalog implements ReifyDB's persisted and materialized catalog
// (the design notes): every entity kind is versioned, and a lookup answers "the
// definition active at commit version V" without touching disk, backed by
// an in-process index built from DDL commits as they land.
package catalog

import (
	"sort"
	"sync/atomic"

	"github.com/reifydb/reifydb/pkg/types"
)

// Ref identifies an entity's current (scope, name) binding, where scope is
// a NamespaceID for top-level entities or an owning primitive's id for
// entities (like Column) named within their owner. Callers pass the
// pre-change Ref to Set* methods so the rename/move invariant can close off
// the old binding at the new version.
type Ref struct {
	Scope uint64
	Name  string
}

func (r *Ref) key() *nameKey {
	if r == nil {
		return nil
	}
	return &nameKey{scope: r.Scope, name: r.Name}
}

// Catalog is the materialized index over every catalog entity kind. It is
// safe for concurrent use.
type Catalog struct {
	namespaces   *namedIndex[Namespace]
	tables       *namedIndex[Table]
	views        *namedIndex[View]
	ringBuffers  *namedIndex[RingBuffer]
	columns      *namedIndex[Column]
	primaryKeys  *idIndex[PrimaryKey]
	dictionaries *namedIndex[Dictionary]
	flows        *namedIndex[Flow]
	sequences    *namedIndex[Sequence]

	nextID atomic.Uint64
}

const rootScope uint64 = 0

func New() *Catalog {
	return &Catalog{
		namespaces:   newNamedIndex[Namespace](),
		tables:       newNamedIndex[Table](),
		views:        newNamedIndex[View](),
		ringBuffers:  newNamedIndex[RingBuffer](),
		columns:      newNamedIndex[Column](),
		primaryKeys:  newIDIndex[PrimaryKey](),
		dictionaries: newNamedIndex[Dictionary](),
		flows:        newNamedIndex[Flow](),
		sequences:    newNamedIndex[Sequence](),
	}
}

// NextID allocates a fresh entity id, unique for the lifetime of this
// Catalog. Ids are not versioned or reused once an entity is dropped.
func (c *Catalog) NextID() uint64 {
	return c.nextID.Add(1)
}

func (c *Catalog) FindNamespace(id uint64, asOf types.CommitVersion) (*Namespace, bool) {
	return c.namespaces.find(id, asOf)
}

func (c *Catalog) FindNamespaceByName(name string, asOf types.CommitVersion) (*Namespace, bool) {
	return c.namespaces.findByName(rootScope, name, asOf)
}

func (c *Catalog) SetNamespace(id uint64, version types.CommitVersion, def *Namespace, previous *Ref) {
	scope, name := rootScope, ""
	if def != nil {
		name = def.Name
	}
	c.namespaces.setNamed(id, version, scope, name, def, previous.key())
}

func (c *Catalog) FindTable(id uint64, asOf types.CommitVersion) (*Table, bool) {
	return c.tables.find(id, asOf)
}

func (c *Catalog) FindTableByName(namespaceID uint64, name string, asOf types.CommitVersion) (*Table, bool) {
	return c.tables.findByName(namespaceID, name, asOf)
}

func (c *Catalog) SetTable(id uint64, version types.CommitVersion, def *Table, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.NamespaceID, def.Name
	}
	c.tables.setNamed(id, version, scope, name, def, previous.key())
}

func (c *Catalog) FindView(id uint64, asOf types.CommitVersion) (*View, bool) {
	return c.views.find(id, asOf)
}

func (c *Catalog) FindViewByName(namespaceID uint64, name string, asOf types.CommitVersion) (*View, bool) {
	return c.views.findByName(namespaceID, name, asOf)
}

func (c *Catalog) SetView(id uint64, version types.CommitVersion, def *View, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.NamespaceID, def.Name
	}
	c.views.setNamed(id, version, scope, name, def, previous.key())
}

func (c *Catalog) FindRingBuffer(id uint64, asOf types.CommitVersion) (*RingBuffer, bool) {
	return c.ringBuffers.find(id, asOf)
}

func (c *Catalog) FindRingBufferByName(namespaceID uint64, name string, asOf types.CommitVersion) (*RingBuffer, bool) {
	return c.ringBuffers.findByName(namespaceID, name, asOf)
}

func (c *Catalog) SetRingBuffer(id uint64, version types.CommitVersion, def *RingBuffer, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.NamespaceID, def.Name
	}
	c.ringBuffers.setNamed(id, version, scope, name, def, previous.key())
}

// FindColumn and SetColumn scope Column names to OwnerID (the table, view or
// ring buffer the column belongs to), not to a Namespace.
func (c *Catalog) FindColumn(id uint64, asOf types.CommitVersion) (*Column, bool) {
	return c.columns.find(id, asOf)
}

func (c *Catalog) FindColumnByName(ownerID uint64, name string, asOf types.CommitVersion) (*Column, bool) {
	return c.columns.findByName(ownerID, name, asOf)
}

func (c *Catalog) SetColumn(id uint64, version types.CommitVersion, def *Column, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.OwnerID, def.Name
	}
	c.columns.setNamed(id, version, scope, name, def, previous.key())
}

// ColumnsByOwner returns every column belonging to ownerID (a Table, View or
// RingBuffer) that is live at asOf, ordered by column Index. Schema construction
// (pkg/engine) walks this to turn a table's catalog columns into an
// encoding.Schema.
func (c *Catalog) ColumnsByOwner(ownerID uint64, asOf types.CommitVersion) []*Column {
	cols := c.columns.findAllByScope(ownerID, asOf)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Index < cols[j].Index })
	return cols
}

// FindPrimaryKey and SetPrimaryKey key directly on OwnerID: a primitive has
// at most one primary key, so there is no separate name index.
func (c *Catalog) FindPrimaryKey(ownerID uint64, asOf types.CommitVersion) (*PrimaryKey, bool) {
	return c.primaryKeys.find(ownerID, asOf)
}

func (c *Catalog) SetPrimaryKey(ownerID uint64, version types.CommitVersion, def *PrimaryKey) {
	c.primaryKeys.set(ownerID, version, def)
}

func (c *Catalog) FindDictionary(id uint64, asOf types.CommitVersion) (*Dictionary, bool) {
	return c.dictionaries.find(id, asOf)
}

func (c *Catalog) FindDictionaryByName(namespaceID uint64, name string, asOf types.CommitVersion) (*Dictionary, bool) {
	return c.dictionaries.findByName(namespaceID, name, asOf)
}

func (c *Catalog) SetDictionary(id uint64, version types.CommitVersion, def *Dictionary, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.NamespaceID, def.Name
	}
	c.dictionaries.setNamed(id, version, scope, name, def, previous.key())
}

func (c *Catalog) FindFlow(id uint64, asOf types.CommitVersion) (*Flow, bool) {
	return c.flows.find(id, asOf)
}

func (c *Catalog) FindFlowByName(namespaceID uint64, name string, asOf types.CommitVersion) (*Flow, bool) {
	return c.flows.findByName(namespaceID, name, asOf)
}

func (c *Catalog) SetFlow(id uint64, version types.CommitVersion, def *Flow, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.NamespaceID, def.Name
	}
	c.flows.setNamed(id, version, scope, name, def, previous.key())
}

func (c *Catalog) FindSequence(id uint64, asOf types.CommitVersion) (*Sequence, bool) {
	return c.sequences.find(id, asOf)
}

func (c *Catalog) FindSequenceByName(namespaceID uint64, name string, asOf types.CommitVersion) (*Sequence, bool) {
	return c.sequences.findByName(namespaceID, name, asOf)
}

func (c *Catalog) SetSequence(id uint64, version types.CommitVersion, def *Sequence, previous *Ref) {
	var scope uint64
	var name string
	if def != nil {
		scope, name = def.NamespaceID, def.Name
	}
	c.sequences.setNamed(id, version, scope, name, def, previous.key())
}
