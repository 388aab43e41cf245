// Package catalog implements the materialized catalog described in
// the design notes.
//
// Every entity kind (Namespace, Table, View, RingBuffer, Column,
// PrimaryKey, Dictionary, Flow, Sequence) keeps its own ordered version
// history per id, found by binary search for "the newest version <= asOf"
// - the same shape the teacher pack's schema-version stores use for
// point-in-time table info lookups, generalized here with Go generics
// instead of one hand-written store per entity kind.
//
// Namespaced entities additionally keep a (scope, name) -> id index so
// find_E_by_name resolves without an id in hand. Renaming or moving an
// entity closes the old (scope, name) binding at the new version and opens
// the new one, so a lookup at an older version still resolves the old name.
package catalog
