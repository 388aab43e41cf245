// Package flow implements the incremental materialized-view engine: a
// Flow is a DAG of typed operators that consumes FlowChanges (batched
// Insert/Update/Remove diffs) and propagates them to downstream operators,
// ultimately writing into view or table keyspaces (the design notes).
//
// Flow graphs are acyclic by construction: AddEdge rejects any edge that
// would create a cycle via a reachability check, per the design notes'
// "Cyclic graphs" guidance - operator back-references use node ids plus a
// graph lookup, never owning pointers.
package flow
