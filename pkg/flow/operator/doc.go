// Package operator implements the Flow DAG's runtime node kinds
// (SourceTable, SourceView, Filter, Map, Aggregate, JoinInner, LeftEagerJoin,
// Window, SinkView, SinkTable): each one consumes a flow.FlowChange and
// produces the FlowChange to propagate downstream (the design notes, "Model" and
// "Operator state").
package operator
