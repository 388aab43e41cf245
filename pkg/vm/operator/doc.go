// Package operator implements the Volcano operator catalogue (the design notes,
// "Operator catalogue"): TableScan, ViewScan, IndexScan, RowLookup,
// InlineData, Generator, Filter, Map, Extend, Patch, Aggregate, Distinct,
// Sort, Take, JoinInner, JoinLeft, JoinNatural, Merge, Apply, Window,
// Scalarize. Every operator implements vm.Operator: Initialize once, then
// Next repeatedly until it returns a nil Batch.
package operator
