// Package vm implements ReifyDB's column-oriented Volcano execution engine
// (the design notes): each Operator exposes Initialize/Next, pulling column
// Batches from its children until the source is exhausted. Expressions are
// compiled once into closures over Columns rather than walked as an AST per
// row (the design notes, "Bytecode"; the design notes, "Filter algorithm").
package vm
