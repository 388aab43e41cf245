// Package rql implements ReifyDB's query compiler pipeline (the design notes):
// source text -> Tokens -> AST -> logical plan -> physical plan -> a
// Program the execution VM runs. Compiled programs are cached by a 128-bit
// hash of the source text; the cache is bypassed for statements containing
// DDL and cleared whenever DDL changes the catalog (the design notes,
// "Bytecode").
package rql
