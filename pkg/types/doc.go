// Package types defines the value domain shared by every layer of the
// engine: the closed set of storage Kinds, the Value union that carries a
// decoded scalar of any Kind, CommitVersion and EncodedKey, and the Delta
// variants a transaction accumulates before commit.
//
// Nothing in this package touches storage or encoding directly; pkg/encoding
// packs Values into the binary row format and pkg/store persists EncodedKey
// to EncodedValues mappings. Keeping the value domain in its own package lets
// both depend on it without a cycle.
package types
