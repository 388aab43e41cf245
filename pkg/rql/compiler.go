package rql

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/reifydb/reifydb/pkg/metrics"
)

// Program is the compiled unit the execution VM runs: a physical plan for
// a query, or a DDL/DML statement passed through uncompiled since those are
// single-shot catalog/store operations rather than a pipeline
// (the design notes, "Bytecode").
type Program struct {
	Statement *Statement
	Physical  *PhysicalNode // nil unless Statement.Tag == StmtQuery

	// CatalogVersions is a per-entity catalog-version map; Compile leaves
	// it nil and nothing reads it. Cached programs are dropped as a whole
	// through Compiler.Invalidate instead.
	CatalogVersions map[uint64]uint64
}

// CompilationResult is either a single ready-to-run Program or a step
// sequence for scripts that interleave DDL and DML (the design notes,
// "Incremental multi-statement mode").
type CompilationResult struct {
	Ready       *Program
	Incremental []*Statement
}

// cacheEntry is one compiled program.
type cacheEntry struct {
	program *Program
}

// Compiler compiles source text to bytecode programs, caching by a 128-bit
// hash of the source text (the design notes). The cache is bypassed entirely for
// scripts containing DDL, and cleared as a whole by Invalidate, which
// pkg/engine calls whenever DDL changes the catalog.
type Compiler struct {
	mu    sync.Mutex
	cache map[[16]byte]*cacheEntry
}

func NewCompiler() *Compiler {
	return &Compiler{cache: make(map[[16]byte]*cacheEntry)}
}

func hashSource(source string) [16]byte {
	lo := xxhash.New()
	lo.Write([]byte{0x00})
	lo.Write([]byte(source))
	hi := xxhash.New()
	hi.Write([]byte{0xff})
	hi.Write([]byte(source))

	var h [16]byte
	binary.BigEndian.PutUint64(h[0:8], lo.Sum64())
	binary.BigEndian.PutUint64(h[8:16], hi.Sum64())
	return h
}

// Compile parses source and produces a CompilationResult. Single-statement
// queries with no DDL are cached by source hash; scripts with more than one
// statement, or any DDL statement, step through Incremental so the caller
// (pkg/engine) can re-resolve the catalog between statements.
func (c *Compiler) Compile(source string) (*CompilationResult, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CompileDuration)

	parser, err := NewParser(source)
	if err != nil {
		return nil, err
	}
	script, err := parser.ParseScript()
	if err != nil {
		return nil, err
	}

	if len(script.Statements) != 1 || hasDDL(script) {
		metrics.CompileCacheMisses.Inc()
		return &CompilationResult{Incremental: script.Statements}, nil
	}

	hash := hashSource(source)
	c.mu.Lock()
	entry, hit := c.cache[hash]
	c.mu.Unlock()
	if hit {
		metrics.CompileCacheHits.Inc()
		return &CompilationResult{Ready: entry.program}, nil
	}

	stmt := script.Statements[0]
	program := &Program{Statement: stmt}
	if stmt.Tag == StmtQuery {
		logical, err := BuildLogicalPlan(stmt.Query)
		if err != nil {
			return nil, err
		}
		program.Physical = BuildPhysicalPlan(logical)
	}

	c.mu.Lock()
	c.cache[hash] = &cacheEntry{program: program}
	c.mu.Unlock()
	metrics.CompileCacheMisses.Inc()
	return &CompilationResult{Ready: program}, nil
}

// Invalidate drops every cached program - called by pkg/engine whenever a
// DDL transaction commits, since any cached program might reference the
// entity that changed and this compiler has no dependency graph to target
// the invalidation more precisely.
func (c *Compiler) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[[16]byte]*cacheEntry)
}

func hasDDL(script *Script) bool {
	for _, stmt := range script.Statements {
		if stmt.Tag != StmtQuery {
			return true
		}
	}
	return false
}
