// Package engine wires the store, transaction, catalog, compiler and flow
// layers into one embeddable database: it is the thing pkg/wire's external
// collaborators (a REPL, a server) and cmd/reifydb-bench talk to. Every
// interface pkg/vm and pkg/flow declare to avoid importing pkg/store or
// pkg/txn directly (RowReader, flow's Source/Sink/Registry/NodeOperators,
// deferred's CDCSource/Checkpoints, backfill's Scanner) is implemented here,
// the one package allowed to see all of them at once.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/encoding"
	"github.com/reifydb/reifydb/pkg/events"
	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/flow/backfill"
	"github.com/reifydb/reifydb/pkg/flow/deferred"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/flow/transactional"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/txn/interceptor"
	"github.com/reifydb/reifydb/pkg/types"
)

// runtimeFlow is one registered Flow's live state: the DAG, its operator
// instances (stateful for Aggregate/Join/Window, so they must be the same
// instance across the transactional cascade, the deferred loop and
// backfill), and which primitive its Sink node writes into.
type runtimeFlow struct {
	id              string
	catalogID       uint64
	graph           *flow.Flow
	operators       map[flow.NodeID]flowop.Operator
	sinkPrimitiveID uint64
	sinkKind        catalog.ViewKind
}

// dictColumnInfo records how one dictionary-encoded column resolves: the
// stored slot holds an id of IDType, and ValueType is what Decode resolves
// it into before a row reaches a query operator (SPEC_FULL.md D.1).
type dictColumnInfo struct {
	DictionaryID uint64
	ValueType    types.Kind
}

// Engine is the embeddable database. A zero-value Engine is not usable; call
// New.
type Engine struct {
	store    *store.BoltStore
	chain    *interceptor.Chain
	coord    *txn.Coordinator
	cat      *catalog.Catalog
	compiler *rql.Compiler
	events   *events.Broker
	loop     *deferred.Loop
	backfill *backfill.Backfill

	mu               sync.RWMutex
	namespacesByName map[string]uint64
	// primitivesByName resolves a bare table/view name to its catalog id.
	// The parser discards the namespace qualifier in a FROM clause (see
	// pkg/rql/parser.go's parseQualifiedName callers), so names are kept
	// in one flat space rather than scoped per namespace - a recorded
	// scope limitation (DESIGN.md).
	primitivesByName map[string]uint64
	rowSeq           map[uint64]*atomic.Uint64
	schemas          map[uint64]*encoding.Schema

	// dictionariesByName resolves a bare or namespace-qualified dictionary
	// name to its catalog id, the same flat-namespace tradeoff
	// primitivesByName makes.
	dictionariesByName map[string]uint64
	// dictColumns records which columns of a table are dictionary-encoded:
	// primitiveID -> column index -> the dictionary it resolves through.
	dictColumns map[uint64]map[int]dictColumnInfo

	dictMu      sync.Mutex
	dictValues  map[uint64]map[string]uint64 // dictionaryID -> canonical value key -> id
	dictReverse map[uint64]map[uint64]types.Value // dictionaryID -> id -> decoded value
	dictSeq     map[uint64]*atomic.Uint64         // dictionaryID -> next id to allocate

	flowMu        sync.Mutex
	flows         map[string]*runtimeFlow
	flowsBySource map[string][]*runtimeFlow
	pendingFlows  []*runtimeFlow

	viewMu    sync.Mutex
	viewIndex map[uint64]map[uint64]uint64

	subMu     sync.Mutex
	subSeq    atomic.Uint64
	subChans  map[uint64]chan []*flow.Row // subscriptionID -> delivery channel
	viewSubs  map[uint64][]uint64         // viewID -> subscriptionIDs watching it

	loopStarted bool
}

// New opens (or creates) an Engine backed by a bbolt file under dataDir.
// Call StartDeferredLoop to begin background processing of deferred views.
func New(dataDir string) (*Engine, error) {
	s, err := store.NewBoltStore(dataDir)
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.InternalError, err, "failed to open store")
	}

	e := &Engine{
		store:            s,
		chain:            interceptor.NewChain(),
		cat:              catalog.New(),
		compiler:         rql.NewCompiler(),
		events:           events.NewBroker(),
		namespacesByName:   map[string]uint64{},
		primitivesByName:   map[string]uint64{},
		rowSeq:             map[uint64]*atomic.Uint64{},
		schemas:            map[uint64]*encoding.Schema{},
		dictionariesByName: map[string]uint64{},
		dictColumns:        map[uint64]map[int]dictColumnInfo{},
		dictValues:         map[uint64]map[string]uint64{},
		dictReverse:        map[uint64]map[uint64]types.Value{},
		dictSeq:            map[uint64]*atomic.Uint64{},
		flows:            map[string]*runtimeFlow{},
		flowsBySource:    map[string][]*runtimeFlow{},
		viewIndex:        map[uint64]map[uint64]uint64{},
		subChans:         map[uint64]chan []*flow.Row{},
		viewSubs:         map[uint64][]uint64{},
	}
	e.coord = txn.NewCoordinator(s, e.chain)
	e.backfill = &backfill.Backfill{Scanner: e, Operators: e, Sink: backfillSinkAdapter{e}}

	e.chain.Use(&transactional.Cascade{
		Registry:  e,
		Operators: e,
		Source:    txnSourceAdapter{e},
		Sink:      e,
		Version:   func() uint64 { v, _ := s.CurrentVersion(context.Background()); return uint64(v) },
	})

	e.events.Start()

	e.loop = deferred.New(s, deferredSourceAdapter{e}, e, e, deferredSinkAdapter{e}, e.backfill, e, deferred.Config{})

	return e, nil
}

// StartDeferredLoop spawns the background goroutine that polls CDC for
// deferred-view flows. Callers that want deterministic, single-step control
// instead (tests) use ProcessDeferredTick.
func (e *Engine) StartDeferredLoop(ctx context.Context) {
	e.loopStarted = true
	e.loop.Start(ctx)
}

// ProcessDeferredTick runs one deferred-loop iteration synchronously: it
// polls for newly committed CDC entries up to the next version, backfills
// any newly registered flow, and feeds every interested flow's DAG.
func (e *Engine) ProcessDeferredTick(ctx context.Context) error {
	return e.loop.ProcessOnce(ctx)
}

// Close stops the deferred flow loop (if started) and the underlying store.
func (e *Engine) Close() error {
	if e.loopStarted {
		e.loop.Stop()
	}
	e.events.Stop()
	return e.store.Close()
}

// Catalog exposes the engine's catalog for introspection.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

func (e *Engine) BeginQuery(ctx context.Context) (*txn.Txn, error) {
	return e.coord.Begin(ctx, txn.KindQuery)
}

func (e *Engine) BeginCommand(ctx context.Context) (*txn.Txn, error) {
	return e.coord.Begin(ctx, txn.KindCommand)
}

func (e *Engine) BeginAdmin(ctx context.Context) (*txn.Txn, error) {
	return e.coord.Begin(ctx, txn.KindAdmin)
}

func (e *Engine) nextRowNumber(primitiveID uint64) uint64 {
	e.mu.Lock()
	seq, ok := e.rowSeq[primitiveID]
	if !ok {
		seq = &atomic.Uint64{}
		e.rowSeq[primitiveID] = seq
	}
	e.mu.Unlock()
	return seq.Add(1)
}

func (e *Engine) bumpRowSeq(primitiveID uint64, rowNumber uint64) {
	e.mu.Lock()
	seq, ok := e.rowSeq[primitiveID]
	if !ok {
		seq = &atomic.Uint64{}
		e.rowSeq[primitiveID] = seq
	}
	e.mu.Unlock()
	for {
		cur := seq.Load()
		if rowNumber <= cur {
			return
		}
		if seq.CompareAndSwap(cur, rowNumber) {
			return
		}
	}
}
