package engine

import (
	"context"
	"strconv"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/encoding"
	"github.com/reifydb/reifydb/pkg/flow"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// flowBuilder turns a parsed Query's logical plan into a runtime flow.Flow
// graph plus its catalog.Flow persistence record in one pass, since every
// flow.NodeID this package mints is just the decimal string of the
// matching catalog.FlowNode.ID - no separate id-translation table needed.
type flowBuilder struct {
	e         *Engine
	g         *flow.Flow
	operators map[flow.NodeID]flowop.Operator
	catNodes  []catalog.FlowNode
	catEdges  []catalog.FlowEdge
	seq       uint64
}

func (b *flowBuilder) nextID() flow.NodeID {
	b.seq++
	return flow.NodeID(strconv.FormatUint(b.seq, 10))
}

func (b *flowBuilder) addNode(id flow.NodeID, kind flow.NodeKind, sourceOf, opName string, op flowop.Operator) {
	b.g.AddNode(&flow.Node{ID: id, Kind: kind, SourceOf: sourceOf})
	b.operators[id] = op
	catID, _ := strconv.ParseUint(string(id), 10, 64)
	b.catNodes = append(b.catNodes, catalog.FlowNode{ID: catID, Operator: opName})
}

func (b *flowBuilder) addEdge(from, to flow.NodeID) error {
	if err := b.g.AddEdge(from, to); err != nil {
		return err
	}
	fromID, _ := strconv.ParseUint(string(from), 10, 64)
	toID, _ := strconv.ParseUint(string(to), 10, 64)
	b.catEdges = append(b.catEdges, catalog.FlowEdge{FromNodeID: fromID, ToNodeID: toID})
	return nil
}

// CreateView compiles query into a Flow DAG, registers it, and schedules it
// for backfill - transactional views backfill synchronously so the first
// read after CREATE sees a populated view; deferred views are picked up by
// the next ProcessDeferredTick/loop iteration's NewFlows drain.
//
// This is the direct Go API standing in for a CREATE VIEW/CREATE FLOW
// statement: pkg/rql's grammar has no such production (DESIGN.md), so
// views are registered by building and submitting a *rql.Query here rather
// than through Execute.
func (e *Engine) CreateView(ctx context.Context, t *txn.Txn, namespace, name string, kind catalog.ViewKind, query *rql.Query) (string, error) {
	logical, err := rql.BuildLogicalPlan(query)
	if err != nil {
		return "", err
	}

	nsID, err := e.resolveNamespace(t, namespace)
	if err != nil {
		return "", err
	}

	viewID := e.cat.NextID()
	sourceOf := strconv.FormatUint(viewID, 10)

	b := &flowBuilder{g: flow.New(sourceOf), operators: map[flow.NodeID]flowop.Operator{}, e: e}
	rootID, outCols, err := b.build(logical)
	if err != nil {
		return "", err
	}

	sinkKind := flow.NodeSinkTable
	if kind == catalog.ViewDeferred || kind == catalog.ViewTransactional {
		sinkKind = flow.NodeSinkView
	}
	sinkID := b.nextID()
	sinkOp := &flowop.SinkView{Name: sourceOf}
	b.addNode(sinkID, sinkKind, sourceOf, "sink", sinkOp)
	if err := b.addEdge(rootID, sinkID); err != nil {
		return "", err
	}

	version := t.BeginVersion() + 1

	specs := make([]encoding.FieldSpec, len(outCols))
	for i, name := range outCols {
		specs[i] = encoding.FieldSpec{Name: name, Kind: types.KindAny, Constraint: types.NoConstraint()}
		colID := e.cat.NextID()
		e.cat.SetColumn(colID, version, &catalog.Column{ID: colID, OwnerID: viewID, Index: i, Name: name, TypeConstraint: types.KindAny}, nil)
	}
	e.mu.Lock()
	e.schemas[viewID] = encoding.NewSchema(specs)
	fullName := name
	if namespace != "" {
		fullName = namespace + "." + name
	}
	e.primitivesByName[name] = viewID
	e.primitivesByName[fullName] = viewID
	e.mu.Unlock()

	flowID := e.cat.NextID()
	e.cat.SetFlow(flowID, version, &catalog.Flow{ID: flowID, NamespaceID: nsID, Name: name, Nodes: b.catNodes, Edges: b.catEdges}, nil)
	e.cat.SetView(viewID, version, &catalog.View{ID: viewID, NamespaceID: nsID, Name: name, Kind: kind, FlowID: flowID}, nil)

	e.registerRuntimeFlow(flowID, b.g, viewID, kind, b.operators)
	e.compiler.Invalidate()

	if kind == catalog.ViewTransactional {
		current, _ := e.store.CurrentVersion(ctx)
		if err := e.backfill.Backfill(ctx, b.g, current); err != nil {
			return "", err
		}
	}

	return sourceOf, nil
}

// build lowers one LogicalNode (and its input chain) into the flow graph,
// returning the node id just built and the column names its output rows
// carry (so the caller can build the view's storage schema and the
// surrounding Sink node knows what it is writing).
func (b *flowBuilder) build(n *rql.LogicalNode) (flow.NodeID, []string, error) {
	switch n.Tag {
	case rql.LogicalScan:
		return b.buildScan(n.Source)

	case rql.LogicalFilter:
		inputID, cols, err := b.build(n.Input)
		if err != nil {
			return "", nil, err
		}
		op, err := flowop.NewFilter(n.Predicate)
		if err != nil {
			return "", nil, err
		}
		id := b.nextID()
		b.addNode(id, flow.NodeFilter, "", "filter", op)
		if err := b.addEdge(inputID, id); err != nil {
			return "", nil, err
		}
		return id, cols, nil

	case rql.LogicalProject:
		inputID, _, err := b.build(n.Input)
		if err != nil {
			return "", nil, err
		}
		op, err := flowop.NewMap(n.Projections)
		if err != nil {
			return "", nil, err
		}
		id := b.nextID()
		b.addNode(id, flow.NodeMap, "", "map", op)
		if err := b.addEdge(inputID, id); err != nil {
			return "", nil, err
		}
		return id, op.Names, nil

	case rql.LogicalAggregate:
		inputID, _, err := b.build(n.Input)
		if err != nil {
			return "", nil, err
		}
		groupNames := make([]string, len(n.GroupBy))
		for i, ge := range n.GroupBy {
			groupNames[i] = rqlExprName(ge)
		}
		specs, names, err := compileFlowAggregates(n.Aggregates)
		if err != nil {
			return "", nil, err
		}
		op, err := flowop.NewAggregate(n.GroupBy, groupNames, specs)
		if err != nil {
			return "", nil, err
		}
		id := b.nextID()
		b.addNode(id, flow.NodeAggregate, "", "aggregate", op)
		if err := b.addEdge(inputID, id); err != nil {
			return "", nil, err
		}
		return id, append(append([]string{}, groupNames...), names...), nil

	case rql.LogicalJoin:
		leftID, leftCols, err := b.build(n.Input)
		if err != nil {
			return "", nil, err
		}
		rightID, rightCols, err := b.buildScan(n.RightScan.Source)
		if err != nil {
			return "", nil, err
		}
		leftKey, rightKey, err := splitJoinKeyExprs(n.JoinOn)
		if err != nil {
			return "", nil, err
		}

		id := b.nextID()
		var op flowop.Operator
		var nodeKind flow.NodeKind
		if n.JoinKind == rql.JoinLeft {
			nodeKind = flow.NodeJoinLeft
			op, err = flowop.NewLeftEagerJoin(leftKey, rightKey, leftID, rightID, rightCols)
		} else {
			nodeKind = flow.NodeJoinInner
			op, err = flowop.NewJoinInner(leftKey, rightKey, leftID, rightID)
		}
		if err != nil {
			return "", nil, err
		}
		b.addNode(id, nodeKind, "", "join", op)
		if err := b.addEdge(leftID, id); err != nil {
			return "", nil, err
		}
		if err := b.addEdge(rightID, id); err != nil {
			return "", nil, err
		}
		return id, append(append([]string{}, leftCols...), rightCols...), nil

	case rql.LogicalExtend, rql.LogicalSort, rql.LogicalLimit, rql.LogicalDistinct:
		return "", nil, diagnostic.New(diagnostic.MapSyntax,
			"EXTEND, SORT, TAKE and DISTINCT are not supported in incremental views: pkg/flow/operator has no retraction-aware operator for them")

	default:
		return "", nil, diagnostic.Newf(diagnostic.MapSyntax, "unsupported logical node in view query")
	}
}

func (b *flowBuilder) buildScan(source string) (flow.NodeID, []string, error) {
	id, ok := b.e.resolvePrimitive(source)
	if !ok {
		return "", nil, diagnostic.Newf(diagnostic.CatalogTableNotFound, "unknown table or view %q", source)
	}
	schema := b.e.schemaFor(id)
	if schema == nil {
		return "", nil, errUnknownPrimitive(id)
	}
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = f.Name
	}

	sourceOf := strconv.FormatUint(id, 10)
	nodeID := b.nextID()
	_, isView := b.e.cat.FindView(id, b.e.currentVersionUnsafe())
	if isView {
		b.addNode(nodeID, flow.NodeSourceView, sourceOf, "source", &flowop.SourceView{Name: sourceOf})
	} else {
		b.addNode(nodeID, flow.NodeSourceTable, sourceOf, "source", &flowop.SourceTable{Name: sourceOf})
	}
	return nodeID, cols, nil
}

func rqlExprName(e *rql.Expr) string {
	switch e.Tag {
	case rql.ExprIdent, rql.ExprColumnRef:
		return e.Name
	default:
		return e.Fragment.Fragment
	}
}

func compileFlowAggregates(exprs []*rql.Expr) ([]flowop.AggregateSpec, []string, error) {
	specs := make([]flowop.AggregateSpec, len(exprs))
	names := make([]string, len(exprs))
	for i, ex := range exprs {
		call := ex
		name := rqlExprName(ex)
		if call.Tag == rql.ExprAlias {
			name = call.Alias
			call = call.Inner
		}
		if call.Tag != rql.ExprCall || len(call.Args) != 1 {
			return nil, nil, diagnostic.New(diagnostic.MapSyntax, "aggregate expressions must be a single-argument function call")
		}
		compiled, compileErr := vm.CompileExpr(call.Args[0])
		if compileErr != nil {
			return nil, nil, compileErr
		}
		specs[i] = flowop.AggregateSpec{Name: name, Fn: call.Func, Arg: compiled}
		names[i] = name
	}
	return specs, names, nil
}

// splitJoinKeyExprs expects JoinOn to be an equality predicate, same shape
// pkg/engine/exec.go's splitJoinKeys expects of the VM's physical plan.
func splitJoinKeyExprs(on *rql.Expr) (*rql.Expr, *rql.Expr, error) {
	if on == nil || on.Tag != rql.ExprBinary || on.BinOp != rql.OpEq {
		return nil, nil, diagnostic.New(diagnostic.MapSyntax, "join condition must be an equality predicate")
	}
	return on.Left, on.Right, nil
}
