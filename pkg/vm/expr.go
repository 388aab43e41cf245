package vm

import (
	"strconv"
	"strings"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm/function"
)

// CompiledExpr is a closure over a Batch, evaluated lazily per batch rather
// than per row (the design notes, "Filter algorithm": "Compile each predicate
// once into a closure over Columns"). The returned Column has one value per
// input row.
type CompiledExpr func(b *Batch) (*Column, error)

// CompileExpr compiles an AST expression into a CompiledExpr. Column
// references resolve by name against whatever Batch is passed to the
// closure at evaluation time - this is what lets the same compiled
// predicate run across every batch a scan produces.
func CompileExpr(e *rql.Expr) (CompiledExpr, error) {
	switch e.Tag {
	case rql.ExprLiteral:
		return compileLiteral(e)
	case rql.ExprIdent:
		name := e.Name
		return func(b *Batch) (*Column, error) {
			col, ok := b.ColumnByName(name)
			if !ok {
				return nil, diagnostic.Newf(diagnostic.MapSyntax, "unknown column %q", name)
			}
			return col, nil
		}, nil
	case rql.ExprColumnRef:
		name := e.Name
		return func(b *Batch) (*Column, error) {
			col, ok := b.ColumnByName(name)
			if !ok {
				return nil, diagnostic.Newf(diagnostic.MapSyntax, "unknown column %q", name)
			}
			return col, nil
		}, nil
	case rql.ExprUnary:
		return compileUnary(e)
	case rql.ExprBinary:
		return compileBinary(e)
	case rql.ExprCall:
		return compileCall(e)
	case rql.ExprAlias:
		inner, err := CompileExpr(e.Inner)
		if err != nil {
			return nil, err
		}
		alias := e.Alias
		return func(b *Batch) (*Column, error) {
			col, err := inner(b)
			if err != nil {
				return nil, err
			}
			renamed := *col
			renamed.Name = alias
			return &renamed, nil
		}, nil
	default:
		return nil, diagnostic.New(diagnostic.MapSyntax, "unsupported expression")
	}
}

// ExprOutputName returns the name a compiled projection should bind: the
// explicit alias if present, the bare column name for an identifier, or the
// source fragment text otherwise (mirrors how the teacher pack's config
// loaders fall back to a positional name when no explicit one is given).
func ExprOutputName(e *rql.Expr) string {
	switch e.Tag {
	case rql.ExprAlias:
		return e.Alias
	case rql.ExprIdent, rql.ExprColumnRef:
		return e.Name
	default:
		return e.Fragment.Fragment
	}
}

func compileLiteral(e *rql.Expr) (CompiledExpr, error) {
	var v types.Value
	switch e.LitKind {
	case rql.LitInt:
		n, err := strconv.ParseInt(e.LitText, 10, 64)
		if err != nil {
			return nil, diagnostic.Newf(diagnostic.NumberParse, "invalid integer literal %q", e.LitText)
		}
		v = types.Int(types.KindInt8, n)
	case rql.LitFloat:
		f, err := strconv.ParseFloat(e.LitText, 64)
		if err != nil {
			return nil, diagnostic.Newf(diagnostic.NumberParse, "invalid float literal %q", e.LitText)
		}
		v = types.Float(types.KindFloat8, f)
	case rql.LitString:
		v = types.Utf8(e.LitText)
	case rql.LitBool:
		b, err := strconv.ParseBool(strings.ToLower(e.LitText))
		if err != nil {
			return nil, diagnostic.Newf(diagnostic.BooleanParse, "invalid boolean literal %q", e.LitText)
		}
		v = types.Bool(b)
	default:
		return nil, diagnostic.New(diagnostic.MapSyntax, "unsupported literal kind")
	}
	return func(b *Batch) (*Column, error) {
		n := b.NumRows()
		col := &Column{Name: e.Fragment.Fragment, Kind: v.Kind, Values: make([]types.Value, n), Valid: make([]bool, n)}
		for i := 0; i < n; i++ {
			col.Values[i] = v
			col.Valid[i] = true
		}
		return col, nil
	}, nil
}

func compileUnary(e *rql.Expr) (CompiledExpr, error) {
	operand, err := CompileExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	op := e.UnOp
	return func(b *Batch) (*Column, error) {
		in, err := operand(b)
		if err != nil {
			return nil, err
		}
		out := &Column{Name: e.Fragment.Fragment, Kind: in.Kind, Values: make([]types.Value, in.Len()), Valid: make([]bool, in.Len())}
		for i := range in.Values {
			if !in.Valid[i] {
				continue
			}
			switch op {
			case rql.OpNot:
				out.Kind = types.KindBool
				out.Values[i] = types.Bool(!in.Values[i].AsBool())
				out.Valid[i] = true
			case rql.OpNeg:
				out.Values[i] = negate(in.Values[i])
				out.Valid[i] = true
			}
		}
		return out, nil
	}, nil
}

func negate(v types.Value) types.Value {
	if v.Kind == types.KindFloat4 || v.Kind == types.KindFloat8 {
		return types.Float(v.Kind, -v.AsFloat())
	}
	return types.Int(v.Kind, -v.AsInt())
}

func compileBinary(e *rql.Expr) (CompiledExpr, error) {
	left, err := CompileExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := CompileExpr(e.Right)
	if err != nil {
		return nil, err
	}
	op := e.BinOp
	return func(b *Batch) (*Column, error) {
		l, err := left(b)
		if err != nil {
			return nil, err
		}
		r, err := right(b)
		if err != nil {
			return nil, err
		}
		return evalBinary(e.Fragment.Fragment, op, l, r)
	}, nil
}

func evalBinary(name string, op rql.BinaryOp, l, r *Column) (*Column, error) {
	n := l.Len()
	resultKind := types.KindBool
	switch op {
	case rql.OpAdd, rql.OpSub, rql.OpMul, rql.OpDiv:
		resultKind = l.Kind
	}
	out := &Column{Name: name, Kind: resultKind, Values: make([]types.Value, n), Valid: make([]bool, n)}
	for i := 0; i < n; i++ {
		if !l.Valid[i] || !r.Valid[i] {
			continue
		}
		v, err := applyBinary(op, l.Values[i], r.Values[i])
		if err != nil {
			return nil, err
		}
		out.Values[i] = v
		out.Valid[i] = true
	}
	return out, nil
}

func applyBinary(op rql.BinaryOp, l, r types.Value) (types.Value, error) {
	switch op {
	case rql.OpAnd:
		return types.Bool(l.AsBool() && r.AsBool()), nil
	case rql.OpOr:
		return types.Bool(l.AsBool() || r.AsBool()), nil
	}

	if l.Kind == types.KindUtf8 || r.Kind == types.KindUtf8 {
		switch op {
		case rql.OpEq:
			return types.Bool(l.AsString() == r.AsString()), nil
		case rql.OpNeq:
			return types.Bool(l.AsString() != r.AsString()), nil
		case rql.OpLt:
			return types.Bool(l.AsString() < r.AsString()), nil
		case rql.OpLte:
			return types.Bool(l.AsString() <= r.AsString()), nil
		case rql.OpGt:
			return types.Bool(l.AsString() > r.AsString()), nil
		case rql.OpGte:
			return types.Bool(l.AsString() >= r.AsString()), nil
		default:
			return types.Value{}, diagnostic.New(diagnostic.MapSyntax, "unsupported operator on text values")
		}
	}

	if l.Kind.IsNumeric() || l.Kind.IsInteger() {
		lf, rf := numericOf(l), numericOf(r)
		switch op {
		case rql.OpEq:
			return types.Bool(lf == rf), nil
		case rql.OpNeq:
			return types.Bool(lf != rf), nil
		case rql.OpLt:
			return types.Bool(lf < rf), nil
		case rql.OpLte:
			return types.Bool(lf <= rf), nil
		case rql.OpGt:
			return types.Bool(lf > rf), nil
		case rql.OpGte:
			return types.Bool(lf >= rf), nil
		case rql.OpAdd:
			return numericResult(l.Kind, lf+rf), nil
		case rql.OpSub:
			return numericResult(l.Kind, lf-rf), nil
		case rql.OpMul:
			return numericResult(l.Kind, lf*rf), nil
		case rql.OpDiv:
			if rf == 0 {
				return types.Value{}, diagnostic.New(diagnostic.NumberParse, "division by zero")
			}
			return numericResult(l.Kind, lf/rf), nil
		}
	}
	return types.Value{}, diagnostic.Newf(diagnostic.MapSyntax, "unsupported operands for operator")
}

func numericOf(v types.Value) float64 {
	switch {
	case v.Kind == types.KindFloat4 || v.Kind == types.KindFloat8:
		return v.AsFloat()
	case v.Kind.IsInteger() && isUnsigned(v.Kind):
		return float64(v.AsUint())
	default:
		return float64(v.AsInt())
	}
}

func isUnsigned(k types.Kind) bool {
	switch k {
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16, types.KindUint:
		return true
	default:
		return false
	}
}

func numericResult(kind types.Kind, f float64) types.Value {
	if kind == types.KindFloat4 || kind == types.KindFloat8 {
		return types.Float(kind, f)
	}
	if isUnsigned(kind) {
		return types.Uint(kind, uint64(f))
	}
	return types.Int(kind, int64(f))
}

func compileCall(e *rql.Expr) (CompiledExpr, error) {
	scalar, ok := function.LookupScalar(e.Func)
	if !ok {
		return nil, diagnostic.Newf(diagnostic.MapSyntax, "unknown function %q", e.Func)
	}
	args := make([]CompiledExpr, len(e.Args))
	for i, a := range e.Args {
		c, err := CompileExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	name := e.Fragment.Fragment
	return func(b *Batch) (*Column, error) {
		argCols := make([]*Column, len(args))
		for i, a := range args {
			c, err := a(b)
			if err != nil {
				return nil, err
			}
			argCols[i] = c
		}
		return evalScalarFunction(name, scalar, argCols, b.NumRows())
	}, nil
}

func evalScalarFunction(name string, fn function.Scalar, args []*Column, n int) (*Column, error) {
	out := &Column{Name: name, Kind: fn.ResultKind, Values: make([]types.Value, n), Valid: make([]bool, n)}
	row := make([]types.Value, len(args))
	for i := 0; i < n; i++ {
		allValid := true
		for j, a := range args {
			if !a.Valid[i] {
				allValid = false
				break
			}
			row[j] = a.Values[i]
		}
		if !allValid {
			continue
		}
		v, err := fn.Apply(row)
		if err != nil {
			return nil, err
		}
		out.Values[i] = v
		out.Valid[i] = true
	}
	return out, nil
}
