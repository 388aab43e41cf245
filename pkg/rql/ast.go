package rql

// Every AST node carries its source Fragment so diagnostics can carat-point
// at it (the design notes, "Parser").

// Expr is the closed set of expression node kinds. Represented as a tagged
// variant (one struct, a Tag discriminant) rather than an interface
// hierarchy, per the design notes' "prefer a tagged variant over trait
// objects" guidance - the same shape pkg/types.Value and pkg/store's Delta
// already use.
type ExprTag uint8

const (
	ExprLiteral ExprTag = iota
	ExprIdent
	ExprColumnRef // namespace-qualified or table-qualified identifier (a.b)
	ExprBinary
	ExprUnary
	ExprCall
	ExprAlias
)

type BinaryOp uint8

const (
	OpEq BinaryOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
)

type UnaryOp uint8

const (
	OpNot UnaryOp = iota
	OpNeg
)

// LiteralKind tags the closed set of literal forms the parser produces.
type LiteralKind uint8

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitBool
)

// Expr is one expression tree node.
type Expr struct {
	Tag      ExprTag
	Fragment Token

	// ExprLiteral
	LitKind LiteralKind
	LitText string

	// ExprIdent / ExprColumnRef
	Qualifier string
	Name      string

	// ExprBinary
	BinOp BinaryOp
	Left  *Expr
	Right *Expr

	// ExprUnary
	UnOp    UnaryOp
	Operand *Expr

	// ExprCall
	Func string
	Args []*Expr

	// ExprAlias
	Alias string
	Inner *Expr
}

// StageKind is the closed set of pipeline stages (the design notes, "Parser").
type StageKind uint8

const (
	StageFrom StageKind = iota
	StageFilter
	StageMap
	StageExtend
	StageAggregate
	StageJoin
	StageSort
	StageTake
	StageDistinct
)

// SortKey is one ordering term of a SORT stage.
type SortKey struct {
	Expr *Expr
	Desc bool
}

// JoinKind mirrors the operator catalogue's join variants.
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinNatural
)

// Stage is one pipeline clause.
type Stage struct {
	Kind StageKind

	// StageFrom
	Source string

	// StageFilter
	Predicate *Expr

	// StageMap / StageExtend
	Projections []*Expr

	// StageAggregate
	Aggregates []*Expr
	GroupBy    []*Expr

	// StageJoin
	JoinKind JoinKind
	JoinWith string
	JoinOn   *Expr

	// StageSort
	SortKeys []SortKey

	// StageTake
	Limit int
}

// Query is a full pipelined query: FROM followed by zero or more stages.
type Query struct {
	Stages []Stage
}

// Statement is the closed set of top-level statements the parser produces.
type StatementTag uint8

const (
	StmtQuery StatementTag = iota
	StmtCreateTable
	StmtCreateNamespace
	StmtCreateDictionary
	StmtInsert
)

// ColumnDef is one column of a CREATE TABLE statement. A column typed
// `dictionary(name)` leaves Type empty and names the dictionary in
// Dictionary instead; the table's actual column Kind is resolved against
// that dictionary's IDType when the statement runs (pkg/engine's createTable).
type ColumnDef struct {
	Name       string
	Type       string
	Dictionary string
}

// InsertRow is one literal row of an INSERT statement's bracketed list.
type InsertRow struct {
	Fields map[string]*Expr
}

// Statement is one compiled unit: either a pipelined query or a DDL/DML
// statement.
type Statement struct {
	Tag StatementTag

	// StmtQuery
	Query *Query

	// StmtCreateTable
	Namespace string
	Table     string
	Columns   []ColumnDef

	// StmtCreateNamespace
	NewNamespace string

	// StmtCreateDictionary (Namespace above names its scope)
	DictionaryName      string
	DictionaryIDType    string
	DictionaryValueType string

	// StmtInsert
	InsertTarget string
	Rows         []InsertRow
}

// Script is a sequence of statements, as produced by a multi-statement
// compile (the design notes, "Incremental multi-statement mode").
type Script struct {
	Statements []*Statement
}
