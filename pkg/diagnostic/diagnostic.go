// Package diagnostic implements ReifyDB's error handling design: every
// failure in the engine is a Diagnostic carrying a
// stable code, a message, an optional source fragment, and an optional
// cause. Diagnostics are values, not error trees - operators and the parser
// stop at the first one (the design notes, "Propagation").
package diagnostic

import "fmt"

// Code is a stable, documented identifier. The prefix groups diagnostics by
// subsystem (the design notes, "Taxonomy"):
//
//	CA_*        catalog
//	CAST_*       type coercion
//	EXTEND_*     projection/extension
//	BOOLEAN_*, NUMBER_*, TEMPORAL_* value parsing
//	MAP_*        query syntax
//	INTERNAL_ERROR invariant violations
type Code string

const (
	CatalogColumnExists       Code = "CA_COLUMN_EXISTS"
	CatalogColumnNotFound     Code = "CA_COLUMN_NOT_FOUND"
	CatalogInvalidAutoInc     Code = "CA_INVALID_AUTO_INCREMENT"
	CatalogDictionaryMissing  Code = "CA_DICTIONARY_MISSING"
	CatalogNamespaceNotFound  Code = "CA_NAMESPACE_NOT_FOUND"
	CatalogTableNotFound      Code = "CA_TABLE_NOT_FOUND"
	CatalogViewNotFound       Code = "CA_VIEW_NOT_FOUND"
	CatalogEntityExists       Code = "CA_ENTITY_EXISTS"

	CastOverflow     Code = "CAST_OVERFLOW"
	CastIncompatible Code = "CAST_INCOMPATIBLE"
	CastLossy        Code = "CAST_LOSSY"

	ExtendDuplicateColumn Code = "EXTEND_DUPLICATE_COLUMN"

	BooleanParse  Code = "BOOLEAN_PARSE"
	NumberParse   Code = "NUMBER_PARSE"
	TemporalParse Code = "TEMPORAL_PARSE"

	MapSyntax Code = "MAP_SYNTAX"

	InternalError Code = "INTERNAL_ERROR"

	StoreCommitAtZero     Code = "STORE_COMMIT_AT_ZERO"
	StoreResourceExhausted Code = "STORE_RESOURCE_EXHAUSTED"

	TxnConflict    Code = "TXN_CONFLICT"
	TxnCancelled   Code = "TXN_CANCELLED"
	TxnDeadlineExceeded Code = "TXN_DEADLINE_EXCEEDED"

	VMResourceLimit Code = "VM_RESOURCE_LIMIT"

	FlowCycle Code = "FLOW_CYCLE"
	FlowOperatorFailed Code = "FLOW_OPERATOR_FAILED"
	FlowLagExceeded Code = "FLOW_LAG_EXCEEDED"
)

// Fragment is a span into source text, used to render a caret-pointing error
// message (the design notes, "User-visible behavior").
type Fragment struct {
	Source string
	Line   int
	Column int
	Offset int
	Length int
}

// Diagnostic is the single error type every subsystem returns.
type Diagnostic struct {
	Code     Code
	Message  string
	Fragment *Fragment
	Cause    error

	// Internal-error enrichment (the design notes): populated only for
	// INTERNAL_ERROR diagnostics.
	File     string
	Line     int
	Function string
}

func New(code Code, message string) *Diagnostic {
	return &Diagnostic{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, message string) *Diagnostic {
	return &Diagnostic{Code: code, Message: message, Cause: cause}
}

func (d *Diagnostic) WithFragment(f Fragment) *Diagnostic {
	d.Fragment = &f
	return d
}

func (d *Diagnostic) Error() string {
	if d.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", d.Code, d.Message, d.Cause)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

// Render produces the banner + caret format described in the design notes. It is
// the in-core contract; the REPL/CLI collaborator owns colorization.
func Render(d *Diagnostic) string {
	out := fmt.Sprintf("error[%s]: %s\n", d.Code, d.Message)
	if d.Fragment != nil {
		f := d.Fragment
		out += fmt.Sprintf("  --> line %d, column %d\n", f.Line, f.Column)
		if f.Source != "" {
			line := lineAt(f.Source, f.Line)
			out += fmt.Sprintf("   | %s\n", line)
			out += fmt.Sprintf("   | %s%s\n", spaces(f.Column), carets(max(1, f.Length)))
		}
	}
	if d.Code == InternalError {
		out += fmt.Sprintf("  at %s:%d in %s\n", d.File, d.Line, d.Function)
	}
	return out
}

func lineAt(source string, line int) string {
	start, cur := 0, 1
	for i := 0; i < len(source); i++ {
		if cur == line {
			start = i
			break
		}
		if source[i] == '\n' {
			cur++
		}
	}
	end := start
	for end < len(source) && source[end] != '\n' {
		end++
	}
	if start > len(source) {
		return ""
	}
	return source[start:end]
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func carets(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '^'
	}
	return string(b)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
