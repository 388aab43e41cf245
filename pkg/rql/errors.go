package rql

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/diagnostic"
)

func newSyntaxErr(source string, line, col, offset int, format string, args ...any) *diagnostic.Diagnostic {
	d := diagnostic.Newf(diagnostic.MapSyntax, format, args...)
	return d.WithFragment(diagnostic.Fragment{Source: source, Line: line, Column: col, Offset: offset, Length: 1})
}

func tokenErr(source string, tok Token, format string, args ...any) *diagnostic.Diagnostic {
	msg := fmt.Sprintf(format, args...)
	d := diagnostic.Newf(diagnostic.MapSyntax, "%s", msg)
	return d.WithFragment(diagnostic.Fragment{
		Source: source, Line: tok.Line, Column: tok.Column, Offset: tok.Offset, Length: max(1, len(tok.Fragment)),
	})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
