// Package function implements ReifyDB's pluggable scalar and aggregate
// function registries (the design notes, "Aggregate functions are pluggable").
// Functions are registered by name at package init, mirroring how the
// teacher pack registers handlers in a static map rather than a dynamic
// plugin loader.
package function

import (
	"encoding/base64"
	"strings"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/types"
)

// Scalar is a pluggable row-at-a-time function: given the already-evaluated
// argument values for one row, it returns the result value.
type Scalar struct {
	Name       string
	ResultKind types.Kind
	Apply      func(args []types.Value) (types.Value, error)
}

var scalars = map[string]Scalar{}

func registerScalar(s Scalar) { scalars[s.Name] = s }

// LookupScalar resolves a function name (case-insensitive) to its Scalar
// definition.
func LookupScalar(name string) (Scalar, bool) {
	s, ok := scalars[strings.ToLower(name)]
	return s, ok
}

func init() {
	// Upper: grounded in original_source/crates/engine/src/function/
	// text/upper.rs (SPEC_FULL.md D.8).
	registerScalar(Scalar{
		Name: "upper", ResultKind: types.KindUtf8,
		Apply: func(args []types.Value) (types.Value, error) {
			if len(args) != 1 {
				return types.Value{}, diagnostic.New(diagnostic.MapSyntax, "upper() takes exactly one argument")
			}
			return types.Utf8(strings.ToUpper(args[0].AsString())), nil
		},
	})

	// Base64URL: grounded in original_source/crates/engine/src/function/
	// blob/b64url.rs (SPEC_FULL.md D.8) - url-safe base64 as a
	// first-class scalar function rather than an encoding detail buried
	// in the blob type.
	registerScalar(Scalar{
		Name: "base64url", ResultKind: types.KindUtf8,
		Apply: func(args []types.Value) (types.Value, error) {
			if len(args) != 1 {
				return types.Value{}, diagnostic.New(diagnostic.MapSyntax, "base64url() takes exactly one argument")
			}
			return types.Utf8(base64.URLEncoding.EncodeToString(args[0].AsBytes())), nil
		},
	})
}
