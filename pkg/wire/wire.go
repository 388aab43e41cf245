package wire

import (
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/types"
)

// Request is one text frame a client sends: an RQL source string plus
// optional bind parameters substituted before compilation (spec.md §6,
// "request JSON {q, params?}").
type Request struct {
	Query  string         `json:"q"`
	Params map[string]any `json:"params,omitempty"`
}

// Response is the reply to a Request: Ok reports whether the statement
// compiled and executed without a diagnostic; Result carries the decoded
// rows on success, Error the rendered diagnostic on failure. Exactly one of
// Result/Error is populated.
type Response struct {
	Ok     bool       `json:"ok"`
	Result []ResultRow `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ResultRow is one query result row as parallel column-name and value
// slices, the JSON projection of engine.Row.
type ResultRow struct {
	Columns []string `json:"columns"`
	Values  []any    `json:"values"`
}

// ErrorBody is a JSON-friendly projection of a pkg/diagnostic.Diagnostic:
// the collaborator renders it however it likes (banner, toast, log line);
// the core never formats for a specific transport.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromDiagnostic builds the wire-level error body for a failed Response.
func FromDiagnostic(d *diagnostic.Diagnostic) *ErrorBody {
	if d == nil {
		return nil
	}
	return &ErrorBody{Code: string(d.Code), Message: d.Message}
}

// Native converts a decoded types.Value to a plain Go value suitable for
// JSON marshaling, used by a collaborator building a ResultRow from the
// core's typed rows. Undefined values marshal as JSON null.
func Native(v types.Value) any {
	if !v.Defined {
		return nil
	}
	switch v.Kind {
	case types.KindBool:
		return v.AsBool()
	case types.KindInt, types.KindUint:
		return v.AsBigInt().String()
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16:
		return v.AsUint()
	case types.KindFloat4, types.KindFloat8:
		return v.AsFloat()
	case types.KindUtf8, types.KindBlob, types.KindDecimal:
		return v.AsString()
	case types.KindUuid4, types.KindUuid7:
		return v.AsUUID().String()
	default:
		if v.Kind.IsInteger() {
			return v.AsInt()
		}
		return v.AsString()
	}
}

// SubscriptionNotification is the out-of-band message pushed for a live
// subscription (spec.md §6: "Subscription notifications use an out-of-band
// {subscription_id, frame} message"). Frame carries one FlowChange's
// resulting rows, already flattened to the same ResultRow shape a query
// response uses.
type SubscriptionNotification struct {
	SubscriptionID uint64      `json:"subscription_id"`
	Frame          []ResultRow `json:"frame"`
}
