package interceptor

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// Predicate decides whether a wrapped interceptor observes a given delta.
type Predicate func(d types.Delta) bool

// Filtered scopes a generic Interceptor to entities matching Predicate,
// without rewriting the inner interceptor itself. Grounded in
// original_source's transaction/interceptor/filtered.rs - the original
// implementation's way of reusing one interceptor across several entity
// kinds by wrapping it rather than parameterizing it.
type Filtered struct {
	Base
	Inner     Interceptor
	Predicate Predicate
}

func NewFiltered(predicate Predicate, inner Interceptor) *Filtered {
	return &Filtered{Inner: inner, Predicate: predicate}
}

func (f *Filtered) PreEntity(ctx context.Context, d types.Delta) error {
	if !f.Predicate(d) {
		return nil
	}
	return f.Inner.PreEntity(ctx, d)
}

func (f *Filtered) PostEntity(ctx context.Context, d types.Delta) {
	if !f.Predicate(d) {
		return
	}
	f.Inner.PostEntity(ctx, d)
}

func (f *Filtered) PreCommit(ctx context.Context, ev *Event) error {
	return f.Inner.PreCommit(ctx, ev)
}

func (f *Filtered) PostCommit(ctx context.Context, ev *Event) {
	f.Inner.PostCommit(ctx, ev)
}
