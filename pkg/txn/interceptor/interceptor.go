// Package interceptor implements the pre/post commit and pre/post entity
// hook chain transactions run through (the design notes, "Interceptors").
package interceptor

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// Event carries the data interceptors observe around a commit.
type Event struct {
	Deltas  []types.Delta
	Changes []types.Change
}

// Interceptor observes a transaction's lifecycle. A PreCommit or PreEntity
// error aborts the transaction before anything is written; PostCommit and
// PostEntity run after a successful commit and cannot un-commit it.
type Interceptor interface {
	PreCommit(ctx context.Context, ev *Event) error
	PostCommit(ctx context.Context, ev *Event)
	PreEntity(ctx context.Context, d types.Delta) error
	PostEntity(ctx context.Context, d types.Delta)
}

// Base is embeddable by interceptors that only implement a subset of hooks.
type Base struct{}

func (Base) PreCommit(ctx context.Context, ev *Event) error    { return nil }
func (Base) PostCommit(ctx context.Context, ev *Event)         {}
func (Base) PreEntity(ctx context.Context, d types.Delta) error { return nil }
func (Base) PostEntity(ctx context.Context, d types.Delta)     {}

// Chain runs an ordered list of interceptors, stopping at the first
// PreCommit/PreEntity error.
type Chain struct {
	interceptors []Interceptor
}

func NewChain(is ...Interceptor) *Chain {
	return &Chain{interceptors: is}
}

// Use appends an interceptor to the end of the chain.
func (c *Chain) Use(i Interceptor) {
	c.interceptors = append(c.interceptors, i)
}

func (c *Chain) RunPreEntity(ctx context.Context, deltas []types.Delta) error {
	for _, d := range deltas {
		for _, i := range c.interceptors {
			if err := i.PreEntity(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Chain) RunPreCommit(ctx context.Context, ev *Event) error {
	for _, i := range c.interceptors {
		if err := i.PreCommit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) RunPostCommit(ctx context.Context, ev *Event) {
	for _, i := range c.interceptors {
		i.PostCommit(ctx, ev)
	}
}

func (c *Chain) RunPostEntity(ctx context.Context, deltas []types.Delta) {
	for _, d := range deltas {
		for _, i := range c.interceptors {
			i.PostEntity(ctx, d)
		}
	}
}
