package engine

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/flow"
)

// subscriptionBacklog is how many pending FlowChange notifications a slow
// subscriber may accumulate before further pushes are dropped (the design
// notes, "notifySubscribers" - a stalled subscriber must never block the
// flow pipeline that feeds it).
const subscriptionBacklog = 16

// Subscribe implements spec.md §6's "Engine.subscribe(query) → SubscriptionId":
// it opens a live notification channel against an already-registered view
// (created via CreateView) and returns an id Recv uses to drain it.
func (e *Engine) Subscribe(viewName string) (uint64, error) {
	viewID, ok := e.resolvePrimitive(viewName)
	if !ok {
		return 0, diagnostic.Newf(diagnostic.CatalogViewNotFound, "unknown view %q", viewName)
	}

	id := e.subSeq.Add(1)
	ch := make(chan []*flow.Row, subscriptionBacklog)

	e.subMu.Lock()
	e.subChans[id] = ch
	e.viewSubs[viewID] = append(e.viewSubs[viewID], id)
	e.subMu.Unlock()

	return id, nil
}

// Unsubscribe releases a subscription's channel; a subsequent Recv on the
// same id returns an unknown-subscription error.
func (e *Engine) Unsubscribe(id uint64) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subChans[id]; ok {
		close(ch)
		delete(e.subChans, id)
	}
}

// Recv implements spec.md §6's "Engine.recv(subscription) → FlowChange":
// it blocks for the next batch of rows pushed to subscription id, or
// returns ctx.Err() if ctx is cancelled first. Each returned batch
// corresponds to exactly one FlowChange the view's flow emitted - the
// backfill's initial population arrives as one batch, each subsequent
// committed change as another (the design notes, "Backfill").
func (e *Engine) Recv(ctx context.Context, id uint64) ([]*flow.Row, error) {
	e.subMu.Lock()
	ch, ok := e.subChans[id]
	e.subMu.Unlock()
	if !ok {
		return nil, diagnostic.Newf(diagnostic.InternalError, "unknown subscription %d", id)
	}

	select {
	case rows, open := <-ch:
		if !open {
			return nil, diagnostic.Newf(diagnostic.InternalError, "subscription %d closed", id)
		}
		return rows, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// notifySubscribersBatch pushes one FlowChange's worth of affected rows to
// every subscription watching viewID. A subscriber whose backlog is full is
// skipped rather than blocking the flow pipeline that produced rows (the
// same non-blocking-send backpressure choice pkg/events.Broker makes).
func (e *Engine) notifySubscribersBatch(viewID uint64, rows []*flow.Row) {
	if len(rows) == 0 {
		return
	}
	e.subMu.Lock()
	ids := append([]uint64{}, e.viewSubs[viewID]...)
	e.subMu.Unlock()
	if len(ids) == 0 {
		return
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, id := range ids {
		ch, ok := e.subChans[id]
		if !ok {
			continue
		}
		select {
		case ch <- rows:
		default:
		}
	}
}
