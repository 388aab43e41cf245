/*
Package events provides an in-memory broker for catalog lifecycle
notifications: namespace/table/view/flow creation and removal, published
after the owning DDL transaction commits (the design notes, "Interceptors").

It is deliberately separate from the flow layer's own notification path
(pkg/engine's Subscribe/Recv, which delivers FlowChange values to a
specific subscription). This broker instead serves observers that want
to know the catalog changed shape at all - an audit log, a metrics
counter, a schema cache invalidator - without caring which row changed.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventTableCreated:
				log.Info().Str("table", event.Metadata["name"]).Msg("table created")
			}
		}
	}()

	broker.Publish(&events.Event{
		Type:     events.EventTableCreated,
		Message:  "table 'orders' created",
		Metadata: map[string]string{"namespace": "default", "name": "orders"},
	})

Publish is non-blocking and broadcast is best-effort: a subscriber whose
buffer is full simply misses the event rather than stalling the
publishing commit. That trade-off is fine for observability but means
this broker must never be load-bearing for anything the engine needs to
guarantee - flow delivery and checkpointing do not go through it.
*/
package events
