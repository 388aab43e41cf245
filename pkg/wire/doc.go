/*
Package wire declares the message envelopes §6's WebSocket collaborator
exchanges with the core. The WebSocket server, its framing, and its
authentication are all out of scope (spec.md §1's "Out of scope" list) - this
package owns nothing but the JSON contract, so the core and an external
transport agree on one shape without the core importing a transport library.

A Request names the RQL source and optional bind parameters; a Response
wraps the result or an error payload derived from pkg/diagnostic.Diagnostic;
a SubscriptionNotification carries one pushed frame for a live subscription
opened through Engine.Subscribe. None of these types have behavior: they are
pure data, serialized with encoding/json the same way the teacher's pkg/api
request/response structs are (see original_source's sub009 websocket notes,
SPEC_FULL.md C).
*/
package wire
