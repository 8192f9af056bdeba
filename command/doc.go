// Package command holds the write-side orchestration: one handler per
// aggregate type implementing the canonical sequence resolve → load history →
// replay → invoke → append → project → mark committed.
//
// Handlers are stateless; every invocation re-derives aggregate state from
// the event log. Version conflicts from concurrent writers surface as
// eventstore.ErrVersionConflict and are retried as whole commands: the
// history is reloaded and fresh events (fresh event ids) are produced.
// Appending events and updating projections are not atomic; the projection
// step is best-effort here and the catch-up projector heals any gap from its
// durable checkpoint.
package command
