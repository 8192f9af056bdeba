// Package projection holds the read side: denormalized documents derived from
// events, the per-entity store contracts, and the catch-up Projector that
// heals the gap between the event log and the stores.
//
// Documents carry the version of the last applied event. Applying an event
// with a version at or below the document's version is a no-op, which makes
// projection updates idempotent and safe to retry or replay.
package projection
