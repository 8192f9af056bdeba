// Package eventstore defines the storage contract of the assessment platform's
// event-sourced core: the StoredEvent DTO, the Store interface implemented by
// the postgresengine and memoryengine packages, the sentinel errors shared by
// all engines, and dependency-free observability contracts.
//
// Events are keyed by (AggregateID, TenantID, Version). Version is assigned by
// the domain layer (current aggregate version + 1) and the engines enforce it
// atomically on append: an event whose version is not exactly one above the
// stream's current maximum is rejected with ErrVersionConflict. This is the
// serialization point for concurrent commands against the same aggregate
// instance.
//
// The store is append-only. Events are immutable once appended and are never
// deleted; aggregate state is derived exclusively by replaying them.
package eventstore
