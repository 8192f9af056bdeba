// Package memorystore provides in-memory implementations of the projection
// store contracts, for tests and local development. Semantics mirror the
// Postgres stores: idempotent creation, version-guarded apply, tenant-scoped
// queries with explicitly separate cross-tenant listings.
package memorystore
