// Package postgresengine implements eventstore.Store on PostgreSQL.
//
// The engine works on three database access layers through a small internal
// adapter interface: pgx pools (recommended), database/sql, and sqlx. All
// query logic is shared; pick the constructor matching your connection type.
//
// Appends are conditional writes built with goqu: a CTE selects the stream's
// current maximum version and the insert only takes effect when the new
// event's version is exactly one above it. Zero affected rows means another
// command won the race and eventstore.ErrVersionConflict is returned. The
// unique index on (aggregate_id, tenant_id, version) created by the
// migrations package is the synchronous backstop for the same guarantee.
package postgresengine
