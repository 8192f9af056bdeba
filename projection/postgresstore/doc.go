// Package postgresstore implements the projection store contracts on
// Postgres. Each entity keeps its full document as jsonb next to a few
// indexed scalar columns for filtering; writes are guarded by the document
// version so replaying events is idempotent.
package postgresstore
