// Package adapters hides the concrete database driver behind a minimal
// interface so the engine can run on a pgx pool, a plain sql.DB, or a sqlx.DB
// without duplicating any query logic.
package adapters

import "context"

// DBAdapter defines the database operations needed by the event store engine.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
