package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	// Postgres dialect for goqu.
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/probelab/assesscore/projection"
)

var marshaler = jsoniter.ConfigFastest

var postgresDialect = goqu.Dialect("postgres")

// baseStore holds the plumbing shared by all five entity stores: one row per
// (id, tenantID) with the document as jsonb, its version, and a handful of
// indexed columns specific to each entity.
type baseStore struct {
	db       *sqlx.DB
	table    string
	idColumn string
}

// insert seeds a new document row. A row that already exists is left alone,
// which makes replaying a creation event a no-op.
func (s baseStore) insert(
	ctx context.Context,
	id string,
	tenantID string,
	version int64,
	updatedAt time.Time,
	docJSON []byte,
	extra goqu.Record,
) error {

	record := goqu.Record{
		s.idColumn:   id,
		"tenant_id":  tenantID,
		"version":    version,
		"updated_at": updatedAt,
		"doc":        docJSON,
	}
	for column, value := range extra {
		record[column] = value
	}

	query, args, err := postgresDialect.
		Insert(s.table).
		Rows(record).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building insert for %s: %w", s.table, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", s.table, err)
	}

	return nil
}

// load reads one document row.
func (s baseStore) load(ctx context.Context, id string, tenantID string) ([]byte, int64, error) {
	query, args, err := postgresDialect.
		From(s.table).
		Select("doc", "version").
		Where(goqu.Ex{s.idColumn: id, "tenant_id": tenantID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("building select for %s: %w", s.table, err)
	}

	var row struct {
		Doc     []byte `db:"doc"`
		Version int64  `db:"version"`
	}

	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, projection.ErrDocumentNotFound
		}

		return nil, 0, fmt.Errorf("loading from %s: %w", s.table, err)
	}

	return row.Doc, row.Version, nil
}

// update persists a folded document, guarded by the version the document was
// loaded at. Zero rows affected means a concurrent writer got there first;
// that writer saw at least the same events, and the projector re-applies
// anything missed, so the race is not an error.
func (s baseStore) update(
	ctx context.Context,
	id string,
	tenantID string,
	loadedVersion int64,
	newVersion int64,
	updatedAt time.Time,
	docJSON []byte,
	extra goqu.Record,
) error {

	record := goqu.Record{
		"version":    newVersion,
		"updated_at": updatedAt,
		"doc":        docJSON,
	}
	for column, value := range extra {
		record[column] = value
	}

	query, args, err := postgresDialect.
		Update(s.table).
		Set(record).
		Where(goqu.Ex{s.idColumn: id, "tenant_id": tenantID, "version": loadedVersion}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building update for %s: %w", s.table, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating %s: %w", s.table, err)
	}

	return nil
}

// list reads the documents matching the given conditions.
func (s baseStore) list(ctx context.Context, conditions ...goqu.Expression) ([][]byte, error) {
	query, args, err := postgresDialect.
		From(s.table).
		Select("doc").
		Where(conditions...).
		Order(goqu.I("updated_at").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building list query for %s: %w", s.table, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing from %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	var documents [][]byte

	for rows.Next() {
		var docJSON []byte
		if err := rows.Scan(&docJSON); err != nil {
			return nil, fmt.Errorf("scanning row from %s: %w", s.table, err)
		}

		documents = append(documents, docJSON)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows from %s: %w", s.table, err)
	}

	return documents, nil
}
