package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/probelab/assesscore/projection"
)

const checkpointsTableName = "projection_checkpoints"

// CheckpointStore persists projector positions in Postgres, one row per
// projector name.
type CheckpointStore struct {
	db *sqlx.DB
}

// NewCheckpointStore creates a checkpoint store over the given database
// handle.
func NewCheckpointStore(db *sqlx.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Checkpoint returns the last durably saved position for the projector.
// A projector that never saved reports position zero.
func (s *CheckpointStore) Checkpoint(ctx context.Context, projectorName string) (uint64, error) {
	query, args, err := postgresDialect.
		From(checkpointsTableName).
		Select("global_sequence").
		Where(goqu.Ex{"projector_name": projectorName}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building checkpoint query: %w", err)
	}

	var sequence uint64
	if err := s.db.GetContext(ctx, &sequence, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("loading checkpoint for %s: %w", projectorName, err)
	}

	return sequence, nil
}

// SaveCheckpoint upserts the projector's position.
func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, projectorName string, sequence uint64) error {
	query, args, err := postgresDialect.
		Insert(checkpointsTableName).
		Rows(goqu.Record{
			"projector_name":  projectorName,
			"global_sequence": sequence,
		}).
		OnConflict(goqu.DoUpdate("projector_name", goqu.Record{
			"global_sequence": sequence,
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building checkpoint upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving checkpoint for %s: %w", projectorName, err)
	}

	return nil
}

var _ projection.CheckpointStore = (*CheckpointStore)(nil)
