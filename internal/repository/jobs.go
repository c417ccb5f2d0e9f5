package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/labelgw/label-gateway/internal/model"
)

// JobsRepository persists dispatch-outcome history rows (MySQL).
type JobsRepository interface {
	BatchInsert(ctx context.Context, tx *sqlx.Tx, recs []model.JobRecord) error
}

type JobsRepositoryImpl struct {
	db *sqlx.DB
}

func NewJobsRepository(db *sqlx.DB) *JobsRepositoryImpl {
	return &JobsRepositoryImpl{db: db}
}

var _ JobsRepository = (*JobsRepositoryImpl)(nil)

func (r *JobsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// BatchInsert inserts job records in one statement. INSERT IGNORE
// keeps replayed Kafka batches idempotent on the ULID primary key.
func (r *JobsRepositoryImpl) BatchInsert(ctx context.Context, tx *sqlx.Tx, recs []model.JobRecord) error {
	if len(recs) == 0 {
		return nil
	}
	const q = `
		INSERT IGNORE INTO print_jobs
		    (id, account_id, event_id, tracking_code, relay_job_id, status, stage, detail, created_at)
		VALUES
		    (:id, :account_id, :event_id, :tracking_code, :relay_job_id, :status, :stage, :detail, :created_at)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, q, recs)
		return err
	})
}
