package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/labelgw/label-gateway/internal/model"
)

// CHJobsRepository reads and appends the ClickHouse job-history view.
type CHJobsRepository interface {
	BatchInsert(ctx context.Context, recs []model.JobRecord) error
	ListByAccount(ctx context.Context, accountID string, status model.JobStatus, limit, offset int) ([]model.JobRecord, error)
}

type chJobsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHJobsRepository(ch *sqlx.DB) CHJobsRepository {
	return &chJobsRepository{ch: ch}
}

func (r *chJobsRepository) BatchInsert(ctx context.Context, recs []model.JobRecord) error {
	if len(recs) == 0 {
		return nil
	}
	const q = `
		INSERT INTO labelgw.print_jobs
		    (id, account_id, event_id, tracking_code, relay_job_id, status, stage, detail, created_at)
		VALUES
		    (:id, :account_id, :event_id, :tracking_code, :relay_job_id, :status, :stage, :detail, :created_at)
	`
	_, err := r.ch.NamedExecContext(ctx, q, recs)
	return err
}

func (r *chJobsRepository) ListByAccount(ctx context.Context, accountID string, status model.JobStatus, limit, offset int) ([]model.JobRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, account_id, event_id, tracking_code, relay_job_id, status, stage, detail, created_at
		FROM labelgw.print_jobs
		WHERE account_id = ?
	`
	args := []any{accountID}

	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.JobRecord
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
