package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `id, timestamp, result, user_id`

// JobRepository persists [models.Job] rows.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new [JobRepository] with the given database connection
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a job row.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO jobs (id, timestamp, user_id) VALUES (?, ?, ?)`, job.ID, job.Timestamp, job.UserID)
	if err != nil {
		return wrapError(err, "failed to insert job %s", job.ID)
	}
	return nil
}

// CreateForUser inserts the job and points its owner's job_ref at it in a single transaction.
func (r *JobRepository) CreateForUser(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO jobs (id, timestamp, user_id) VALUES (?, ?, ?)`, job.ID, job.Timestamp, job.UserID); err != nil {
		return wrapError(err, "failed to insert job %s", job.ID)
	}

	result, err := tx.ExecContext(ctx, `UPDATE users SET job_ref = ? WHERE id = ?`, job.ID, job.UserID)
	if err != nil {
		return wrapError(err, "failed to set job_ref for user %d", job.UserID)
	}
	if err := expectOne(result, "user %d", job.UserID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job %s: %w", job.ID, err)
	}
	return nil
}

// Get retrieves a job by ID.
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := r.db.GetContext(ctx, &job, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id); err != nil {
		return nil, wrapError(err, "job %s", id)
	}
	return &job, nil
}

// SetResult records the job's result. Only the first write is kept; it reports whether this call stored it.
func (r *JobRepository) SetResult(ctx context.Context, id string, payload []byte) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE jobs SET result = ? WHERE id = ? AND result IS NULL`, string(payload), id)
	if err != nil {
		return false, wrapError(err, "failed to store result for job %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// zero rows: either already stored or no such job
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ListByUser returns the user's jobs, newest first.
func (r *JobRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Job, error) {
	var jobs []*models.Job
	err := r.db.SelectContext(ctx, &jobs, `SELECT `+jobColumns+` FROM jobs WHERE user_id = ? ORDER BY timestamp DESC, rowid DESC`, userID)
	if err != nil {
		return nil, wrapError(err, "failed to list jobs for user %d", userID)
	}
	return jobs, nil
}
