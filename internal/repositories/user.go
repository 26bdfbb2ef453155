package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, password_hash, job_ref`

// UserRepository persists [models.User] rows.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, job_ref) VALUES (?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.JobRef,
	)
	if err != nil {
		return wrapError(err, "failed to insert user %s", user.Username)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err, "user %d", id)
	}
	return &user, nil
}

// ByUsername retrieves a user by username.
func (r *UserRepository) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, wrapError(err, "user %q", username)
	}
	return &user, nil
}

// ByEmail retrieves a user by email.
func (r *UserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err, "user with email %q", email)
	}
	return &user, nil
}

// SetJobRef points the user at their latest job.
func (r *UserRepository) SetJobRef(ctx context.Context, userID int64, jobID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET job_ref = ? WHERE id = ?`, jobID, userID)
	if err != nil {
		return wrapError(err, "failed to set job_ref for user %d", userID)
	}
	return expectOne(result, "user %d", userID)
}
