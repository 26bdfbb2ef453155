// Package repositories implements SQLite persistence for users and jobs on top of sqlx.
//
// Key Implementations:
//   - [UserRepository] : account persistence with username and email lookups
//   - [JobRepository] : submitted jobs, their one-time results, and the per-user job_ref pointer
//
// Missing rows surface as errors wrapping [shared.ErrNotFound]; UNIQUE violations wrap [shared.ErrConflict].
package repositories
