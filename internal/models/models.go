package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	UsernameMaxLen = 64
	EmailMaxLen    = 120
	JobIDLen       = 36
)

// Model is implemented by every persisted entity.
type Model interface {
	Validate() error // Validate checks the entity before it is written
}

var (
	_ Model = (*User)(nil)
	_ Model = (*Job)(nil)
)

// User is a registered account.
type User struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	JobRef       sql.NullString `db:"job_ref"`
}

// NewUser creates a [User] with a hashed password.
func NewUser(username, email, password string) (*User, error) {
	u := &User{Username: username, Email: email}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword replaces the stored hash with a bcrypt hash of password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// LatestJob returns the id of the most recently submitted job, if any.
func (u *User) LatestJob() (string, bool) {
	if !u.JobRef.Valid || u.JobRef.String == "" {
		return "", false
	}
	return u.JobRef.String, true
}

func (u *User) Validate() error {
	switch {
	case strings.TrimSpace(u.Username) == "":
		return fmt.Errorf("username is required")
	case len(u.Username) > UsernameMaxLen:
		return fmt.Errorf("username exceeds %d characters", UsernameMaxLen)
	case strings.TrimSpace(u.Email) == "":
		return fmt.Errorf("email is required")
	case len(u.Email) > EmailMaxLen:
		return fmt.Errorf("email exceeds %d characters", EmailMaxLen)
	case u.PasswordHash == "":
		return fmt.Errorf("password hash is required")
	}
	return nil
}

// Job is a submitted scrape. ID is the task id assigned when the job was queued.
type Job struct {
	ID        string    `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	Result    []byte    `db:"result"`
	UserID    int64     `db:"user_id"`
}

// NewJob creates a [Job] for userID stamped with the current UTC time.
func NewJob(id string, userID int64) *Job {
	return &Job{ID: id, UserID: userID, Timestamp: time.Now().UTC()}
}

// Done reports whether the job's result has been recorded.
func (j *Job) Done() bool {
	return len(j.Result) > 0
}

// Songs decodes the stored result. A job without a result has no songs.
func (j *Job) Songs() ([]Song, error) {
	if !j.Done() {
		return nil, nil
	}
	var songs []Song
	if err := json.Unmarshal(j.Result, &songs); err != nil {
		return nil, fmt.Errorf("failed to decode job result: %w", err)
	}
	return songs, nil
}

func (j *Job) Validate() error {
	switch {
	case j.ID == "":
		return fmt.Errorf("job id is required")
	case len(j.ID) > JobIDLen:
		return fmt.Errorf("job id exceeds %d characters", JobIDLen)
	case j.UserID == 0:
		return fmt.Errorf("job user is required")
	}
	return nil
}

// Song is a single scraped track.
type Song struct {
	Title      string `json:"song"`
	Artist     string `json:"artist"`
	Length     string `json:"length"`
	DurationMS int    `json:"duration_ms"`
}
