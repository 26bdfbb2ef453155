package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// wrapError maps driver errors onto the shared sentinels so callers can use [errors.Is].
func wrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, shared.ErrNotFound)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w: %v", msg, shared.ErrConflict, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

// expectOne turns a zero-row update into [shared.ErrNotFound].
func expectOne(result sql.Result, format string, args ...any) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), shared.ErrNotFound)
	}
	return nil
}
