package db

import (
	"context"
	"database/sql"
	"strconv"
)

// WithTx executes fn within a transaction bound to ctx.
// It handles Begin, Rollback on error, and Commit on success.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// NullStringValue returns the string value or empty string if not valid.
func NullStringValue(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}

// Atoi64 parses a column value as int64, returning 0 for NULL or garbage.
func Atoi64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Atoi parses a column value as int, returning 0 for NULL or garbage.
func Atoi(s string) int {
	return int(Atoi64(s))
}

// Atof parses a column value as float64, returning 0 for NULL or garbage.
func Atof(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// NullID formats an optional foreign key for a SQL statement.
// Ids below 1 are written as NULL.
func NullID(id int64) string {
	if id < 1 {
		return "NULL"
	}
	return strconv.FormatInt(id, 10)
}
