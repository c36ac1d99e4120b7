// Package storage provides the SQL engine a collection runs its queries against.
package storage

import (
	"context"
	"strconv"
	"strings"
)

// Storage executes raw SQL text for one collection.
//
// Query returns every row as a slice of strings; NULL columns come back as "".
// Implementations must allow concurrent Query calls; writes are serialized
// by the implementation.
type Storage interface {
	Query(ctx context.Context, query string) ([][]string, error)
	Insert(ctx context.Context, statement, table string) (int64, error)
	Exec(ctx context.Context, statement string) error
	// Update runs fn inside a transaction. The Storage handed to fn is
	// scoped to that transaction.
	Update(ctx context.Context, fn func(Storage) error) error

	Escape(text string) string
	RandomFunc() string

	IDType() string
	TextColumnType(length int) string
	ExactTextColumnType(length int) string
	LongTextColumnType() string
}

// sqliteDialect holds the SQLite flavored helpers shared by the database
// and its transactions.
type sqliteDialect struct{}

func (sqliteDialect) Escape(text string) string {
	return strings.ReplaceAll(text, "'", "''")
}

func (sqliteDialect) RandomFunc() string {
	return "RANDOM()"
}

func (sqliteDialect) IDType() string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (sqliteDialect) TextColumnType(length int) string {
	return "VARCHAR(" + strconv.Itoa(length) + ")"
}

func (sqliteDialect) ExactTextColumnType(length int) string {
	return "VARCHAR(" + strconv.Itoa(length) + ") COLLATE BINARY"
}

func (sqliteDialect) LongTextColumnType() string {
	return "TEXT"
}
