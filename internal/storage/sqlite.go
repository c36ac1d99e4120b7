package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	dbutil "github.com/llehouerou/shoal/internal/db"
)

const memoryPath = ":memory:"

// SQLite is the Storage implementation backed by a SQLite database file.
type SQLite struct {
	sqliteDialect
	db      *sql.DB
	path    string
	writeMu sync.Mutex
}

var _ Storage = (*SQLite)(nil)

// Open opens (creating if needed) the database at path and initializes the schema.
func Open(ctx context.Context, path string) (*SQLite, error) {
	dsn := memoryPath
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Path returns the database location.
func (s *SQLite) Path() string {
	return s.path
}

// DB exposes the underlying handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Query(ctx context.Context, query string) ([][]string, error) {
	return queryRows(ctx, s.db, query)
}

func (s *SQLite) Insert(ctx context.Context, statement, _ string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return insertRow(ctx, s.db, statement)
}

func (s *SQLite) Exec(ctx context.Context, statement string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, statement)
	return err
}

func (s *SQLite) Update(ctx context.Context, fn func(Storage) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&txStorage{tx: tx})
	})
}

// txStorage is the Storage view of an open transaction.
type txStorage struct {
	sqliteDialect
	tx *sql.Tx
}

func (t *txStorage) Query(ctx context.Context, query string) ([][]string, error) {
	return queryRows(ctx, t.tx, query)
}

func (t *txStorage) Insert(ctx context.Context, statement, _ string) (int64, error) {
	return insertRow(ctx, t.tx, statement)
}

func (t *txStorage) Exec(ctx context.Context, statement string) error {
	_, err := t.tx.ExecContext(ctx, statement)
	return err
}

func (t *txStorage) Update(_ context.Context, fn func(Storage) error) error {
	return fn(t)
}

type execQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryRows(ctx context.Context, q execQueryer, query string) ([][]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var result [][]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = dbutil.NullStringValue(v)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func insertRow(ctx context.Context, q execQueryer, statement string) (int64, error) {
	res, err := q.ExecContext(ctx, statement)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
