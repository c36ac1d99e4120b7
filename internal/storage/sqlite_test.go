package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"admin", "devices", "urls", "tracks", "artists", "albums",
		"genres", "composers", "years", "statistics"} {
		rows, err := s.Query(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='"+table+"';")
		require.NoError(t, err)
		assert.Len(t, rows, 1, "table %s should exist", table)
	}

	rows, err := s.Query(ctx, "SELECT value FROM admin WHERE component = 'DB_VERSION';")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0][0])
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, "INSERT INTO artists (name) VALUES ('Enigma');", "artists")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Query(ctx, "SELECT name FROM artists;")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Enigma"}}, rows)
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	id, err := s.Insert(ctx, "INSERT INTO genres (name) VALUES ('Ambient');", "genres")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rows, err := s.Query(ctx, "SELECT id, name FROM genres;")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Ambient"}}, rows)
}

func TestQuery_NullBecomesEmpty(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "INSERT INTO albums (name, artist) VALUES ('Various', NULL);", "albums")
	require.NoError(t, err)

	rows, err := s.Query(ctx, "SELECT name, artist FROM albums;")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Various", ""}, rows[0])
}

func TestQuery_Error(t *testing.T) {
	s := openTestDB(t)
	_, err := s.Query(context.Background(), "SELECT * FROM no_such_table;")
	assert.Error(t, err)
}

func TestUpdate_CommitAndRollback(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx Storage) error {
		if _, err := tx.Insert(ctx, "INSERT INTO years (name) VALUES ('1990');", "years"); err != nil {
			return err
		}
		_, err := tx.Insert(ctx, "INSERT INTO years (name) VALUES ('1994');", "years")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Update(ctx, func(tx Storage) error {
		if _, err := tx.Insert(ctx, "INSERT INTO years (name) VALUES ('2000');", "years"); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, "SELECT COUNT(*) FROM years;")
		if err != nil {
			return err
		}
		assert.Equal(t, "3", rows[0][0], "transaction should see its own insert")
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := s.Query(ctx, "SELECT name FROM years ORDER BY name;")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1990"}, {"1994"}}, rows)
}

func TestDialect(t *testing.T) {
	s := openTestDB(t)

	assert.Equal(t, "Guns N'' Roses", s.Escape("Guns N' Roses"))
	assert.Equal(t, "RANDOM()", s.RandomFunc())
	assert.Equal(t, "VARCHAR(255)", s.TextColumnType(255))
	assert.Equal(t, "VARCHAR(32) COLLATE BINARY", s.ExactTextColumnType(32))
	assert.Equal(t, "TEXT", s.LongTextColumnType())
	assert.Contains(t, s.IDType(), "PRIMARY KEY")
}

func TestEscape_RoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	name := `It's "quoted" \ back`
	_, err := s.Insert(ctx, "INSERT INTO artists (name) VALUES ('"+s.Escape(name)+"');", "artists")
	require.NoError(t, err)

	rows, err := s.Query(ctx, "SELECT name FROM artists WHERE name = '"+s.Escape(name)+"';")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, name, rows[0][0])
}

func TestMock_RecordsStatements(t *testing.T) {
	m := NewMock()
	ctx := context.Background()
	m.QueryFunc = func(_ context.Context, _ string) ([][]string, error) {
		return [][]string{{"a"}}, nil
	}

	rows, err := m.Query(ctx, "SELECT 1;")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, rows)

	id, err := m.Insert(ctx, "INSERT INTO x VALUES (1);", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	assert.Equal(t, []string{"SELECT 1;"}, m.Queries())
	assert.Equal(t, []string{"INSERT INTO x VALUES (1);"}, m.Statements())
}
