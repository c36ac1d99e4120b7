package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const currentSchemaVersion = 1

// AdminTable stores key/value bookkeeping (schema version, collection id).
const AdminTable = "admin"

// SchemaVersionKey is the admin component holding the schema version.
const SchemaVersionKey = "DB_VERSION"

func (s *SQLite) initSchema(ctx context.Context) error {
	if err := s.Exec(ctx, s.schema()); err != nil {
		return err
	}

	rows, err := s.Query(ctx, "SELECT value FROM admin WHERE component = '"+SchemaVersionKey+"';")
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return s.Exec(ctx, fmt.Sprintf(
			"INSERT INTO admin (component, value) VALUES ('%s', '%d');",
			SchemaVersionKey, currentSchemaVersion))
	}

	version, err := strconv.Atoi(rows[0][0])
	if err != nil {
		return fmt.Errorf("invalid schema version %q", rows[0][0])
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}
	return nil
}

// schema builds the CREATE statements from the dialect's column helpers.
func (s *SQLite) schema() string {
	r := strings.NewReplacer(
		"{id}", s.IDType(),
		"{text}", s.TextColumnType(255),
		"{exact}", s.ExactTextColumnType(255),
		"{path}", s.ExactTextColumnType(1000),
		"{long}", s.LongTextColumnType(),
	)
	return r.Replace(`
		CREATE TABLE IF NOT EXISTS admin (
			component {text} PRIMARY KEY,
			value {text}
		);

		CREATE TABLE IF NOT EXISTS devices (
			id {id},
			type {text},
			label {text},
			lastmountpoint {path} NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS urls (
			id {id},
			deviceid INTEGER NOT NULL,
			rpath {path} NOT NULL,
			uniqueid {exact} UNIQUE,
			UNIQUE(deviceid, rpath)
		);

		CREATE TABLE IF NOT EXISTS artists (
			id {id},
			name {text} NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS albums (
			id {id},
			name {text} NOT NULL,
			artist INTEGER REFERENCES artists(id),
			UNIQUE(name, artist)
		);

		CREATE TABLE IF NOT EXISTS genres (
			id {id},
			name {text} NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS composers (
			id {id},
			name {text} NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS years (
			id {id},
			name {text} NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id {id},
			url INTEGER NOT NULL UNIQUE REFERENCES urls(id) ON DELETE CASCADE,
			artist INTEGER REFERENCES artists(id),
			album INTEGER REFERENCES albums(id),
			genre INTEGER REFERENCES genres(id),
			composer INTEGER REFERENCES composers(id),
			year INTEGER REFERENCES years(id),
			title {text},
			comment {long},
			tracknumber INTEGER,
			discnumber INTEGER,
			bitrate INTEGER,
			length INTEGER,
			samplerate INTEGER,
			filesize INTEGER,
			filetype INTEGER,
			bpm REAL,
			createdate INTEGER,
			modifydate INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist);
		CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album);
		CREATE INDEX IF NOT EXISTS idx_tracks_genre ON tracks(genre);
		CREATE INDEX IF NOT EXISTS idx_tracks_composer ON tracks(composer);
		CREATE INDEX IF NOT EXISTS idx_tracks_year ON tracks(year);
		CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist);

		CREATE TABLE IF NOT EXISTS statistics (
			id {id},
			url INTEGER NOT NULL UNIQUE REFERENCES urls(id) ON DELETE CASCADE,
			createdate INTEGER,
			accessdate INTEGER,
			score REAL,
			rating INTEGER NOT NULL DEFAULT 0,
			playcount INTEGER NOT NULL DEFAULT 0
		);
	`)
}
