package collection

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	dbutil "github.com/llehouerou/shoal/internal/db"
	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/query"
	"github.com/llehouerou/shoal/internal/storage"
)

// TrackInfo describes a track to add. Zero values are stored as NULL.
type TrackInfo struct {
	Path        string
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Composer    string
	Year        string
	Comment     string
	TrackNumber int
	DiscNumber  int
	Length      time.Duration
	Bitrate     int
	SampleRate  int
	FileSize    int64
	FileType    int
	BPM         float64
}

// Writer adds tracks to a collection.
type Writer struct {
	store  storage.Storage
	paths  query.PathResolver
	logger zerolog.Logger
}

// NewWriter returns a writer over store resolving locations with paths.
func NewWriter(store storage.Storage, paths query.PathResolver, logger zerolog.Logger) *Writer {
	return &Writer{store: store, paths: paths, logger: logger}
}

// AddTrack stores info in one transaction and returns the track id. The
// artist, album, genre, composer and year rows are created when missing.
// Adding a location that is already stored updates its tags.
func (w *Writer) AddTrack(ctx context.Context, info TrackInfo) (int64, error) {
	if info.Path == "" {
		return 0, errors.New("track without path")
	}
	path := filepath.Clean(info.Path)
	device := w.paths.IDForURL(path)
	rel := w.paths.RelativePath(device, path)

	var trackID int64
	var created bool
	err := w.store.Update(ctx, func(s storage.Storage) error {
		artist, err := nameID(ctx, s, "artists", info.Artist)
		if err != nil {
			return err
		}
		albumArtist, err := nameID(ctx, s, "artists", info.AlbumArtist)
		if err != nil {
			return err
		}
		album, err := albumID(ctx, s, info.Album, albumArtist)
		if err != nil {
			return err
		}
		genre, err := nameID(ctx, s, "genres", info.Genre)
		if err != nil {
			return err
		}
		composer, err := nameID(ctx, s, "composers", info.Composer)
		if err != nil {
			return err
		}
		year, err := nameID(ctx, s, "years", info.Year)
		if err != nil {
			return err
		}

		urlID, err := w.urlID(ctx, s, device, rel)
		if err != nil {
			return err
		}

		now := strconv.FormatInt(time.Now().Unix(), 10)
		values := map[string]string{
			"artist":      dbutil.NullID(artist),
			"album":       dbutil.NullID(album),
			"genre":       dbutil.NullID(genre),
			"composer":    dbutil.NullID(composer),
			"year":        dbutil.NullID(year),
			"title":       quote(s, info.Title),
			"comment":     quote(s, info.Comment),
			"tracknumber": nullInt(int64(info.TrackNumber)),
			"discnumber":  nullInt(int64(info.DiscNumber)),
			"bitrate":     nullInt(int64(info.Bitrate)),
			"length":      nullInt(info.Length.Milliseconds()),
			"samplerate":  nullInt(int64(info.SampleRate)),
			"filesize":    nullInt(info.FileSize),
			"filetype":    nullInt(int64(info.FileType)),
			"bpm":         nullFloat(info.BPM),
			"modifydate":  now,
		}

		rows, err := s.Query(ctx, fmt.Sprintf("SELECT id FROM tracks WHERE url = %d;", urlID))
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			trackID = dbutil.Atoi64(rows[0][0])
			set := make([]string, len(trackColumns))
			for i, col := range trackColumns {
				set[i] = col + " = " + values[col]
			}
			return s.Exec(ctx, fmt.Sprintf("UPDATE tracks SET %s WHERE id = %d;",
				strings.Join(set, ", "), trackID))
		}

		cols := append([]string{"url", "createdate"}, trackColumns...)
		vals := []string{strconv.FormatInt(urlID, 10), now}
		for _, col := range trackColumns {
			vals = append(vals, values[col])
		}
		trackID, err = s.Insert(ctx, fmt.Sprintf("INSERT INTO tracks (%s) VALUES (%s);",
			strings.Join(cols, ", "), strings.Join(vals, ", ")), "tracks")
		if err != nil {
			return err
		}
		created = true
		_, err = s.Insert(ctx, fmt.Sprintf(
			"INSERT INTO statistics (url, createdate) VALUES (%d, %s);", urlID, now), "statistics")
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("add track %s: %w", path, err)
	}

	w.logger.Debug().
		Int64("track", trackID).
		Int("device", device).
		Str("rpath", rel).
		Bool("created", created).
		Msg("track stored")
	return trackID, nil
}

var trackColumns = []string{
	"artist", "album", "genre", "composer", "year", "title", "comment",
	"tracknumber", "discnumber", "bitrate", "length", "samplerate",
	"filesize", "filetype", "bpm", "modifydate",
}

// urlID returns the urls row for the location, creating it with a fresh
// unique id.
func (w *Writer) urlID(ctx context.Context, s storage.Storage, device int, rel string) (int64, error) {
	rows, err := s.Query(ctx, fmt.Sprintf(
		"SELECT id FROM urls WHERE deviceid = %d AND rpath = '%s';", device, s.Escape(rel)))
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return dbutil.Atoi64(rows[0][0]), nil
	}
	return s.Insert(ctx, fmt.Sprintf(
		"INSERT INTO urls (deviceid, rpath, uniqueid) VALUES (%d, '%s', '%s');",
		device, s.Escape(rel), s.Escape(meta.UIDScheme+uuid.NewString())), "urls")
}

// nameID returns the id of the row named name in table, inserting it when
// missing. An empty name has no row.
func nameID(ctx context.Context, s storage.Storage, table, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	rows, err := s.Query(ctx, fmt.Sprintf(
		"SELECT id FROM %s WHERE name = '%s';", table, s.Escape(name)))
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return dbutil.Atoi64(rows[0][0]), nil
	}
	return s.Insert(ctx, fmt.Sprintf(
		"INSERT INTO %s (name) VALUES ('%s');", table, s.Escape(name)), table)
}

// albumID is nameID for albums, which are unique per album artist. Albums
// without album artist are compilations.
func albumID(ctx context.Context, s storage.Storage, name string, artist int64) (int64, error) {
	if name == "" {
		return 0, nil
	}
	cond := "artist IS NULL"
	if artist > 0 {
		cond = fmt.Sprintf("artist = %d", artist)
	}
	rows, err := s.Query(ctx, fmt.Sprintf(
		"SELECT id FROM albums WHERE name = '%s' AND %s;", s.Escape(name), cond))
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return dbutil.Atoi64(rows[0][0]), nil
	}
	return s.Insert(ctx, fmt.Sprintf(
		"INSERT INTO albums (name, artist) VALUES ('%s', %s);",
		s.Escape(name), dbutil.NullID(artist)), "albums")
}

func quote(s storage.Storage, text string) string {
	if text == "" {
		return "NULL"
	}
	return "'" + s.Escape(text) + "'"
}

func nullInt(n int64) string {
	if n == 0 {
		return "NULL"
	}
	return strconv.FormatInt(n, 10)
}

func nullFloat(f float64) string {
	if f == 0 {
		return "NULL"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
