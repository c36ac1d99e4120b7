package meta

import (
	"strings"
	"time"
)

// UIDScheme prefixes the unique id URL of every track.
const UIDScheme = "shoal-trackuid://"

// Track is one file of a collection. A track is fully built, including its
// foreign entities, before it is handed out and is read-only afterwards.
type Track struct {
	ID           int64
	CollectionID string

	DeviceID int
	RelPath  string
	// Path is the absolute path resolved from DeviceID and RelPath.
	Path string
	// UID is the unique id URL (UIDScheme + id).
	UID string

	Title       string
	Comment     string
	TrackNumber int
	DiscNumber  int
	Bitrate     int
	Length      time.Duration
	FileSize    int64
	SampleRate  int
	FileType    int
	BPM         float64

	Score       float64
	Rating      int
	PlayCount   int
	FirstPlayed time.Time
	LastPlayed  time.Time

	Artist   *Artist
	Album    *Album
	Genre    *Genre
	Composer *Composer
	Year     *Year
}

func (t *Track) Name() string {
	return t.Title
}

func (t *Track) SortableName() string {
	return t.Title
}

// ArtistName returns the artist name or "" when the track has none.
func (t *Track) ArtistName() string {
	if t.Artist == nil {
		return ""
	}
	return t.Artist.Name()
}

func (t *Track) AlbumName() string {
	if t.Album == nil {
		return ""
	}
	return t.Album.Name()
}

// IsUID reports whether url uses the track unique id scheme.
func IsUID(url string) bool {
	return strings.HasPrefix(url, UIDScheme)
}

var (
	_ Data = (*Track)(nil)
	_ Data = (*Artist)(nil)
	_ Data = (*Album)(nil)
	_ Data = (*Genre)(nil)
	_ Data = (*Composer)(nil)
	_ Data = (*Year)(nil)
)
