// Package registry guarantees at most one live instance per entity within a
// collection. Entries are weak: an entity is released as soon as no track or
// caller holds it, and Sweep forgets the dead entries.
package registry

import (
	"time"

	"github.com/llehouerou/shoal/internal/meta"
)

// PathMapper turns a stored (device, relative path) pair into an absolute path.
type PathMapper interface {
	AbsolutePath(deviceID int, rel string) string
}

// TrackKey identifies a track by its location.
type TrackKey struct {
	DeviceID int
	RelPath  string
}

// TrackRow is one decoded track row.
type TrackRow struct {
	ID       int64
	DeviceID int
	RelPath  string
	UID      string

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

	ArtistID        int64
	ArtistName      string
	AlbumID         int64
	AlbumName       string
	AlbumArtistID   int64
	AlbumArtistName string
	GenreID         int64
	GenreName       string
	ComposerID      int64
	ComposerName    string
	YearID          int64
	YearName        string
}

// Stats counts the entries currently held, dead ones included.
type Stats struct {
	Tracks    int
	Artists   int
	Albums    int
	Genres    int
	Composers int
	Years     int
}

// Registry is the entity cache of one collection. It is safe for concurrent use.
type Registry struct {
	collectionID string
	paths        PathMapper

	tracks    *cache[TrackKey, meta.Track]
	uids      *cache[string, meta.Track]
	artists   *cache[int64, meta.Artist]
	albums    *cache[int64, meta.Album]
	genres    *cache[int64, meta.Genre]
	composers *cache[int64, meta.Composer]
	years     *cache[int64, meta.Year]
}

// New creates an empty registry. paths may be nil, in which case a track's
// Path is its relative path.
func New(collectionID string, paths PathMapper) *Registry {
	return &Registry{
		collectionID: collectionID,
		paths:        paths,
		tracks:       newCache[TrackKey, meta.Track](),
		uids:         newCache[string, meta.Track](),
		artists:      newCache[int64, meta.Artist](),
		albums:       newCache[int64, meta.Album](),
		genres:       newCache[int64, meta.Genre](),
		composers:    newCache[int64, meta.Composer](),
		years:        newCache[int64, meta.Year](),
	}
}

// Artist returns the shared artist for id, nil when id is not a valid row id.
func (r *Registry) Artist(id int64, name string) *meta.Artist {
	if id < 1 {
		return nil
	}
	a, _ := r.artists.getOrCreate(id, func() *meta.Artist { return meta.NewArtist(id, name) })
	return a
}

// Album returns the shared album for id. artistID < 1 means the album has
// no album artist.
func (r *Registry) Album(id int64, name string, artistID int64, artistName string) *meta.Album {
	if id < 1 {
		return nil
	}
	artist := r.Artist(artistID, artistName)
	a, _ := r.albums.getOrCreate(id, func() *meta.Album { return meta.NewAlbum(id, name, artist) })
	return a
}

func (r *Registry) Genre(id int64, name string) *meta.Genre {
	if id < 1 {
		return nil
	}
	g, _ := r.genres.getOrCreate(id, func() *meta.Genre { return meta.NewGenre(id, name) })
	return g
}

func (r *Registry) Composer(id int64, name string) *meta.Composer {
	if id < 1 {
		return nil
	}
	c, _ := r.composers.getOrCreate(id, func() *meta.Composer { return meta.NewComposer(id, name) })
	return c
}

func (r *Registry) Year(id int64, name string) *meta.Year {
	if id < 1 {
		return nil
	}
	y, _ := r.years.getOrCreate(id, func() *meta.Year { return meta.NewYear(id, name) })
	return y
}

// Track returns the shared track for row's location. Its foreign entities
// are resolved before the track is built, and a new track is attached to
// them before anyone else can obtain it.
func (r *Registry) Track(row TrackRow) *meta.Track {
	artist := r.Artist(row.ArtistID, row.ArtistName)
	album := r.Album(row.AlbumID, row.AlbumName, row.AlbumArtistID, row.AlbumArtistName)
	genre := r.Genre(row.GenreID, row.GenreName)
	composer := r.Composer(row.ComposerID, row.ComposerName)
	year := r.Year(row.YearID, row.YearName)

	key := TrackKey{DeviceID: row.DeviceID, RelPath: row.RelPath}
	t, created := r.tracks.getOrCreate(key, func() *meta.Track {
		t := &meta.Track{
			ID:           row.ID,
			CollectionID: r.collectionID,
			DeviceID:     row.DeviceID,
			RelPath:      row.RelPath,
			Path:         r.absolutePath(row.DeviceID, row.RelPath),
			UID:          row.UID,
			Title:        row.Title,
			Comment:      row.Comment,
			TrackNumber:  row.TrackNumber,
			DiscNumber:   row.DiscNumber,
			Bitrate:      row.Bitrate,
			Length:       row.Length,
			FileSize:     row.FileSize,
			SampleRate:   row.SampleRate,
			FileType:     row.FileType,
			BPM:          row.BPM,
			Score:        row.Score,
			Rating:       row.Rating,
			PlayCount:    row.PlayCount,
			FirstPlayed:  row.FirstPlayed,
			LastPlayed:   row.LastPlayed,
			Artist:       artist,
			Album:        album,
			Genre:        genre,
			Composer:     composer,
			Year:         year,
		}
		if artist != nil {
			artist.AddTrack(t)
		}
		if album != nil {
			album.AddTrack(t)
		}
		if genre != nil {
			genre.AddTrack(t)
		}
		if composer != nil {
			composer.AddTrack(t)
		}
		if year != nil {
			year.AddTrack(t)
		}
		return t
	})
	if created && row.UID != "" {
		r.uids.put(row.UID, t)
	}
	return t
}

// TrackByUID returns the live track with the given unique id URL, or nil.
func (r *Registry) TrackByUID(uid string) *meta.Track {
	return r.uids.get(uid)
}

// TrackByPath returns the live track at the given location, or nil.
func (r *Registry) TrackByPath(deviceID int, relPath string) *meta.Track {
	return r.tracks.get(TrackKey{DeviceID: deviceID, RelPath: relPath})
}

// Sweep forgets entries whose entity has been released and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	return r.tracks.sweep() +
		r.uids.sweep() +
		r.artists.sweep() +
		r.albums.sweep() +
		r.genres.sweep() +
		r.composers.sweep() +
		r.years.sweep()
}

func (r *Registry) Stats() Stats {
	return Stats{
		Tracks:    r.tracks.len(),
		Artists:   r.artists.len(),
		Albums:    r.albums.len(),
		Genres:    r.genres.len(),
		Composers: r.composers.len(),
		Years:     r.years.len(),
	}
}

func (r *Registry) absolutePath(deviceID int, rel string) string {
	if r.paths == nil {
		return rel
	}
	return r.paths.AbsolutePath(deviceID, rel)
}
