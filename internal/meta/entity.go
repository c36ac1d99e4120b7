// Package meta defines the domain entities returned by collection queries.
package meta

import (
	"strings"
	"sync"
)

// Data is the lightweight view every entity offers.
type Data interface {
	Name() string
	SortableName() string
}

// group holds what Artist, Album, Genre, Composer and Year share: an
// identity within one collection and the tracks seen referencing it.
type group struct {
	id   int64
	name string

	mu     sync.RWMutex
	tracks []*Track
}

func (g *group) ID() int64 {
	return g.id
}

func (g *group) Name() string {
	return g.name
}

func (g *group) SortableName() string {
	return g.name
}

// Tracks returns the tracks materialized so far that reference this entity.
func (g *group) Tracks() []*Track {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Track(nil), g.tracks...)
}

// AddTrack records t as referencing this entity. Adding the same track twice
// is a no-op.
func (g *group) AddTrack(t *Track) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.tracks {
		if existing == t {
			return
		}
	}
	g.tracks = append(g.tracks, t)
}

// Artist is a performing or album artist.
type Artist struct {
	group
}

func NewArtist(id int64, name string) *Artist {
	return &Artist{group{id: id, name: name}}
}

// SortableName moves a leading "The" to the end: "The Cure" sorts as "Cure, The".
func (a *Artist) SortableName() string {
	if len(a.name) > 4 && strings.EqualFold(a.name[:4], "the ") {
		return a.name[4:] + ", " + a.name[:3]
	}
	return a.name
}

// Album is an album. An album without album artist is a compilation.
type Album struct {
	group
	artist *Artist
}

func NewAlbum(id int64, name string, artist *Artist) *Album {
	return &Album{group: group{id: id, name: name}, artist: artist}
}

// AlbumArtist returns the album artist, nil for compilations.
func (a *Album) AlbumArtist() *Artist {
	return a.artist
}

func (a *Album) HasAlbumArtist() bool {
	return a.artist != nil
}

func (a *Album) IsCompilation() bool {
	return a.artist == nil
}

type Genre struct {
	group
}

func NewGenre(id int64, name string) *Genre {
	return &Genre{group{id: id, name: name}}
}

type Composer struct {
	group
}

func NewComposer(id int64, name string) *Composer {
	return &Composer{group{id: id, name: name}}
}

type Year struct {
	group
}

func NewYear(id int64, name string) *Year {
	return &Year{group{id: id, name: name}}
}
