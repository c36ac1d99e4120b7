package query

import "github.com/llehouerou/shoal/internal/meta"

// Result is one batch delivered by a running query. A batch only ever holds
// one kind of entity. The concrete types are Tracks, Artists, Albums, Genres,
// Composers, Years, DataList and Rows.
type Result interface {
	// Kind is the query type whose results the batch holds.
	Kind() Type
	Len() int
	Collection() string
	isResult()
}

type Tracks struct {
	CollectionID string
	Items        []*meta.Track
}

type Artists struct {
	CollectionID string
	Items        []*meta.Artist
}

type Albums struct {
	CollectionID string
	Items        []*meta.Album
}

type Genres struct {
	CollectionID string
	Items        []*meta.Genre
}

type Composers struct {
	CollectionID string
	Items        []*meta.Composer
}

type Years struct {
	CollectionID string
	Items        []*meta.Year
}

// DataList holds entities of any kind through their lightweight interface.
// Queries that asked for data pointers deliver these instead of typed batches.
type DataList struct {
	CollectionID string
	QueryType    Type
	Items        []meta.Data
}

// Rows is the raw result of a custom query, one value per requested column.
type Rows struct {
	CollectionID string
	Columns      []string
	Values       [][]string
}

func (r Tracks) Kind() Type    { return TypeTrack }
func (r Artists) Kind() Type   { return TypeArtist }
func (r Albums) Kind() Type    { return TypeAlbum }
func (r Genres) Kind() Type    { return TypeGenre }
func (r Composers) Kind() Type { return TypeComposer }
func (r Years) Kind() Type     { return TypeYear }
func (r DataList) Kind() Type  { return r.QueryType }
func (r Rows) Kind() Type      { return TypeCustom }

func (r Tracks) Len() int    { return len(r.Items) }
func (r Artists) Len() int   { return len(r.Items) }
func (r Albums) Len() int    { return len(r.Items) }
func (r Genres) Len() int    { return len(r.Items) }
func (r Composers) Len() int { return len(r.Items) }
func (r Years) Len() int     { return len(r.Items) }
func (r DataList) Len() int  { return len(r.Items) }
func (r Rows) Len() int      { return len(r.Values) }

func (r Tracks) Collection() string    { return r.CollectionID }
func (r Artists) Collection() string   { return r.CollectionID }
func (r Albums) Collection() string    { return r.CollectionID }
func (r Genres) Collection() string    { return r.CollectionID }
func (r Composers) Collection() string { return r.CollectionID }
func (r Years) Collection() string     { return r.CollectionID }
func (r DataList) Collection() string  { return r.CollectionID }
func (r Rows) Collection() string      { return r.CollectionID }

func (Tracks) isResult()    {}
func (Artists) isResult()   {}
func (Albums) isResult()    {}
func (Genres) isResult()    {}
func (Composers) isResult() {}
func (Years) isResult()     {}
func (DataList) isResult()  {}
func (Rows) isResult()      {}

// emptyResult returns a batch with no items of the kind a query of type t
// delivers.
func emptyResult(t Type, asData bool, collectionID string, columns []string) Result {
	if asData && t != TypeCustom {
		return DataList{CollectionID: collectionID, QueryType: t}
	}
	switch t {
	case TypeTrack:
		return Tracks{CollectionID: collectionID}
	case TypeArtist, TypeAlbumArtist:
		return Artists{CollectionID: collectionID}
	case TypeAlbum:
		return Albums{CollectionID: collectionID}
	case TypeGenre:
		return Genres{CollectionID: collectionID}
	case TypeComposer:
		return Composers{CollectionID: collectionID}
	case TypeYear:
		return Years{CollectionID: collectionID}
	default:
		return Rows{CollectionID: collectionID, Columns: columns}
	}
}
