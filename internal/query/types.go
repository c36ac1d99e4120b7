// Package query builds SQL for collection queries, runs them on a worker pool
// and turns the rows into shared domain entities.
package query

// Type is the shape of the results a query returns.
type Type int

const (
	TypeNone Type = iota
	TypeTrack
	TypeArtist
	TypeAlbum
	TypeAlbumArtist
	TypeGenre
	TypeComposer
	TypeYear
	TypeCustom
)

func (t Type) String() string {
	switch t {
	case TypeTrack:
		return "track"
	case TypeArtist:
		return "artist"
	case TypeAlbum:
		return "album"
	case TypeAlbumArtist:
		return "albumartist"
	case TypeGenre:
		return "genre"
	case TypeComposer:
		return "composer"
	case TypeYear:
		return "year"
	case TypeCustom:
		return "custom"
	default:
		return "none"
	}
}

// Table is a bitset of the tables a query must join.
type Table uint

const (
	TableTags Table = 1 << iota
	TableArtist
	TableAlbum
	TableGenre
	TableComposer
	TableYear
	TableStatistics
	TableURLs
	TableAlbumArtist
)

// Has reports whether every table of o is set in t.
func (t Table) Has(o Table) bool {
	return t&o == o
}

// AlbumQueryMode restricts album results by compilation status.
type AlbumQueryMode int

const (
	AllAlbums AlbumQueryMode = iota
	OnlyCompilations
	OnlyNormalAlbums
)

// NumberComparison is the comparator of a numeric filter.
type NumberComparison int

const (
	Equals NumberComparison = iota
	GreaterThan
	LessThan
)

func (c NumberComparison) String() string {
	switch c {
	case Equals:
		return "equals"
	case GreaterThan:
		return "greater"
	case LessThan:
		return "less"
	default:
		return "unknown"
	}
}

// ReturnFunction is an aggregate applied to a custom return value.
type ReturnFunction int

const (
	Count ReturnFunction = iota
	Sum
	Max
	Min
)

// ArtistMatchBehaviour selects which artist an artist match applies to.
type ArtistMatchBehaviour int

const (
	TrackArtists ArtistMatchBehaviour = iota
	AlbumArtists
	AlbumOrTrackArtists
)
