package query

import (
	"strconv"
	"strings"

	"github.com/llehouerou/shoal/internal/meta"
)

type fieldColumn struct {
	name   string
	tables Table
}

var fieldColumns = map[meta.Field]fieldColumn{
	meta.FieldURL:         {"urls.rpath", TableURLs},
	meta.FieldTitle:       {"tracks.title", TableTags},
	meta.FieldArtist:      {"artists.name", TableArtist},
	meta.FieldAlbum:       {"albums.name", TableAlbum},
	meta.FieldAlbumArtist: {"albumartists.name", TableAlbum | TableAlbumArtist},
	meta.FieldGenre:       {"genres.name", TableGenre},
	meta.FieldComposer:    {"composers.name", TableComposer},
	meta.FieldYear:        {"years.name", TableYear},
	meta.FieldBPM:         {"tracks.bpm", TableTags},
	meta.FieldComment:     {"tracks.comment", TableTags},
	meta.FieldTrackNumber: {"tracks.tracknumber", TableTags},
	meta.FieldDiscNumber:  {"tracks.discnumber", TableTags},
	meta.FieldLength:      {"tracks.length", TableTags},
	meta.FieldBitrate:     {"tracks.bitrate", TableTags},
	meta.FieldSampleRate:  {"tracks.samplerate", TableTags},
	meta.FieldFileSize:    {"tracks.filesize", TableTags},
	meta.FieldFormat:      {"tracks.filetype", TableTags},
	meta.FieldCreateDate:  {"tracks.createdate", TableTags},
	meta.FieldScore:       {"statistics.score", TableStatistics},
	meta.FieldRating:      {"statistics.rating", TableStatistics},
	meta.FieldFirstPlayed: {"statistics.createdate", TableStatistics},
	meta.FieldLastPlayed:  {"statistics.accessdate", TableStatistics},
	meta.FieldPlayCount:   {"statistics.playcount", TableStatistics},
	meta.FieldUniqueID:    {"urls.uniqueid", TableURLs},
}

// numericColumns overrides fieldColumns for number filters and ordering on
// fields stored as text.
var numericColumns = map[meta.Field]string{
	meta.FieldYear: "CAST(years.name AS INTEGER)",
}

// trackColumns is the projection of a track query. Keep in sync with the
// col* indexes in materialize.go.
var trackColumns = []string{
	"urls.deviceid", "urls.rpath", "urls.uniqueid",
	"tracks.id", "tracks.title", "tracks.comment",
	"tracks.tracknumber", "tracks.discnumber",
	"statistics.score", "statistics.rating",
	"tracks.bitrate", "tracks.length", "tracks.filesize", "tracks.samplerate",
	"statistics.createdate", "statistics.accessdate", "statistics.playcount",
	"tracks.filetype", "tracks.bpm",
	"artists.name", "artists.id",
	"albums.name", "albums.id", "albums.artist", "albumartists.name",
	"genres.name", "genres.id",
	"composers.name", "composers.id",
	"years.name", "years.id",
}

// likeCondition returns the comparison of a text filter. With anyBegin or
// anyEnd it is a LIKE pattern with the LIKE wildcards of text escaped,
// otherwise a case insensitive equality.
func (m *QueryMaker) likeCondition(text string, anyBegin, anyEnd bool) string {
	if !anyBegin && !anyEnd {
		return " = '" + m.escape(text) + "' COLLATE NOCASE"
	}

	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = m.escape(escaped)
	escaped = strings.ReplaceAll(escaped, "%", `\%`)
	escaped = strings.ReplaceAll(escaped, "_", `\_`)

	var b strings.Builder
	b.WriteString(" LIKE '")
	if anyBegin {
		b.WriteByte('%')
	}
	b.WriteString(escaped)
	if anyEnd {
		b.WriteByte('%')
	}
	b.WriteString(`' ESCAPE '\'`)
	return b.String()
}

// Query returns the SQL text of the query, compiling it if the maker changed
// since the last call.
func (m *QueryMaker) Query() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.compiled != nil {
		return *m.compiled, nil
	}
	q, err := m.buildQuery()
	if err != nil {
		return "", err
	}
	m.compiled = &q
	return q, nil
}

func (m *QueryMaker) buildQuery() (string, error) {
	if m.typ == TypeNone {
		return "", ErrNoQueryType
	}
	if m.typ == TypeCustom && len(m.returnValues) == 0 {
		return "", ErrNoReturnValues
	}
	if len(m.andStack) != 1 {
		return "", ErrUnbalancedGroup
	}

	// Only mounted locations are visible.
	if m.env.Paths != nil {
		m.linked |= TableURLs
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if m.distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(m.returnValues, ", "))
	b.WriteString(" FROM ")
	b.WriteString(m.from())

	b.WriteString(" WHERE 1")
	if m.linked.Has(TableURLs) && m.env.Paths != nil {
		if ids := m.env.Paths.MountedDeviceIDs(); len(ids) > 0 {
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.Itoa(id)
			}
			b.WriteString(" AND urls.deviceid IN (" + strings.Join(parts, ",") + ")")
		}
	}

	switch m.albumMode {
	case OnlyNormalAlbums:
		b.WriteString(" AND albums.artist IS NOT NULL")
	case OnlyCompilations:
		b.WriteString(" AND albums.artist IS NULL")
	}

	b.WriteString(m.match)
	if m.filter != "" {
		b.WriteString(" AND ( 1" + m.filter + " )")
	}
	if len(m.orderBy) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(m.orderBy, ", "))
	}
	if m.maxResults > -1 {
		b.WriteString(" LIMIT " + strconv.Itoa(m.maxResults) + " OFFSET 0")
	}
	b.WriteByte(';')
	return b.String(), nil
}

// from returns the FROM clause: the primary table of the query type, the
// tracks table unless the primary table alone is enough, then every other
// linked table in a fixed order.
func (m *QueryMaker) from() string {
	linked := m.linked

	var b strings.Builder
	switch m.typ {
	case TypeArtist:
		b.WriteString("artists")
		if linked != TableArtist {
			b.WriteString(" INNER JOIN tracks ON tracks.artist = artists.id")
		}
		linked &^= TableArtist
	case TypeAlbum, TypeAlbumArtist:
		b.WriteString("albums")
		if linked != TableAlbum && linked != TableAlbum|TableAlbumArtist {
			b.WriteString(" INNER JOIN tracks ON tracks.album = albums.id")
		}
		linked &^= TableAlbum
	case TypeGenre:
		b.WriteString("genres")
		if linked != TableGenre {
			b.WriteString(" INNER JOIN tracks ON tracks.genre = genres.id")
		}
		linked &^= TableGenre
	case TypeComposer:
		b.WriteString("composers")
		if linked != TableComposer {
			b.WriteString(" INNER JOIN tracks ON tracks.composer = composers.id")
		}
		linked &^= TableComposer
	case TypeYear:
		b.WriteString("years")
		if linked != TableYear {
			b.WriteString(" INNER JOIN tracks ON tracks.year = years.id")
		}
		linked &^= TableYear
	default:
		b.WriteString("tracks")
		linked &^= TableTags
	}

	if linked.Has(TableURLs) {
		b.WriteString(" INNER JOIN urls ON tracks.url = urls.id")
	}
	if linked.Has(TableArtist) {
		b.WriteString(" LEFT JOIN artists ON tracks.artist = artists.id")
	}
	if linked.Has(TableAlbum) {
		b.WriteString(" LEFT JOIN albums ON tracks.album = albums.id")
	}
	if linked.Has(TableAlbumArtist) {
		b.WriteString(" LEFT JOIN artists AS albumartists ON albums.artist = albumartists.id")
	}
	if linked.Has(TableGenre) {
		b.WriteString(" LEFT JOIN genres ON tracks.genre = genres.id")
	}
	if linked.Has(TableComposer) {
		b.WriteString(" LEFT JOIN composers ON tracks.composer = composers.id")
	}
	if linked.Has(TableYear) {
		b.WriteString(" LEFT JOIN years ON tracks.year = years.id")
	}
	if linked.Has(TableStatistics) {
		if linked.Has(TableURLs) {
			b.WriteString(" LEFT JOIN statistics ON urls.id = statistics.url")
		} else {
			b.WriteString(" LEFT JOIN statistics ON tracks.url = statistics.url")
		}
	}
	return b.String()
}
