package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/mountpoint"
	"github.com/llehouerou/shoal/internal/storage"
)

func newTestMaker(paths PathResolver) *QueryMaker {
	return New(&Env{CollectionID: "local", Storage: storage.NewMock(), Paths: paths})
}

func mustQuery(t *testing.T, m *QueryMaker) string {
	t.Helper()
	q, err := m.Query()
	require.NoError(t, err)
	return q
}

func TestQuery_ArtistWithoutLocations(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeArtist)

	assert.Equal(t,
		"SELECT DISTINCT artists.name, artists.id FROM artists WHERE 1;",
		mustQuery(t, m))
}

func TestQuery_ArtistScopedToMountedDevices(t *testing.T) {
	m := newTestMaker(mountpoint.Static{MountPoints: map[int]string{1: "/music"}})
	m.SetQueryType(TypeArtist)

	assert.Equal(t,
		"SELECT DISTINCT artists.name, artists.id FROM artists"+
			" INNER JOIN tracks ON tracks.artist = artists.id"+
			" INNER JOIN urls ON tracks.url = urls.id"+
			" WHERE 1 AND urls.deviceid IN (1,-1);",
		mustQuery(t, m))
	assert.True(t, m.LinkedTables().Has(TableURLs))
}

func TestQuery_AlbumsByArtist(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeAlbum)
	m.AddFilter(meta.FieldArtist, "Enigma", true, true)

	assert.Equal(t,
		"SELECT DISTINCT albums.name, albums.id, albums.artist, albumartists.name FROM albums"+
			" INNER JOIN tracks ON tracks.album = albums.id"+
			" LEFT JOIN artists ON tracks.artist = artists.id"+
			" LEFT JOIN artists AS albumartists ON albums.artist = albumartists.id"+
			" WHERE 1 AND ( 1 AND artists.name = 'Enigma' COLLATE NOCASE );",
		mustQuery(t, m))
}

func TestQuery_AlbumSkipsTracksJoin(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeAlbum)
	m.SetAlbumQueryMode(OnlyCompilations)

	assert.Equal(t,
		"SELECT DISTINCT albums.name, albums.id, albums.artist, albumartists.name FROM albums"+
			" LEFT JOIN artists AS albumartists ON albums.artist = albumartists.id"+
			" WHERE 1 AND albums.artist IS NULL;",
		mustQuery(t, m))
}

func TestQuery_Track(t *testing.T) {
	m := newTestMaker(mountpoint.Static{MountPoints: map[int]string{}})
	m.SetQueryType(TypeTrack)
	q := mustQuery(t, m)

	assert.Contains(t, q, "SELECT urls.deviceid, urls.rpath, urls.uniqueid, tracks.id,")
	assert.Contains(t, q, " FROM tracks INNER JOIN urls ON tracks.url = urls.id"+
		" LEFT JOIN artists ON tracks.artist = artists.id"+
		" LEFT JOIN albums ON tracks.album = albums.id"+
		" LEFT JOIN artists AS albumartists ON albums.artist = albumartists.id"+
		" LEFT JOIN genres ON tracks.genre = genres.id"+
		" LEFT JOIN composers ON tracks.composer = composers.id"+
		" LEFT JOIN years ON tracks.year = years.id"+
		" LEFT JOIN statistics ON urls.id = statistics.url"+
		" WHERE 1 AND urls.deviceid IN (-1);")
	assert.NotContains(t, q, "DISTINCT")
}

func TestQuery_StatisticsWithoutURLs(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeCustom)
	m.AddReturnFunction(Count, meta.FieldPlayCount)

	assert.Equal(t,
		"SELECT COUNT(statistics.playcount) FROM tracks"+
			" LEFT JOIN statistics ON tracks.url = statistics.url WHERE 1;",
		mustQuery(t, m))
}

func TestSetQueryType_FirstCallWins(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.SetQueryType(TypeArtist)

	assert.Equal(t, TypeGenre, m.QueryType())
	assert.Equal(t, "SELECT DISTINCT genres.name, genres.id FROM genres WHERE 1;", mustQuery(t, m))
}

func TestOrGroup(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.BeginOr().
		AddFilter(meta.FieldTitle, "a", false, false).
		AddFilter(meta.FieldComment, "b", false, false).
		EndAndOr()

	assert.Contains(t, mustQuery(t, m),
		` AND ( 1 AND ( 0 OR tracks.title LIKE '%a%' ESCAPE '\' OR tracks.comment LIKE '%b%' ESCAPE '\' ) );`)
}

func TestNestedGroups(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.BeginAnd().
		AddFilter(meta.FieldTitle, "p1", true, true).
		BeginOr().
		AddFilter(meta.FieldTitle, "p2", true, true).
		AddFilter(meta.FieldTitle, "p3", true, true).
		EndAndOr().
		EndAndOr()

	p := func(s string) string { return "tracks.title = '" + s + "' COLLATE NOCASE" }
	assert.Contains(t, mustQuery(t, m),
		" AND ( 1 AND ( 1 AND "+p("p1")+" AND ( 0 OR "+p("p2")+" OR "+p("p3")+" ) ) );")
}

func TestUnbalancedGroups(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.BeginOr()
	_, err := m.Query()
	assert.ErrorIs(t, err, ErrUnbalancedGroup)

	m = newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.EndAndOr()
	_, err = m.Query()
	assert.ErrorIs(t, err, ErrUnbalancedGroup)
}

func TestLinkedTablesNeverShrink(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeArtist)

	steps := []func(){
		func() { m.AddFilter(meta.FieldGenre, "Ambient", false, false) },
		func() { m.BeginOr() },
		func() { m.AddNumberFilter(meta.FieldRating, 5, GreaterThan) },
		func() { m.EndAndOr() },
		func() { m.OrderBy(meta.FieldYear, true) },
		func() { _, _ = m.Query() },
		func() { m.AddMatch(meta.NewComposer(1, "Cretu")) },
		func() { m.SetAlbumQueryMode(OnlyNormalAlbums) },
		func() { _, _ = m.Query() },
	}
	prev := m.LinkedTables()
	for i, step := range steps {
		step()
		cur := m.LinkedTables()
		assert.True(t, cur.Has(prev), "step %d dropped tables: %b -> %b", i, prev, cur)
		prev = cur
	}
	assert.True(t, prev.Has(TableArtist|TableGenre|TableStatistics|TableYear|TableComposer|TableAlbum))
}

func TestReset_SameAsFresh(t *testing.T) {
	paths := mountpoint.Static{MountPoints: map[int]string{1: "/music"}}
	m := newTestMaker(paths)
	m.SetQueryType(TypeTrack).
		AddFilter(meta.FieldArtist, "Enigma", false, false).
		BeginOr().
		AddNumberFilter(meta.FieldYear, 1990, GreaterThan).
		OrderByRandom().
		LimitMaxResultSize(3).
		IncludeCollection("other").
		SetBlocking(true)
	m.Reset()
	m.SetQueryType(TypeAlbum)

	fresh := newTestMaker(paths)
	fresh.SetQueryType(TypeAlbum)

	assert.Equal(t, mustQuery(t, fresh), mustQuery(t, m))
	assert.True(t, m.Included())
}

func TestCompiledQueryInvalidated(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeYear)
	first := mustQuery(t, m)
	assert.Equal(t, first, mustQuery(t, m))

	m.LimitMaxResultSize(5)
	second := mustQuery(t, m)
	assert.NotEqual(t, first, second)
	assert.Contains(t, second, " LIMIT 5 OFFSET 0;")

	m.LimitMaxResultSize(-1)
	assert.Equal(t, first, mustQuery(t, m))
}

func TestNumberFilters(t *testing.T) {
	tests := []struct {
		name    string
		exclude bool
		value   int64
		compare NumberComparison
		want    string
	}{
		{"include equals zero", false, 0, Equals, "( tracks.tracknumber = 0 OR tracks.tracknumber IS NULL )"},
		{"include equals", false, 3, Equals, "tracks.tracknumber = 3"},
		{"include greater", false, 5, GreaterThan, "tracks.tracknumber > 5"},
		{"include greater negative", false, -1, GreaterThan, "( tracks.tracknumber > -1 OR tracks.tracknumber IS NULL )"},
		{"include less", false, 5, LessThan, "( tracks.tracknumber < 5 OR tracks.tracknumber IS NULL )"},
		{"include less zero", false, 0, LessThan, "tracks.tracknumber < 0"},
		{"exclude equals zero", true, 0, Equals, "tracks.tracknumber != 0"},
		{"exclude equals", true, 3, Equals, "( tracks.tracknumber != 3 OR tracks.tracknumber IS NULL )"},
		{"exclude greater", true, 5, GreaterThan, "( tracks.tracknumber <= 5 OR tracks.tracknumber IS NULL )"},
		{"exclude greater negative", true, -1, GreaterThan, "tracks.tracknumber <= -1"},
		{"exclude less", true, 5, LessThan, "tracks.tracknumber >= 5"},
		{"exclude less zero", true, 0, LessThan, "( tracks.tracknumber >= 0 OR tracks.tracknumber IS NULL )"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMaker(nil)
			m.SetQueryType(TypeGenre)
			if tt.exclude {
				m.ExcludeNumberFilter(meta.FieldTrackNumber, tt.value, tt.compare)
			} else {
				m.AddNumberFilter(meta.FieldTrackNumber, tt.value, tt.compare)
			}
			assert.Contains(t, mustQuery(t, m), " AND ( 1 AND "+tt.want+" );")
		})
	}
}

func TestNumberFilterOnYearCasts(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.AddNumberFilter(meta.FieldYear, 1000, GreaterThan)
	m.ExcludeNumberFilter(meta.FieldYear, 2000, Equals)
	assert.Contains(t, mustQuery(t, m),
		" AND ( 1 AND CAST(years.name AS INTEGER) > 1000 AND ( CAST(years.name AS INTEGER) != 2000 OR CAST(years.name AS INTEGER) IS NULL ) );")

	m = newTestMaker(nil)
	m.SetQueryType(TypeTrack).AddFilter(meta.FieldYear, "1990", true, true)
	assert.Contains(t, mustQuery(t, m), "years.name = '1990' COLLATE NOCASE")
}

func TestInvalidCompare(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.AddNumberFilter(meta.FieldRating, 1, NumberComparison(42))

	_, err := m.Query()
	var ce *InvalidCompareError
	assert.ErrorAs(t, err, &ce)
}

func TestLikeEscaping(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.AddFilter(meta.FieldTitle, `100%_a\b'c`, false, false)
	m.AddFilter(meta.FieldTitle, "The", true, false)
	m.AddFilter(meta.FieldTitle, "End", false, true)
	q := mustQuery(t, m)

	assert.Contains(t, q, `tracks.title LIKE '%100\%\_a\\b''c%' ESCAPE '\'`)
	assert.Contains(t, q, `tracks.title LIKE 'The%' ESCAPE '\'`)
	assert.Contains(t, q, `tracks.title LIKE '%End' ESCAPE '\'`)
}

func TestExcludeFilter(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.ExcludeFilter(meta.FieldArtist, "Enigma", true, true)

	assert.Contains(t, mustQuery(t, m),
		" AND ( 1 AND ( NOT artists.name = 'Enigma' COLLATE NOCASE OR artists.name IS NULL ) );")
}

func TestAlbumArtistEmptyFilter(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeTrack)
	m.AddFilter(meta.FieldAlbumArtist, "", false, false)
	m.ExcludeFilter(meta.FieldAlbumArtist, "", false, false)
	q := mustQuery(t, m)

	assert.Contains(t, q, " AND ( albums.artist IS NULL OR albumartists.name = '' )")
	assert.Contains(t, q, " AND NOT ( albums.artist IS NULL OR albumartists.name = '' )")
}

func TestInvalidField(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeGenre)
	m.AddFilter(meta.Field(999), "x", false, false)

	_, err := m.Query()
	var fe *InvalidFieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, meta.Field(999), fe.Field)

	_, err = m.Run(t.Context())
	assert.True(t, errors.As(err, &fe))
}

func TestCustomQuery(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeCustom)
	_, err := m.Query()
	assert.ErrorIs(t, err, ErrNoReturnValues)

	m.AddReturnValue(meta.FieldTitle)
	m.AddReturnFunction(Max, meta.FieldBitrate)
	m.AddReturnFunction(ReturnFunction(9), meta.FieldBitrate)
	_, err = m.Query()
	var fe *InvalidFunctionError
	assert.ErrorAs(t, err, &fe)

	m.Reset()
	m.SetQueryType(TypeCustom).
		AddReturnValue(meta.FieldTitle).
		AddReturnFunction(Sum, meta.FieldLength)
	assert.Equal(t, "SELECT tracks.title, SUM(tracks.length) FROM tracks WHERE 1;", mustQuery(t, m))
	assert.Equal(t, []string{"title", "sum(length)"}, m.columns)
}

func TestReturnValueIgnoredForTypedQueries(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeArtist)
	m.AddReturnValue(meta.FieldTitle)

	assert.Equal(t, "SELECT DISTINCT artists.name, artists.id FROM artists WHERE 1;", mustQuery(t, m))
}

func TestOrderBy(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeArtist)
	m.OrderBy(meta.FieldArtist, false).OrderBy(meta.FieldYear, true)
	assert.Contains(t, mustQuery(t, m), " ORDER BY artists.name ASC, CAST(years.name AS INTEGER) DESC;")

	m.OrderByRandom()
	assert.Contains(t, mustQuery(t, m), " ORDER BY RANDOM();")
}

func TestMatches(t *testing.T) {
	paths := mountpoint.Static{MountPoints: map[int]string{1: "/music"}}

	t.Run("track by uid", func(t *testing.T) {
		m := newTestMaker(paths)
		m.SetQueryType(TypeTrack)
		m.AddMatch(&meta.Track{UID: meta.UIDScheme + "abc"})
		assert.Contains(t, mustQuery(t, m), " AND urls.uniqueid = 'shoal-trackuid://abc'")
	})

	t.Run("track by path", func(t *testing.T) {
		m := newTestMaker(paths)
		m.SetQueryType(TypeTrack)
		m.AddMatch(&meta.Track{Path: "/music/Enigma/it's.flac"})
		assert.Contains(t, mustQuery(t, m), " AND urls.deviceid = 1 AND urls.rpath = './Enigma/it''s.flac'")
	})

	t.Run("album with album artist", func(t *testing.T) {
		m := newTestMaker(nil)
		m.SetQueryType(TypeTrack)
		m.AddMatch(meta.NewAlbum(3, "MCMXC a.D.", meta.NewArtist(7, "Enigma")))
		assert.Contains(t, mustQuery(t, m), " AND albums.name = 'MCMXC a.D.' AND albumartists.name = 'Enigma'")
	})

	t.Run("compilation", func(t *testing.T) {
		m := newTestMaker(nil)
		m.SetQueryType(TypeTrack)
		m.AddMatch(meta.NewAlbum(4, "Pure Moods", nil))
		assert.Contains(t, mustQuery(t, m), " AND albums.name = 'Pure Moods' AND albums.artist IS NULL")
	})

	t.Run("artist behaviours", func(t *testing.T) {
		m := newTestMaker(nil)
		m.SetQueryType(TypeAlbum)
		m.AddArtistMatch(meta.NewArtist(7, "Enigma"), AlbumOrTrackArtists)
		assert.Contains(t, mustQuery(t, m),
			" AND ( ( artists.name = 'Enigma' ) OR ( albumartists.name = 'Enigma' ) )")

		m = newTestMaker(nil)
		m.SetQueryType(TypeAlbum)
		m.AddMatch((*meta.Artist)(nil))
		assert.Contains(t, mustQuery(t, m), " AND ( artists.name IS NULL OR artists.name = '' )")
	})

	t.Run("matches are and-ed outside groups", func(t *testing.T) {
		m := newTestMaker(nil)
		m.SetQueryType(TypeTrack)
		m.BeginOr().AddFilter(meta.FieldTitle, "x", false, false)
		m.AddMatch(meta.NewGenre(1, "Ambient"))
		m.EndAndOr()
		assert.Contains(t, mustQuery(t, m),
			" AND genres.name = 'Ambient' AND ( 1 AND ( 0 OR tracks.title LIKE '%x%' ESCAPE '\\' ) );")
	})

	t.Run("year without value", func(t *testing.T) {
		m := newTestMaker(nil)
		m.SetQueryType(TypeTrack)
		m.AddMatch((*meta.Year)(nil))
		assert.Contains(t, mustQuery(t, m), " AND tracks.year IS NULL")
	})

	t.Run("unsupported", func(t *testing.T) {
		m := newTestMaker(nil)
		m.SetQueryType(TypeTrack)
		m.AddMatch(nil)
		_, err := m.Query()
		assert.ErrorIs(t, err, ErrUnsupportedMatch)
	})
}

func TestAlbumQueryMode(t *testing.T) {
	m := newTestMaker(nil)
	m.SetQueryType(TypeTrack)
	m.SetAlbumQueryMode(OnlyNormalAlbums)
	assert.Contains(t, mustQuery(t, m), " WHERE 1 AND albums.artist IS NOT NULL;")
}

func TestCollectionScope(t *testing.T) {
	m := newTestMaker(nil)
	assert.True(t, m.Included())

	m.IncludeCollection("other")
	assert.False(t, m.Included())
	m.IncludeCollection("local")
	assert.True(t, m.Included())

	m.ExcludeCollection("local")
	assert.False(t, m.Included())

	assert.Equal(t, []string{"local"}, m.CollectionIDs())
}

func TestRun_Refusals(t *testing.T) {
	m := newTestMaker(nil)
	_, err := m.Run(t.Context())
	assert.ErrorIs(t, err, ErrNoQueryType)

	m.SetQueryType(TypeArtist).SetBlocking(true)
	_, err = m.Run(t.Context())
	require.NoError(t, err)

	_, err = m.Run(t.Context())
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	// The type is locked until reset.
	m.SetQueryType(TypeGenre)
	q, err := m.Query()
	require.NoError(t, err)
	assert.Contains(t, q, "artists.name")
}
