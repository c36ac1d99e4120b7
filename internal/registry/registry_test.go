package registry

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/mountpoint"
)

func enigmaRow(id int64, rel, title string) TrackRow {
	return TrackRow{
		ID:              id,
		DeviceID:        1,
		RelPath:         rel,
		UID:             meta.UIDScheme + rel,
		Title:           title,
		ArtistID:        7,
		ArtistName:      "Enigma",
		AlbumID:         3,
		AlbumName:       "MCMXC a.D.",
		AlbumArtistID:   7,
		AlbumArtistName: "Enigma",
		GenreID:         2,
		GenreName:       "New Age",
		YearID:          1,
		YearName:        "1990",
	}
}

func TestArtist_SameInstance(t *testing.T) {
	r := New("c1", nil)

	a1 := r.Artist(7, "Enigma")
	a2 := r.Artist(7, "Enigma")
	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, r.Artist(8, "Era"))
	assert.Nil(t, r.Artist(0, ""))
	assert.Nil(t, r.Artist(-1, "x"))
}

func TestTrack_SharesForeignEntities(t *testing.T) {
	r := New("c1", mountpoint.Static{MountPoints: map[int]string{1: "/music"}})

	t1 := r.Track(enigmaRow(1, "./Enigma/01.flac", "The Voice of Enigma"))
	t2 := r.Track(enigmaRow(2, "./Enigma/02.flac", "Principles of Lust"))

	require.NotNil(t, t1.Artist)
	assert.Same(t, t1.Artist, t2.Artist)
	assert.Same(t, t1.Album, t2.Album)
	assert.Same(t, t1.Genre, t2.Genre)
	assert.Same(t, t1.Year, t2.Year)
	assert.Nil(t, t1.Composer)

	// Artist resolved through the album and directly are identical.
	assert.Same(t, t1.Artist, t1.Album.AlbumArtist())
	assert.Same(t, t1.Artist, r.Artist(7, "Enigma"))

	assert.Equal(t, "/music/Enigma/01.flac", t1.Path)
	assert.Equal(t, "c1", t1.CollectionID)
	assert.ElementsMatch(t, []*meta.Track{t1, t2}, t1.Artist.Tracks())
	assert.ElementsMatch(t, []*meta.Track{t1, t2}, t1.Album.Tracks())
}

func TestTrack_SameLocationSameInstance(t *testing.T) {
	r := New("c1", nil)
	row := enigmaRow(1, "./Enigma/01.flac", "The Voice of Enigma")

	t1 := r.Track(row)
	t2 := r.Track(row)
	assert.Same(t, t1, t2)
	assert.Len(t, t1.Artist.Tracks(), 1)

	assert.Same(t, t1, r.TrackByUID(row.UID))
	assert.Same(t, t1, r.TrackByPath(1, "./Enigma/01.flac"))
	assert.Nil(t, r.TrackByPath(2, "./Enigma/01.flac"))
	assert.Nil(t, r.TrackByUID("nope"))
}

func TestAlbum_Compilation(t *testing.T) {
	r := New("c1", nil)
	album := r.Album(5, "Pure Moods", 0, "")
	require.NotNil(t, album)
	assert.True(t, album.IsCompilation())
}

func TestConcurrentAccess(t *testing.T) {
	r := New("c1", nil)

	const n = 32
	artists := make([]*meta.Artist, n)
	tracks := make([]*meta.Track, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			artists[i] = r.Artist(7, "Enigma")
			tracks[i] = r.Track(enigmaRow(1, "./Enigma/01.flac", "The Voice of Enigma"))
		})
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, artists[0], artists[i])
		assert.Same(t, tracks[0], tracks[i])
	}
	assert.Len(t, artists[0].Tracks(), 1)
}

func TestSweep_ReleasesUnreferenced(t *testing.T) {
	r := New("c1", nil)

	kept := r.Artist(1, "Kept")
	func() {
		_ = r.Artist(2, "Dropped")
	}()

	var removed int
	for range 5 {
		runtime.GC()
		removed += r.Sweep()
		if r.Stats().Artists == 1 {
			break
		}
	}

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Stats().Artists)
	assert.Same(t, kept, r.Artist(1, "Kept"))
	runtime.KeepAlive(kept)
}
