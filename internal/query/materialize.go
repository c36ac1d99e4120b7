package query

import (
	"time"

	dbutil "github.com/llehouerou/shoal/internal/db"
	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/registry"
)

// Indexes into a track row, following trackColumns.
const (
	colDeviceID = iota
	colRelPath
	colUID
	colTrackID
	colTitle
	colComment
	colTrackNumber
	colDiscNumber
	colScore
	colRating
	colBitrate
	colLength
	colFileSize
	colSampleRate
	colFirstPlayed
	colLastPlayed
	colPlayCount
	colFileType
	colBPM
	colArtistName
	colArtistID
	colAlbumName
	colAlbumID
	colAlbumArtistID
	colAlbumArtistName
	colGenreName
	colGenreID
	colComposerName
	colComposerID
	colYearName
	colYearID
	trackColumnCount
)

// materialize turns a batch of rows into a result of the task's kind.
// Entities come from the collection registry so that every batch, of this
// job or any other, shares one instance per entity.
func (t *task) materialize(rows [][]string) Result {
	reg := t.env.Registry
	cid := t.env.CollectionID

	switch t.typ {
	case TypeTrack:
		items := make([]*meta.Track, 0, len(rows))
		for _, row := range rows {
			if len(row) < trackColumnCount {
				t.env.Logger.Warn().Int("columns", len(row)).Msg("short track row")
				continue
			}
			items = append(items, reg.Track(parseTrackRow(row)))
		}
		if t.asData {
			return DataList{CollectionID: cid, QueryType: t.typ, Items: toData(items)}
		}
		return Tracks{CollectionID: cid, Items: items}

	case TypeArtist, TypeAlbumArtist:
		items := collect(rows, 2, func(row []string) *meta.Artist {
			return reg.Artist(dbutil.Atoi64(row[1]), row[0])
		})
		if t.asData {
			return DataList{CollectionID: cid, QueryType: t.typ, Items: toData(items)}
		}
		return Artists{CollectionID: cid, Items: items}

	case TypeAlbum:
		items := collect(rows, 4, func(row []string) *meta.Album {
			return reg.Album(dbutil.Atoi64(row[1]), row[0], dbutil.Atoi64(row[2]), row[3])
		})
		if t.asData {
			return DataList{CollectionID: cid, QueryType: t.typ, Items: toData(items)}
		}
		return Albums{CollectionID: cid, Items: items}

	case TypeGenre:
		items := collect(rows, 2, func(row []string) *meta.Genre {
			return reg.Genre(dbutil.Atoi64(row[1]), row[0])
		})
		if t.asData {
			return DataList{CollectionID: cid, QueryType: t.typ, Items: toData(items)}
		}
		return Genres{CollectionID: cid, Items: items}

	case TypeComposer:
		items := collect(rows, 2, func(row []string) *meta.Composer {
			return reg.Composer(dbutil.Atoi64(row[1]), row[0])
		})
		if t.asData {
			return DataList{CollectionID: cid, QueryType: t.typ, Items: toData(items)}
		}
		return Composers{CollectionID: cid, Items: items}

	case TypeYear:
		items := collect(rows, 2, func(row []string) *meta.Year {
			return reg.Year(dbutil.Atoi64(row[1]), row[0])
		})
		if t.asData {
			return DataList{CollectionID: cid, QueryType: t.typ, Items: toData(items)}
		}
		return Years{CollectionID: cid, Items: items}

	default:
		return Rows{CollectionID: cid, Columns: t.columns, Values: rows}
	}
}

// collect resolves every row with at least width columns, skipping rows
// that resolve to nothing (NULL ids from outer joins).
func collect[T any](rows [][]string, width int, resolve func([]string) *T) []*T {
	items := make([]*T, 0, len(rows))
	for _, row := range rows {
		if len(row) < width {
			continue
		}
		if v := resolve(row); v != nil {
			items = append(items, v)
		}
	}
	return items
}

func toData[T meta.Data](items []T) []meta.Data {
	out := make([]meta.Data, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func parseTrackRow(row []string) registry.TrackRow {
	return registry.TrackRow{
		ID:              dbutil.Atoi64(row[colTrackID]),
		DeviceID:        dbutil.Atoi(row[colDeviceID]),
		RelPath:         row[colRelPath],
		UID:             row[colUID],
		Title:           row[colTitle],
		Comment:         row[colComment],
		TrackNumber:     dbutil.Atoi(row[colTrackNumber]),
		DiscNumber:      dbutil.Atoi(row[colDiscNumber]),
		Bitrate:         dbutil.Atoi(row[colBitrate]),
		Length:          time.Duration(dbutil.Atoi64(row[colLength])) * time.Millisecond,
		FileSize:        dbutil.Atoi64(row[colFileSize]),
		SampleRate:      dbutil.Atoi(row[colSampleRate]),
		FileType:        dbutil.Atoi(row[colFileType]),
		BPM:             dbutil.Atof(row[colBPM]),
		Score:           dbutil.Atof(row[colScore]),
		Rating:          dbutil.Atoi(row[colRating]),
		PlayCount:       dbutil.Atoi(row[colPlayCount]),
		FirstPlayed:     unixTime(row[colFirstPlayed]),
		LastPlayed:      unixTime(row[colLastPlayed]),
		ArtistID:        dbutil.Atoi64(row[colArtistID]),
		ArtistName:      row[colArtistName],
		AlbumID:         dbutil.Atoi64(row[colAlbumID]),
		AlbumName:       row[colAlbumName],
		AlbumArtistID:   dbutil.Atoi64(row[colAlbumArtistID]),
		AlbumArtistName: row[colAlbumArtistName],
		GenreID:         dbutil.Atoi64(row[colGenreID]),
		GenreName:       row[colGenreName],
		ComposerID:      dbutil.Atoi64(row[colComposerID]),
		ComposerName:    row[colComposerName],
		YearID:          dbutil.Atoi64(row[colYearID]),
		YearName:        row[colYearName],
	}
}

func unixTime(s string) time.Time {
	sec := dbutil.Atoi64(s)
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
