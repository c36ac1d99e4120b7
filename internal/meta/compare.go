package meta

import (
	"cmp"
	"strconv"
	"strings"
)

// IsNumeric reports whether values of f order as numbers.
func (f Field) IsNumeric() bool {
	switch f {
	case FieldYear, FieldBPM, FieldTrackNumber, FieldDiscNumber, FieldLength,
		FieldBitrate, FieldSampleRate, FieldFileSize, FieldFormat, FieldCreateDate,
		FieldScore, FieldRating, FieldFirstPlayed, FieldLastPlayed, FieldPlayCount:
		return true
	default:
		return false
	}
}

// Text returns the value of a text field of t. Missing values are "".
func (t *Track) Text(f Field) string {
	switch f {
	case FieldURL:
		return t.Path
	case FieldUniqueID:
		return t.UID
	case FieldTitle:
		return t.Title
	case FieldComment:
		return t.Comment
	case FieldArtist:
		return t.ArtistName()
	case FieldAlbum:
		return t.AlbumName()
	case FieldAlbumArtist:
		if t.Album != nil && t.Album.HasAlbumArtist() {
			return t.Album.AlbumArtist().Name()
		}
	case FieldGenre:
		if t.Genre != nil {
			return t.Genre.Name()
		}
	case FieldComposer:
		if t.Composer != nil {
			return t.Composer.Name()
		}
	case FieldYear:
		if t.Year != nil {
			return t.Year.Name()
		}
	}
	return ""
}

// Number returns the value of a numeric field of t. Missing values are 0,
// as they are for number filters. Lengths are in milliseconds and dates in
// seconds since the epoch.
func (t *Track) Number(f Field) float64 {
	switch f {
	case FieldYear:
		return ParseNumber(t.Text(FieldYear))
	case FieldBPM:
		return t.BPM
	case FieldTrackNumber:
		return float64(t.TrackNumber)
	case FieldDiscNumber:
		return float64(t.DiscNumber)
	case FieldLength:
		return float64(t.Length.Milliseconds())
	case FieldBitrate:
		return float64(t.Bitrate)
	case FieldSampleRate:
		return float64(t.SampleRate)
	case FieldFileSize:
		return float64(t.FileSize)
	case FieldFormat:
		return float64(t.FileType)
	case FieldScore:
		return t.Score
	case FieldRating:
		return float64(t.Rating)
	case FieldPlayCount:
		return float64(t.PlayCount)
	case FieldFirstPlayed:
		if !t.FirstPlayed.IsZero() {
			return float64(t.FirstPlayed.Unix())
		}
	case FieldLastPlayed:
		if !t.LastPlayed.IsZero() {
			return float64(t.LastPlayed.Unix())
		}
	}
	return 0
}

// CompareTracks orders a and b by f: numerically for numeric fields,
// otherwise by case insensitive text.
func CompareTracks(a, b *Track, f Field) int {
	if f.IsNumeric() {
		return cmp.Compare(a.Number(f), b.Number(f))
	}
	return CompareText(a.Text(f), b.Text(f))
}

// CompareText compares two names ignoring case.
func CompareText(a, b string) int {
	return cmp.Or(
		strings.Compare(strings.ToLower(a), strings.ToLower(b)),
		strings.Compare(a, b),
	)
}

// ParseNumber reads s as a number. Empty or malformed values are 0.
func ParseNumber(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return n
}
