package meta

// Field identifies a queryable track attribute.
type Field int

const (
	FieldNone Field = iota
	FieldURL
	FieldTitle
	FieldArtist
	FieldAlbum
	FieldAlbumArtist
	FieldGenre
	FieldComposer
	FieldYear
	FieldBPM
	FieldComment
	FieldTrackNumber
	FieldDiscNumber
	FieldLength
	FieldBitrate
	FieldSampleRate
	FieldFileSize
	FieldFormat
	FieldCreateDate
	FieldScore
	FieldRating
	FieldFirstPlayed
	FieldLastPlayed
	FieldPlayCount
	FieldUniqueID
)

// fieldNames are the names used on the wire (XML queries, CLI output).
var fieldNames = map[Field]string{
	FieldURL:         "url",
	FieldTitle:       "title",
	FieldArtist:      "artist",
	FieldAlbum:       "album",
	FieldAlbumArtist: "albumartist",
	FieldGenre:       "genre",
	FieldComposer:    "composer",
	FieldYear:        "year",
	FieldBPM:         "bpm",
	FieldComment:     "comment",
	FieldTrackNumber: "tracknr",
	FieldDiscNumber:  "discnr",
	FieldLength:      "length",
	FieldBitrate:     "bitrate",
	FieldSampleRate:  "samplerate",
	FieldFileSize:    "filesize",
	FieldFormat:      "format",
	FieldCreateDate:  "createdate",
	FieldScore:       "score",
	FieldRating:      "rating",
	FieldFirstPlayed: "firstplayed",
	FieldLastPlayed:  "lastplayed",
	FieldPlayCount:   "playcount",
	FieldUniqueID:    "uniqueid",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(fieldNames))
	for f, name := range fieldNames {
		m[name] = f
	}
	return m
}()

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseField returns the field with the given wire name.
func ParseField(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}
