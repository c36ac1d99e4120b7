// Package bridge answers XML queries from other processes over D-Bus.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/query"
	"github.com/llehouerou/shoal/internal/xmlquery"
)

// Names under which the service is exported on the session bus.
const (
	BusName    = "org.shoal.Shoal"
	ObjectPath = "/Collection"
	Interface  = "org.shoal.Collection"
)

// DefaultTimeout is how long Query waits for a job when no timeout is given.
const DefaultTimeout = 15 * time.Second

// ErrTimeout is returned when a query does not finish in time. The job is
// aborted and its remaining results are dropped.
var ErrTimeout = errors.New("query timed out")

// Service runs XML queries and flattens their results into string maps.
type Service struct {
	newMaker func() query.Maker
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewService returns a service building a fresh maker with newMaker for
// every request.
func NewService(newMaker func() query.Maker, timeout time.Duration, logger zerolog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{newMaker: newMaker, timeout: timeout, logger: logger}
}

// Query parses doc, runs it and waits for every result. Parse failures wrap
// xmlquery.ErrInvalidQuery.
func (s *Service) Query(ctx context.Context, doc string) ([]map[string]string, error) {
	m, err := xmlquery.Parse(strings.NewReader(doc), s.newMaker())
	if err != nil {
		return nil, err
	}
	job, err := m.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", xmlquery.ErrInvalidQuery, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	results, err := job.Collect(waitCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.logger.Warn().
			Str("job", job.ID()).
			Dur("timeout", s.timeout).
			Msg("query timed out")
		return nil, ErrTimeout
	case err != nil:
		return nil, err
	}

	var out []map[string]string
	for _, r := range results {
		out = append(out, Flatten(r)...)
	}
	s.logger.Debug().
		Str("job", job.ID()).
		Int("results", len(out)).
		Dur("took", time.Since(start)).
		Msg("query answered")
	return out, nil
}

// Flatten turns a batch into one map per item keyed by field name.
func Flatten(r query.Result) []map[string]string {
	var out []map[string]string
	switch v := r.(type) {
	case query.Tracks:
		for _, t := range v.Items {
			out = append(out, trackMap(t))
		}
	case query.Artists:
		for _, a := range v.Items {
			out = append(out, map[string]string{meta.FieldArtist.String(): a.Name()})
		}
	case query.Albums:
		for _, a := range v.Items {
			out = append(out, albumMap(a))
		}
	case query.Genres:
		for _, g := range v.Items {
			out = append(out, map[string]string{meta.FieldGenre.String(): g.Name()})
		}
	case query.Composers:
		for _, c := range v.Items {
			out = append(out, map[string]string{meta.FieldComposer.String(): c.Name()})
		}
	case query.Years:
		for _, y := range v.Items {
			out = append(out, map[string]string{meta.FieldYear.String(): y.Name()})
		}
	case query.DataList:
		for _, d := range v.Items {
			out = append(out, dataMap(d))
		}
	case query.Rows:
		for _, row := range v.Values {
			entry := make(map[string]string, len(v.Columns))
			for i, col := range v.Columns {
				if i < len(row) {
					entry[col] = row[i]
				}
			}
			out = append(out, entry)
		}
	}
	return out
}

func dataMap(d meta.Data) map[string]string {
	switch v := d.(type) {
	case *meta.Track:
		return trackMap(v)
	case *meta.Album:
		return albumMap(v)
	case *meta.Artist:
		return map[string]string{meta.FieldArtist.String(): v.Name()}
	case *meta.Genre:
		return map[string]string{meta.FieldGenre.String(): v.Name()}
	case *meta.Composer:
		return map[string]string{meta.FieldComposer.String(): v.Name()}
	case *meta.Year:
		return map[string]string{meta.FieldYear.String(): v.Name()}
	default:
		return map[string]string{"name": d.Name()}
	}
}

func albumMap(a *meta.Album) map[string]string {
	m := map[string]string{meta.FieldAlbum.String(): a.Name()}
	if a.HasAlbumArtist() {
		m[meta.FieldAlbumArtist.String()] = a.AlbumArtist().Name()
	}
	return m
}

func trackMap(t *meta.Track) map[string]string {
	m := map[string]string{
		meta.FieldURL.String():       t.Path,
		meta.FieldUniqueID.String():  t.UID,
		meta.FieldTitle.String():     t.Title,
		meta.FieldArtist.String():    t.ArtistName(),
		meta.FieldAlbum.String():     t.AlbumName(),
		meta.FieldLength.String():    strconv.FormatInt(t.Length.Milliseconds(), 10),
		meta.FieldPlayCount.String(): strconv.Itoa(t.PlayCount),
		meta.FieldRating.String():    strconv.Itoa(t.Rating),
		"collection":                 t.CollectionID,
	}
	if t.Album != nil && t.Album.HasAlbumArtist() {
		m[meta.FieldAlbumArtist.String()] = t.Album.AlbumArtist().Name()
	}
	if t.Genre != nil {
		m[meta.FieldGenre.String()] = t.Genre.Name()
	}
	if t.Composer != nil {
		m[meta.FieldComposer.String()] = t.Composer.Name()
	}
	if t.Year != nil {
		m[meta.FieldYear.String()] = t.Year.Name()
	}
	if t.Comment != "" {
		m[meta.FieldComment.String()] = t.Comment
	}
	if t.TrackNumber > 0 {
		m[meta.FieldTrackNumber.String()] = strconv.Itoa(t.TrackNumber)
	}
	if t.DiscNumber > 0 {
		m[meta.FieldDiscNumber.String()] = strconv.Itoa(t.DiscNumber)
	}
	if t.Bitrate > 0 {
		m[meta.FieldBitrate.String()] = strconv.Itoa(t.Bitrate)
	}
	if t.SampleRate > 0 {
		m[meta.FieldSampleRate.String()] = strconv.Itoa(t.SampleRate)
	}
	if t.FileSize > 0 {
		m[meta.FieldFileSize.String()] = strconv.FormatInt(t.FileSize, 10)
	}
	if t.Score > 0 {
		m[meta.FieldScore.String()] = strconv.FormatFloat(t.Score, 'f', -1, 64)
	}
	if !t.LastPlayed.IsZero() {
		m[meta.FieldLastPlayed.String()] = strconv.FormatInt(t.LastPlayed.Unix(), 10)
	}
	return m
}
