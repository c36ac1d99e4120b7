package collection

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/query"
)

// AggregateID is the collection id of batches combined from several
// collections. Tracks keep the id of the collection they come from.
const AggregateID = "aggregate"

type orderKey struct {
	field      meta.Field
	descending bool
}

// AggregateMaker queries several collections as one. Builder calls are
// forwarded to the maker of each collection. Run starts them together and
// delivers a single combined batch once all of them are done: entities
// present in several collections are merged by name, the requested order
// is applied over the whole result and the result size limit applies to
// the combined list.
type AggregateMaker struct {
	makers []query.Maker

	orders     []orderKey
	random     bool
	maxResults int
	asData     bool
	functions  []query.ReturnFunction
	values     int
	blocking   bool
	used       bool

	job     *query.Job
	results []query.Result
}

// NewAggregateMaker returns a maker forwarding to makers.
func NewAggregateMaker(makers ...query.Maker) *AggregateMaker {
	return &AggregateMaker{makers: makers, maxResults: -1}
}

var _ query.Maker = (*AggregateMaker)(nil)

func (a *AggregateMaker) each(fn func(query.Maker)) query.Maker {
	for _, m := range a.makers {
		fn(m)
	}
	return a
}

func (a *AggregateMaker) SetQueryType(t query.Type) query.Maker {
	if a.blocking && a.used {
		return a
	}
	return a.each(func(m query.Maker) { m.SetQueryType(t) })
}

// QueryType is the type held by the collection makers. An aggregate over no
// collection has none.
func (a *AggregateMaker) QueryType() query.Type {
	if len(a.makers) == 0 {
		return query.TypeNone
	}
	return a.makers[0].QueryType()
}

func (a *AggregateMaker) IncludeCollection(id string) query.Maker {
	return a.each(func(m query.Maker) { m.IncludeCollection(id) })
}

func (a *AggregateMaker) ExcludeCollection(id string) query.Maker {
	return a.each(func(m query.Maker) { m.ExcludeCollection(id) })
}

func (a *AggregateMaker) AddMatch(d meta.Data) query.Maker {
	return a.each(func(m query.Maker) { m.AddMatch(d) })
}

func (a *AggregateMaker) AddArtistMatch(artist *meta.Artist, behaviour query.ArtistMatchBehaviour) query.Maker {
	return a.each(func(m query.Maker) { m.AddArtistMatch(artist, behaviour) })
}

func (a *AggregateMaker) AddFilter(f meta.Field, text string, matchBegin, matchEnd bool) query.Maker {
	return a.each(func(m query.Maker) { m.AddFilter(f, text, matchBegin, matchEnd) })
}

func (a *AggregateMaker) ExcludeFilter(f meta.Field, text string, matchBegin, matchEnd bool) query.Maker {
	return a.each(func(m query.Maker) { m.ExcludeFilter(f, text, matchBegin, matchEnd) })
}

func (a *AggregateMaker) AddNumberFilter(f meta.Field, value int64, c query.NumberComparison) query.Maker {
	return a.each(func(m query.Maker) { m.AddNumberFilter(f, value, c) })
}

func (a *AggregateMaker) ExcludeNumberFilter(f meta.Field, value int64, c query.NumberComparison) query.Maker {
	return a.each(func(m query.Maker) { m.ExcludeNumberFilter(f, value, c) })
}

func (a *AggregateMaker) AddReturnValue(f meta.Field) query.Maker {
	if a.QueryType() == query.TypeCustom {
		a.values++
	}
	return a.each(func(m query.Maker) { m.AddReturnValue(f) })
}

func (a *AggregateMaker) AddReturnFunction(fn query.ReturnFunction, f meta.Field) query.Maker {
	if a.QueryType() == query.TypeCustom {
		a.functions = append(a.functions, fn)
	}
	return a.each(func(m query.Maker) { m.AddReturnFunction(fn, f) })
}

func (a *AggregateMaker) OrderBy(f meta.Field, descending bool) query.Maker {
	a.orders = append(a.orders, orderKey{field: f, descending: descending})
	return a.each(func(m query.Maker) { m.OrderBy(f, descending) })
}

func (a *AggregateMaker) OrderByRandom() query.Maker {
	a.random = true
	a.orders = nil
	return a.each(func(m query.Maker) { m.OrderByRandom() })
}

// LimitMaxResultSize caps the combined result. Collections are only capped
// themselves when the combined result keeps their order.
func (a *AggregateMaker) LimitMaxResultSize(n int) query.Maker {
	a.maxResults = max(n, -1)
	return a
}

func (a *AggregateMaker) SetAlbumQueryMode(mode query.AlbumQueryMode) query.Maker {
	return a.each(func(m query.Maker) { m.SetAlbumQueryMode(mode) })
}

func (a *AggregateMaker) BeginAnd() query.Maker {
	return a.each(func(m query.Maker) { m.BeginAnd() })
}

func (a *AggregateMaker) BeginOr() query.Maker {
	return a.each(func(m query.Maker) { m.BeginOr() })
}

func (a *AggregateMaker) EndAndOr() query.Maker {
	return a.each(func(m query.Maker) { m.EndAndOr() })
}

func (a *AggregateMaker) SetReturnResultAsDataPtrs(enabled bool) query.Maker {
	a.asData = enabled
	return a.each(func(m query.Maker) { m.SetReturnResultAsDataPtrs(enabled) })
}

// SetBlocking is not forwarded: the collection makers always run
// asynchronously and the aggregate waits for their combined result.
func (a *AggregateMaker) SetBlocking(enabled bool) query.Maker {
	a.blocking = enabled
	return a
}

func (a *AggregateMaker) Reset() query.Maker {
	a.orders = nil
	a.random = false
	a.maxResults = -1
	a.asData = false
	a.functions = nil
	a.values = 0
	a.blocking = false
	a.used = false
	a.job = nil
	a.results = nil
	return a.each(func(m query.Maker) { m.Reset() })
}

// Run starts every collection's query and returns the combined job. If one
// of them refuses to start, the others are aborted and its error returned.
// In blocking mode Run returns once the combined result is available
// through the accessors.
func (a *AggregateMaker) Run(ctx context.Context) (*query.Job, error) {
	typ := a.QueryType()
	if typ == query.TypeNone {
		return nil, query.ErrNoQueryType
	}
	if a.blocking && a.used {
		return nil, query.ErrAlreadyUsed
	}
	if a.job != nil && !a.job.Finished() {
		return nil, query.ErrRunning
	}

	childLimit := -1
	if !a.random && len(a.orders) == 0 && (typ == query.TypeTrack || typ == query.TypeCustom) {
		childLimit = a.maxResults
	}
	a.each(func(m query.Maker) { m.LimitMaxResultSize(childLimit) })

	jobs := make([]*query.Job, len(a.makers))
	var g errgroup.Group
	for i, m := range a.makers {
		g.Go(func() error {
			job, err := m.Run(ctx)
			jobs[i] = job
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, job := range jobs {
			if job != nil {
				job.Abort()
			}
		}
		return nil, err
	}

	a.used = true
	settings := *a
	a.job = query.Gather(ctx, typ, func(batches []query.Result) []query.Result {
		return settings.combine(typ, batches)
	}, jobs...)
	if a.blocking {
		a.results, _ = a.job.Collect(ctx)
		<-a.job.Done()
	}
	return a.job, nil
}

func (a *AggregateMaker) Abort() {
	if a.job != nil {
		a.job.Abort()
	}
}

// CollectionIDs returns the ids of every collection in the aggregate.
func (a *AggregateMaker) CollectionIDs() []string {
	var ids []string
	for _, m := range a.makers {
		for _, id := range m.CollectionIDs() {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// combine turns the batches of every collection into one batch. Batches
// are taken in collection order, so an entity found in several collections
// is represented by the one of the first collection.
func (a *AggregateMaker) combine(typ query.Type, batches []query.Result) []query.Result {
	ids := a.CollectionIDs()
	slices.SortStableFunc(batches, func(x, y query.Result) int {
		return slices.Index(ids, x.Collection()) - slices.Index(ids, y.Collection())
	})

	if a.asData && typ != query.TypeCustom {
		var items []meta.Data
		for _, r := range batches {
			if d, ok := r.(query.DataList); ok {
				items = append(items, d.Items...)
			}
		}
		if typ == query.TypeTrack {
			tracks := limit(a, a.orderTracks(itemsOf[*meta.Track](items)))
			items = make([]meta.Data, len(tracks))
			for i, t := range tracks {
				items[i] = t
			}
		} else {
			items = limit(a, groups(a, items, dataKey, compareData))
		}
		return []query.Result{query.DataList{CollectionID: AggregateID, QueryType: typ, Items: items}}
	}

	switch typ {
	case query.TypeTrack:
		tracks := collect(batches, func(r query.Tracks) []*meta.Track { return r.Items })
		return []query.Result{query.Tracks{CollectionID: AggregateID, Items: limit(a, a.orderTracks(tracks))}}
	case query.TypeArtist, query.TypeAlbumArtist:
		artists := collect(batches, func(r query.Artists) []*meta.Artist { return r.Items })
		return []query.Result{query.Artists{CollectionID: AggregateID,
			Items: limit(a, groups(a, artists, (*meta.Artist).Name, compareSortable[*meta.Artist]))}}
	case query.TypeAlbum:
		albums := collect(batches, func(r query.Albums) []*meta.Album { return r.Items })
		return []query.Result{query.Albums{CollectionID: AggregateID,
			Items: limit(a, groups(a, albums, albumKey, compareSortable[*meta.Album]))}}
	case query.TypeGenre:
		genres := collect(batches, func(r query.Genres) []*meta.Genre { return r.Items })
		return []query.Result{query.Genres{CollectionID: AggregateID,
			Items: limit(a, groups(a, genres, (*meta.Genre).Name, compareSortable[*meta.Genre]))}}
	case query.TypeComposer:
		composers := collect(batches, func(r query.Composers) []*meta.Composer { return r.Items })
		return []query.Result{query.Composers{CollectionID: AggregateID,
			Items: limit(a, groups(a, composers, (*meta.Composer).Name, compareSortable[*meta.Composer]))}}
	case query.TypeYear:
		years := collect(batches, func(r query.Years) []*meta.Year { return r.Items })
		return []query.Result{query.Years{CollectionID: AggregateID,
			Items: limit(a, groups(a, years, (*meta.Year).Name, compareYears))}}
	default:
		return []query.Result{a.combineRows(batches)}
	}
}

// orderTracks sorts tracks by the requested order. Without order, tracks
// stay in collection order.
func (a *AggregateMaker) orderTracks(tracks []*meta.Track) []*meta.Track {
	switch {
	case a.random:
		rand.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
	case len(a.orders) > 0:
		slices.SortStableFunc(tracks, func(x, y *meta.Track) int {
			for _, o := range a.orders {
				c := meta.CompareTracks(x, y, o.field)
				if o.descending {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	return tracks
}

// groups drops entities whose key was already seen and orders the rest by
// name, descending when the first requested order is.
func groups[T any](a *AggregateMaker, items []T, key func(T) string, compare func(x, y T) int) []T {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, item := range items {
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}

	if a.random {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	descending := len(a.orders) > 0 && a.orders[0].descending
	slices.SortStableFunc(out, func(x, y T) int {
		if descending {
			return compare(y, x)
		}
		return compare(x, y)
	})
	return out
}

// combineRows concatenates custom rows. A query made of return functions
// only yields one row per collection; those rows are folded into one.
func (a *AggregateMaker) combineRows(batches []query.Result) query.Rows {
	combined := query.Rows{CollectionID: AggregateID}
	for _, r := range batches {
		rows, ok := r.(query.Rows)
		if !ok {
			continue
		}
		if combined.Columns == nil {
			combined.Columns = rows.Columns
		}
		combined.Values = append(combined.Values, rows.Values...)
	}

	if len(a.functions) > 0 && a.values == 0 {
		combined.Values = [][]string{foldRows(a.functions, combined.Values)}
		return combined
	}

	switch {
	case a.random:
		rand.Shuffle(len(combined.Values), func(i, j int) {
			combined.Values[i], combined.Values[j] = combined.Values[j], combined.Values[i]
		})
	case len(a.orders) > 0:
		slices.SortStableFunc(combined.Values, func(x, y []string) int {
			for _, o := range a.orders {
				i := slices.Index(combined.Columns, o.field.String())
				if i < 0 || i >= len(x) || i >= len(y) {
					continue
				}
				var c int
				if o.field.IsNumeric() {
					c = compareNumbers(x[i], y[i])
				} else {
					c = meta.CompareText(x[i], y[i])
				}
				if o.descending {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	combined.Values = limit(a, combined.Values)
	return combined
}

// foldRows merges the per collection values of return functions: counts
// and sums add up, minimums and maximums are taken over every collection.
// NULL values, read as "", are skipped.
func foldRows(functions []query.ReturnFunction, rows [][]string) []string {
	out := make([]string, len(functions))
	for i, fn := range functions {
		var acc float64
		set := false
		for _, row := range rows {
			if i >= len(row) || row[i] == "" {
				continue
			}
			v := meta.ParseNumber(row[i])
			switch {
			case !set:
				acc = v
			case fn == query.Max:
				acc = max(acc, v)
			case fn == query.Min:
				acc = min(acc, v)
			default:
				acc += v
			}
			set = true
		}
		if set || fn == query.Count || fn == query.Sum {
			out[i] = strconv.FormatFloat(acc, 'f', -1, 64)
		}
	}
	return out
}

func limit[T any](a *AggregateMaker, items []T) []T {
	if a.maxResults >= 0 && len(items) > a.maxResults {
		return items[:a.maxResults]
	}
	return items
}

func collect[R query.Result, T any](batches []query.Result, items func(R) []T) []T {
	var out []T
	for _, r := range batches {
		if v, ok := r.(R); ok {
			out = append(out, items(v)...)
		}
	}
	return out
}

func itemsOf[T meta.Data](items []meta.Data) []T {
	out := make([]T, 0, len(items))
	for _, d := range items {
		if v, ok := d.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func albumKey(a *meta.Album) string {
	if a.HasAlbumArtist() {
		return a.Name() + "\x00" + a.AlbumArtist().Name()
	}
	return a.Name() + "\x00"
}

// dataKey identifies an entity across collections by kind and name.
func dataKey(d meta.Data) string {
	switch v := d.(type) {
	case *meta.Album:
		return "album\x00" + albumKey(v)
	case *meta.Artist:
		return "artist\x00" + v.Name()
	case *meta.Genre:
		return "genre\x00" + v.Name()
	case *meta.Composer:
		return "composer\x00" + v.Name()
	case *meta.Year:
		return "year\x00" + v.Name()
	default:
		return d.Name()
	}
}

func compareSortable[T meta.Data](x, y T) int {
	return meta.CompareText(x.SortableName(), y.SortableName())
}

func compareYears(x, y *meta.Year) int {
	if c := compareNumbers(x.Name(), y.Name()); c != 0 {
		return c
	}
	return meta.CompareText(x.Name(), y.Name())
}

func compareData(x, y meta.Data) int {
	xy, xok := x.(*meta.Year)
	yy, yok := y.(*meta.Year)
	if xok && yok {
		return compareYears(xy, yy)
	}
	return compareSortable(x, y)
}

func compareNumbers(x, y string) int {
	return cmp.Compare(meta.ParseNumber(x), meta.ParseNumber(y))
}

func (a *AggregateMaker) Tracks() []*meta.Track {
	return collect(a.results, func(r query.Tracks) []*meta.Track { return r.Items })
}

func (a *AggregateMaker) Artists() []*meta.Artist {
	return collect(a.results, func(r query.Artists) []*meta.Artist { return r.Items })
}

func (a *AggregateMaker) Albums() []*meta.Album {
	return collect(a.results, func(r query.Albums) []*meta.Album { return r.Items })
}

func (a *AggregateMaker) Genres() []*meta.Genre {
	return collect(a.results, func(r query.Genres) []*meta.Genre { return r.Items })
}

func (a *AggregateMaker) Composers() []*meta.Composer {
	return collect(a.results, func(r query.Composers) []*meta.Composer { return r.Items })
}

func (a *AggregateMaker) Years() []*meta.Year {
	return collect(a.results, func(r query.Years) []*meta.Year { return r.Items })
}

func (a *AggregateMaker) Data() []meta.Data {
	return collect(a.results, func(r query.DataList) []meta.Data { return r.Items })
}

func (a *AggregateMaker) CustomData() [][]string {
	return collect(a.results, func(r query.Rows) [][]string { return r.Values })
}
