package query

import (
	"cmp"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/registry"
)

// Maker accumulates a query through chained calls and runs it.
// A Maker is not safe for concurrent mutation.
type Maker interface {
	SetQueryType(t Type) Maker
	// QueryType is the type set by the first accepted SetQueryType call.
	QueryType() Type
	IncludeCollection(id string) Maker
	ExcludeCollection(id string) Maker

	AddMatch(d meta.Data) Maker
	AddArtistMatch(a *meta.Artist, behaviour ArtistMatchBehaviour) Maker
	AddFilter(f meta.Field, text string, matchBegin, matchEnd bool) Maker
	ExcludeFilter(f meta.Field, text string, matchBegin, matchEnd bool) Maker
	AddNumberFilter(f meta.Field, value int64, c NumberComparison) Maker
	ExcludeNumberFilter(f meta.Field, value int64, c NumberComparison) Maker

	AddReturnValue(f meta.Field) Maker
	AddReturnFunction(fn ReturnFunction, f meta.Field) Maker
	OrderBy(f meta.Field, descending bool) Maker
	OrderByRandom() Maker
	LimitMaxResultSize(n int) Maker
	SetAlbumQueryMode(mode AlbumQueryMode) Maker

	BeginAnd() Maker
	BeginOr() Maker
	EndAndOr() Maker

	SetReturnResultAsDataPtrs(enabled bool) Maker
	SetBlocking(enabled bool) Maker
	Reset() Maker

	// Run starts the query. In blocking mode it returns once every result
	// is available through the accessors below.
	Run(ctx context.Context) (*Job, error)
	Abort()
	CollectionIDs() []string

	Tracks() []*meta.Track
	Artists() []*meta.Artist
	Albums() []*meta.Album
	Genres() []*meta.Genre
	Composers() []*meta.Composer
	Years() []*meta.Year
	Data() []meta.Data
	CustomData() [][]string
}

// QueryMaker builds and runs SQL queries against one collection.
type QueryMaker struct {
	env *Env

	typ          Type
	linked       Table
	returnValues []string
	columns      []string
	distinct     bool
	match        string
	filter       string
	andStack     []bool
	orderBy      []string
	maxResults   int
	albumMode    AlbumQueryMode
	asData       bool
	blocking     bool
	used         bool

	included        bool
	explicitInclude bool

	err      error
	compiled *string
	job      *Job

	blockingResults blockingResults
}

// New returns an empty query maker bound to env.
func New(env *Env) *QueryMaker {
	if env.Registry == nil {
		cp := *env
		cp.Registry = registry.New(env.CollectionID, nil)
		env = &cp
	}
	m := &QueryMaker{env: env}
	m.clear()
	return m
}

var _ Maker = (*QueryMaker)(nil)

func (m *QueryMaker) clear() {
	m.typ = TypeNone
	m.linked = 0
	m.returnValues = nil
	m.columns = nil
	m.distinct = false
	m.match = ""
	m.filter = ""
	m.andStack = []bool{true}
	m.orderBy = nil
	m.maxResults = -1
	m.albumMode = AllAlbums
	m.asData = false
	m.blocking = false
	m.used = false
	m.included = true
	m.explicitInclude = false
	m.err = nil
	m.compiled = nil
	m.job = nil
	m.blockingResults = blockingResults{}
}

// Reset clears everything but the collection the maker is bound to.
func (m *QueryMaker) Reset() Maker {
	m.clear()
	return m
}

// invalidate drops the compiled query after a mutation.
func (m *QueryMaker) invalidate() {
	m.compiled = nil
}

// fail records the first builder error.
func (m *QueryMaker) fail(err error) {
	if m.err == nil {
		m.err = err
	}
	m.invalidate()
}

func (m *QueryMaker) SetQueryType(t Type) Maker {
	// The blocking accessors need the type the query ran with.
	if m.blocking && m.used {
		return m
	}
	if m.typ != TypeNone {
		return m
	}

	switch t {
	case TypeTrack:
		m.linked |= TableURLs | TableTags | TableGenre | TableArtist | TableAlbum |
			TableAlbumArtist | TableComposer | TableYear | TableStatistics
		m.returnValues = append([]string(nil), trackColumns...)
	case TypeArtist:
		m.distinct = true
		m.linked |= TableArtist
		m.returnValues = []string{"artists.name", "artists.id"}
	case TypeAlbum:
		m.distinct = true
		m.linked |= TableAlbum | TableAlbumArtist
		m.returnValues = []string{"albums.name", "albums.id", "albums.artist", "albumartists.name"}
	case TypeAlbumArtist:
		m.distinct = true
		m.linked |= TableAlbum | TableAlbumArtist
		m.returnValues = []string{"albumartists.name", "albumartists.id"}
	case TypeGenre:
		m.distinct = true
		m.linked |= TableGenre
		m.returnValues = []string{"genres.name", "genres.id"}
	case TypeComposer:
		m.distinct = true
		m.linked |= TableComposer
		m.returnValues = []string{"composers.name", "composers.id"}
	case TypeYear:
		m.distinct = true
		m.linked |= TableYear
		m.returnValues = []string{"years.name", "years.id"}
	case TypeCustom:
	default:
		return m
	}
	m.typ = t
	m.invalidate()
	return m
}

// QueryType returns the type set on the maker.
func (m *QueryMaker) QueryType() Type {
	return m.typ
}

// IncludeCollection restricts the query to the listed collections. The first
// call switches from "every collection" to "only included ones".
func (m *QueryMaker) IncludeCollection(id string) Maker {
	if !m.explicitInclude {
		m.explicitInclude = true
		m.included = false
	}
	if id == m.env.CollectionID {
		m.included = true
	}
	return m
}

func (m *QueryMaker) ExcludeCollection(id string) Maker {
	if id == m.env.CollectionID {
		m.included = false
	}
	return m
}

// Included reports whether the collection takes part in the query.
func (m *QueryMaker) Included() bool {
	return m.included
}

func (m *QueryMaker) QueryType() Type {
	return m.typ
}

func (m *QueryMaker) CollectionIDs() []string {
	return []string{m.env.CollectionID}
}

// AddMatch binds the query to one known entity.
func (m *QueryMaker) AddMatch(d meta.Data) Maker {
	switch v := d.(type) {
	case *meta.Track:
		m.matchTrack(v)
	case *meta.Artist:
		m.AddArtistMatch(v, TrackArtists)
	case *meta.Album:
		m.matchAlbum(v)
	case *meta.Genre:
		if v == nil {
			m.fail(ErrUnsupportedMatch)
			return m
		}
		m.linked |= TableGenre
		m.addMatch("genres.name = '" + m.escape(v.Name()) + "'")
	case *meta.Composer:
		if v == nil {
			m.fail(ErrUnsupportedMatch)
			return m
		}
		m.linked |= TableComposer
		m.addMatch("composers.name = '" + m.escape(v.Name()) + "'")
	case *meta.Year:
		if v == nil {
			m.linked |= TableTags
			m.addMatch("tracks.year IS NULL")
			return m
		}
		m.linked |= TableYear
		m.addMatch("years.name = '" + m.escape(v.Name()) + "'")
	default:
		m.fail(fmt.Errorf("%w: %T", ErrUnsupportedMatch, d))
	}
	return m
}

func (m *QueryMaker) matchTrack(t *meta.Track) {
	if t == nil {
		m.fail(ErrUnsupportedMatch)
		return
	}
	m.linked |= TableURLs
	if t.UID != "" {
		m.addMatch("urls.uniqueid = '" + m.escape(t.UID) + "'")
		return
	}

	deviceID, rpath := t.DeviceID, t.RelPath
	if m.env.Paths != nil && t.Path != "" {
		deviceID = m.env.Paths.IDForURL(t.Path)
		rpath = m.env.Paths.RelativePath(deviceID, t.Path)
	}
	m.addMatch("urls.deviceid = " + strconv.Itoa(deviceID) +
		" AND urls.rpath = '" + m.escape(rpath) + "'")
}

// AddArtistMatch binds the query to an artist, as track artist, album artist
// or either. A nil or unnamed artist matches tracks without artist.
func (m *QueryMaker) AddArtistMatch(a *meta.Artist, behaviour ArtistMatchBehaviour) Maker {
	m.linked |= TableArtist
	if behaviour != TrackArtists {
		m.linked |= TableAlbum | TableAlbumArtist
	}

	artistCond := "( artists.name IS NULL OR artists.name = '' )"
	albumArtistCond := "( albumartists.name IS NULL OR albumartists.name = '' )"
	if a != nil && a.Name() != "" {
		name := m.escape(a.Name())
		artistCond = "artists.name = '" + name + "'"
		albumArtistCond = "albumartists.name = '" + name + "'"
	}

	switch behaviour {
	case AlbumArtists:
		m.addMatch(albumArtistCond)
	case AlbumOrTrackArtists:
		m.addMatch("( ( " + artistCond + " ) OR ( " + albumArtistCond + " ) )")
	default:
		m.addMatch(artistCond)
	}
	return m
}

func (m *QueryMaker) matchAlbum(a *meta.Album) {
	m.linked |= TableAlbum
	if a == nil || a.Name() == "" {
		m.addMatch("( albums.name IS NULL OR albums.name = '' )")
	} else {
		m.addMatch("albums.name = '" + m.escape(a.Name()) + "'")
	}
	if a == nil {
		return
	}

	if artist := a.AlbumArtist(); artist != nil {
		m.linked |= TableAlbumArtist
		m.addMatch("albumartists.name = '" + m.escape(artist.Name()) + "'")
	} else {
		m.addMatch("albums.artist IS NULL")
	}
}

func (m *QueryMaker) addMatch(cond string) {
	m.match += " AND " + cond
	m.invalidate()
}

// AddFilter adds a text predicate on f. matchBegin/matchEnd anchor the text
// at the start/end of the value; with both set the comparison is exact.
// An empty album artist filter selects albums without album artist.
func (m *QueryMaker) AddFilter(f meta.Field, text string, matchBegin, matchEnd bool) Maker {
	if f == meta.FieldAlbumArtist && text == "" {
		m.linked |= TableAlbum | TableAlbumArtist
		m.addFilter("( albums.artist IS NULL OR albumartists.name = '' )")
		return m
	}

	col, ok := m.column(f)
	if !ok {
		return m
	}
	m.addFilter(col + m.likeCondition(text, !matchBegin, !matchEnd))
	return m
}

func (m *QueryMaker) ExcludeFilter(f meta.Field, text string, matchBegin, matchEnd bool) Maker {
	if f == meta.FieldAlbumArtist && text == "" {
		m.linked |= TableAlbum | TableAlbumArtist
		m.addFilter("NOT ( albums.artist IS NULL OR albumartists.name = '' )")
		return m
	}

	col, ok := m.column(f)
	if !ok {
		return m
	}
	// NULL never matches a pattern, so it is kept by the negation.
	m.addFilter("( NOT " + col + m.likeCondition(text, !matchBegin, !matchEnd) + " OR " + col + " IS NULL )")
	return m
}

// AddNumberFilter adds a numeric predicate on f. A NULL value counts as 0:
// it passes the filter when 0 would.
func (m *QueryMaker) AddNumberFilter(f meta.Field, value int64, c NumberComparison) Maker {
	op, ok := includeOperators[c]
	if !ok {
		m.fail(&InvalidCompareError{Compare: c.String()})
		return m
	}
	col, ok := m.numberColumn(f)
	if !ok {
		return m
	}
	m.addFilter(numberCondition(col, op, value, nullPasses(c, value)))
	return m
}

// ExcludeNumberFilter adds the negation of the matching AddNumberFilter:
// every row, NULL ones included, is selected by exactly one of the two.
// NULL rows therefore pass an exclude filter whenever 0 fails the include
// one; they are not dropped with a "col IS NOT NULL" guard.
func (m *QueryMaker) ExcludeNumberFilter(f meta.Field, value int64, c NumberComparison) Maker {
	op, ok := excludeOperators[c]
	if !ok {
		m.fail(&InvalidCompareError{Compare: c.String()})
		return m
	}
	col, ok := m.numberColumn(f)
	if !ok {
		return m
	}
	m.addFilter(numberCondition(col, op, value, !nullPasses(c, value)))
	return m
}

var includeOperators = map[NumberComparison]string{
	Equals:      "=",
	GreaterThan: ">",
	LessThan:    "<",
}

var excludeOperators = map[NumberComparison]string{
	Equals:      "!=",
	GreaterThan: "<=",
	LessThan:    ">=",
}

// nullPasses reports whether a NULL value, read as 0, satisfies "value c v".
func nullPasses(c NumberComparison, v int64) bool {
	switch c {
	case Equals:
		return v == 0
	case GreaterThan:
		return v < 0
	case LessThan:
		return v > 0
	default:
		return false
	}
}

func numberCondition(col, op string, value int64, withNull bool) string {
	cond := col + " " + op + " " + strconv.FormatInt(value, 10)
	if withNull {
		return "( " + cond + " OR " + col + " IS NULL )"
	}
	return cond
}

func (m *QueryMaker) addFilter(cond string) {
	m.filter += " " + m.andOr() + " " + cond
	m.invalidate()
}

// AddReturnValue appends a column to a custom query's projection.
func (m *QueryMaker) AddReturnValue(f meta.Field) Maker {
	if m.typ != TypeCustom {
		return m
	}
	col, ok := m.column(f)
	if !ok {
		return m
	}
	m.returnValues = append(m.returnValues, col)
	m.columns = append(m.columns, f.String())
	m.invalidate()
	return m
}

// AddReturnFunction appends an aggregate over f to a custom query's projection.
func (m *QueryMaker) AddReturnFunction(fn ReturnFunction, f meta.Field) Maker {
	if m.typ != TypeCustom {
		return m
	}
	name, ok := returnFunctions[fn]
	if !ok {
		m.fail(&InvalidFunctionError{Function: fn})
		return m
	}
	col, ok := m.column(f)
	if !ok {
		return m
	}
	m.returnValues = append(m.returnValues, name+"("+col+")")
	m.columns = append(m.columns, strings.ToLower(name)+"("+f.String()+")")
	m.invalidate()
	return m
}

var returnFunctions = map[ReturnFunction]string{
	Count: "COUNT",
	Sum:   "SUM",
	Max:   "MAX",
	Min:   "MIN",
}

func (m *QueryMaker) OrderBy(f meta.Field, descending bool) Maker {
	col, ok := m.numberColumn(f)
	if !ok {
		return m
	}
	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	m.orderBy = append(m.orderBy, col+" "+dir)
	m.invalidate()
	return m
}

// OrderByRandom replaces any ordering with the storage's random function.
func (m *QueryMaker) OrderByRandom() Maker {
	m.orderBy = []string{m.env.Storage.RandomFunc()}
	m.invalidate()
	return m
}

// LimitMaxResultSize caps the number of rows. A negative size means unbounded.
func (m *QueryMaker) LimitMaxResultSize(n int) Maker {
	if n < 0 {
		n = -1
	}
	m.maxResults = n
	m.invalidate()
	return m
}

func (m *QueryMaker) SetAlbumQueryMode(mode AlbumQueryMode) Maker {
	if mode != AllAlbums {
		m.linked |= TableAlbum
	}
	m.albumMode = mode
	m.invalidate()
	return m
}

func (m *QueryMaker) BeginAnd() Maker {
	m.filter += " " + m.andOr() + " ( 1"
	m.andStack = append(m.andStack, true)
	m.invalidate()
	return m
}

func (m *QueryMaker) BeginOr() Maker {
	m.filter += " " + m.andOr() + " ( 0"
	m.andStack = append(m.andStack, false)
	m.invalidate()
	return m
}

func (m *QueryMaker) EndAndOr() Maker {
	if len(m.andStack) == 1 {
		m.fail(ErrUnbalancedGroup)
		return m
	}
	m.filter += " )"
	m.andStack = m.andStack[:len(m.andStack)-1]
	m.invalidate()
	return m
}

// andOr returns the combinator of the innermost group.
func (m *QueryMaker) andOr() string {
	if m.andStack[len(m.andStack)-1] {
		return "AND"
	}
	return "OR"
}

// SetReturnResultAsDataPtrs makes the query deliver DataList batches instead
// of typed entity batches.
func (m *QueryMaker) SetReturnResultAsDataPtrs(enabled bool) Maker {
	m.asData = enabled
	return m
}

func (m *QueryMaker) SetBlocking(enabled bool) Maker {
	m.blocking = enabled
	return m
}

// LinkedTables returns the tables the query joins so far.
func (m *QueryMaker) LinkedTables() Table {
	return m.linked
}

// column returns the SQL column for f and links its table. Unknown fields
// are recorded as the builder error.
func (m *QueryMaker) column(f meta.Field) (string, bool) {
	c, ok := fieldColumns[f]
	if !ok {
		m.fail(&InvalidFieldError{Field: f})
		return "", false
	}
	m.linked |= c.tables
	return c.name, true
}

// numberColumn is column for numeric comparisons and ordering: text columns
// holding numbers are cast so that "999" sorts before "1990".
func (m *QueryMaker) numberColumn(f meta.Field) (string, bool) {
	col, ok := m.column(f)
	if !ok {
		return "", false
	}
	return cmp.Or(numericColumns[f], col), true
}

func (m *QueryMaker) escape(text string) string {
	return m.env.Storage.Escape(text)
}

// Err returns the first error recorded while building the query.
func (m *QueryMaker) Err() error {
	return m.err
}
