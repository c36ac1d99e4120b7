// Package xmlquery translates XML query descriptions into query builder
// calls, for callers that cannot use the builder API directly.
package xmlquery

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/query"
)

// Version is the only query format version understood by Parse.
const Version = "1.0"

// ErrInvalidQuery is returned, wrapping the cause, for any request Parse
// cannot turn into a query.
var ErrInvalidQuery = errors.New("invalid query")

var (
	errNoQuery        = errors.New("no query element")
	errMultipleQuery  = errors.New("more than one query element")
	errMissingVersion = errors.New("query element without version")
)

// groups maps the returnValues children that select a typed query.
var groups = map[string]query.Type{
	"tracks":      query.TypeTrack,
	"artists":     query.TypeArtist,
	"albums":      query.TypeAlbum,
	"albumartist": query.TypeAlbumArtist,
	"genres":      query.TypeGenre,
	"composers":   query.TypeComposer,
	"year":        query.TypeYear,
}

var comparisons = map[string]query.NumberComparison{
	"equals":  query.Equals,
	"greater": query.GreaterThan,
	"less":    query.LessThan,
}

// Parse reads one query description from r and applies it to m. It returns
// m on success. Elements it does not know are skipped.
func Parse(r io.Reader, m query.Maker) (query.Maker, error) {
	p := &parser{dec: xml.NewDecoder(r), m: m}
	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return m, nil
}

type parser struct {
	dec *xml.Decoder
	m   query.Maker
}

func (p *parser) parse() error {
	found := false
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "query" {
			if err := p.dec.Skip(); err != nil {
				return err
			}
			continue
		}
		if found {
			return errMultipleQuery
		}
		found = true
		version, ok := attr(start, "version")
		if !ok {
			return errMissingVersion
		}
		if version != Version {
			return fmt.Errorf("unsupported version %q", version)
		}
		if err := p.readQuery(); err != nil {
			return err
		}
	}
	if !found {
		return errNoQuery
	}
	return nil
}

// readQuery consumes the children of the query element.
func (p *parser) readQuery() error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := p.readQueryChild(t); err != nil {
				return err
			}
		}
	}
}

func (p *parser) readQueryChild(start xml.StartElement) error {
	switch start.Name.Local {
	case "filters":
		return p.readConditions()
	case "returnValues":
		return p.readReturnValues()
	case "order":
		field, _ := attr(start, "field")
		if field == "random" {
			p.m.OrderByRandom()
		} else {
			f, err := parseField(field)
			if err != nil {
				return err
			}
			value, _ := attr(start, "value")
			p.m.OrderBy(f, value == "descending")
		}
	case "limit":
		value, _ := attr(start, "value")
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("limit %q: %w", value, err)
		}
		p.m.LimitMaxResultSize(n)
	case "onlyCompilations":
		p.m.SetAlbumQueryMode(query.OnlyCompilations)
	case "onlyNormalAlbums":
		p.m.SetAlbumQueryMode(query.OnlyNormalAlbums)
	case "includeCollection":
		id, _ := attr(start, "id")
		p.m.IncludeCollection(id)
	case "excludeCollection":
		id, _ := attr(start, "id")
		p.m.ExcludeCollection(id)
	}
	return p.dec.Skip()
}

// readConditions consumes the children of a filters, and or or element.
func (p *parser) readConditions() error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			switch t.Name.Local {
			case "and", "or":
				if t.Name.Local == "and" {
					p.m.BeginAnd()
				} else {
					p.m.BeginOr()
				}
				if err := p.readConditions(); err != nil {
					return err
				}
				p.m.EndAndOr()
				continue
			case "include", "exclude":
				if err := p.applyCondition(t, t.Name.Local == "exclude"); err != nil {
					return err
				}
			}
			if err := p.dec.Skip(); err != nil {
				return err
			}
		}
	}
}

func (p *parser) applyCondition(start xml.StartElement, exclude bool) error {
	name, _ := attr(start, "field")
	f, err := parseField(name)
	if err != nil {
		return err
	}
	value, _ := attr(start, "value")

	compare, numeric := attr(start, "compare")
	if !numeric {
		if exclude {
			p.m.ExcludeFilter(f, value, true, true)
		} else {
			p.m.AddFilter(f, value, true, true)
		}
		return nil
	}

	c, ok := comparisons[compare]
	if !ok {
		return &query.InvalidCompareError{Compare: compare}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%s value %q: %w", name, value, err)
	}
	if exclude {
		p.m.ExcludeNumberFilter(f, n, c)
	} else {
		p.m.AddNumberFilter(f, n, c)
	}
	return nil
}

// readReturnValues selects the query type from the first recognized group
// name. Any other child asks for a custom column and makes the query custom.
func (p *parser) readReturnValues() error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if typ, ok := groups[t.Name.Local]; ok {
				p.m.SetQueryType(typ)
			} else {
				f, err := parseField(t.Name.Local)
				if err != nil {
					return err
				}
				p.m.SetQueryType(query.TypeCustom)
				p.m.AddReturnValue(f)
			}
			if err := p.dec.Skip(); err != nil {
				return err
			}
		}
	}
}

func parseField(name string) (meta.Field, error) {
	f, ok := meta.ParseField(name)
	if !ok {
		return meta.FieldNone, &query.InvalidFieldError{Name: name}
	}
	return f, nil
}

func attr(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
