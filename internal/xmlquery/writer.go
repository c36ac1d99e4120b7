package xmlquery

import (
	"encoding/xml"
	"io"
	"strconv"
)

// ConditionKind tells what a Condition element is.
type ConditionKind int

const (
	KindInclude ConditionKind = iota
	KindExclude
	KindAnd
	KindOr
)

func (k ConditionKind) element() string {
	switch k {
	case KindExclude:
		return "exclude"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "include"
	}
}

// Condition is one element of the filters section. Include and exclude
// conditions use Field, Value and Compare; and/or groups use Children.
type Condition struct {
	Kind     ConditionKind
	Field    string
	Value    string
	Compare  string
	Children []Condition
}

func Include(field, value string) Condition {
	return Condition{Kind: KindInclude, Field: field, Value: value}
}

func Exclude(field, value string) Condition {
	return Condition{Kind: KindExclude, Field: field, Value: value}
}

// IncludeNumber compares a numeric field. compare is one of equals,
// greater or less.
func IncludeNumber(field string, value int64, compare string) Condition {
	return Condition{Kind: KindInclude, Field: field, Value: strconv.FormatInt(value, 10), Compare: compare}
}

func ExcludeNumber(field string, value int64, compare string) Condition {
	return Condition{Kind: KindExclude, Field: field, Value: strconv.FormatInt(value, 10), Compare: compare}
}

func And(children ...Condition) Condition {
	return Condition{Kind: KindAnd, Children: children}
}

func Or(children ...Condition) Condition {
	return Condition{Kind: KindOr, Children: children}
}

// Order sorts by Field, or randomly when Field is "random".
type Order struct {
	Field      string
	Descending bool
}

// Request describes a query in the form Parse reads.
type Request struct {
	// ReturnValues holds group names (tracks, albums...) or field names
	// for a custom query.
	ReturnValues       []string
	Filters            []Condition
	Order              []Order
	Limit              int // 0 for none
	OnlyCompilations   bool
	OnlyNormalAlbums   bool
	IncludeCollections []string
	ExcludeCollections []string
}

// Encode writes req as a version 1.0 query document.
func Encode(w io.Writer, req Request) error {
	e := &encoder{enc: xml.NewEncoder(w)}

	e.start("query", "version", Version)
	if len(req.Filters) > 0 {
		e.start("filters")
		for _, c := range req.Filters {
			e.condition(c)
		}
		e.end("filters")
	}
	for _, o := range req.Order {
		value := "ascending"
		if o.Descending {
			value = "descending"
		}
		e.empty("order", "field", o.Field, "value", value)
	}
	if len(req.ReturnValues) > 0 {
		e.start("returnValues")
		for _, name := range req.ReturnValues {
			e.empty(name)
		}
		e.end("returnValues")
	}
	if req.Limit > 0 {
		e.empty("limit", "value", strconv.Itoa(req.Limit))
	}
	if req.OnlyCompilations {
		e.empty("onlyCompilations")
	}
	if req.OnlyNormalAlbums {
		e.empty("onlyNormalAlbums")
	}
	for _, id := range req.IncludeCollections {
		e.empty("includeCollection", "id", id)
	}
	for _, id := range req.ExcludeCollections {
		e.empty("excludeCollection", "id", id)
	}
	e.end("query")

	if e.err != nil {
		return e.err
	}
	return e.enc.Flush()
}

// encoder keeps the first write error so the document can be written
// without checking every token.
type encoder struct {
	enc *xml.Encoder
	err error
}

func (e *encoder) condition(c Condition) {
	name := c.Kind.element()
	switch c.Kind {
	case KindAnd, KindOr:
		e.start(name)
		for _, child := range c.Children {
			e.condition(child)
		}
		e.end(name)
	default:
		attrs := []string{"field", c.Field, "value", c.Value}
		if c.Compare != "" {
			attrs = append(attrs, "compare", c.Compare)
		}
		e.empty(name, attrs...)
	}
}

func (e *encoder) start(name string, attrs ...string) {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	e.token(start)
}

func (e *encoder) end(name string) {
	e.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (e *encoder) empty(name string, attrs ...string) {
	e.start(name, attrs...)
	e.end(name)
}

func (e *encoder) token(t xml.Token) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeToken(t)
}
