// Package filters compiles dashboard filters into predicates over the events
// table.
package filters

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
)

type Type string

const (
	Equals      Type = "equals"
	NotEquals   Type = "not_equals"
	Contains    Type = "contains"
	NotContains Type = "not_contains"
)

func (t Type) Valid() bool {
	switch t {
	case Equals, NotEquals, Contains, NotContains:
		return true
	default:
		return false
	}
}

func (t Type) Op() expr.Op {
	switch t {
	case NotEquals:
		return expr.Ne
	case Contains:
		return expr.Like
	case NotContains:
		return expr.NotLike
	default:
		return expr.Eq
	}
}

// Negative filters exclude rows. Their values are combined with AND.
func (t Type) Negative() bool {
	return t == NotEquals || t == NotContains
}

func (t Type) pattern() bool {
	return t == Contains || t == NotContains
}

// Parameter names a filterable dimension.
type Parameter string

// URLParamPrefix selects an arbitrary key of the url_parameters map.
const URLParamPrefix = "url_param:"

type Filter struct {
	Parameter Parameter `json:"parameter"`
	Type      Type      `json:"type"`
	Value     []string  `json:"value"`
}

func (f *Filter) Validate() error {
	if _, err := resolve(f.Parameter); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return core.ErrValidation.New("unknown filter type " + strconv.Quote(string(f.Type)))
	}
	if len(f.Value) == 0 {
		return core.ErrValidation.New("filter " + string(f.Parameter) + " has no values")
	}
	return nil
}

// Parse decodes and validates the filters query parameter. An empty string
// means no filters.
func Parse(data string) ([]Filter, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	var fs []Filter
	if err := dec.Decode(&fs); err != nil {
		return nil, core.ErrValidation.New("invalid filters: " + err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, core.ErrValidation.New("invalid filters: trailing data")
	}
	for i := range fs {
		if err := fs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Format is the inverse of Parse.
func Format(fs []Filter) string {
	if len(fs) == 0 {
		return ""
	}
	var b bytes.Buffer
	json.NewEncoder(&b).Encode(fs)
	return strings.TrimSpace(b.String())
}

// Scope restricts the rows scanned by session subqueries.
type Scope struct {
	Site int64
	// Time is the compiled time range, nil for all time.
	Time expr.Expr
}

// Rows returns the site and time predicate of s.
func (s Scope) Rows() expr.Expr {
	return expr.And{
		expr.Compare(expr.Col("site_id"), expr.Eq, expr.Int64(s.Site)),
		s.Time,
	}
}

// Compile returns the conjunction of fs, or nil when fs is empty.
func Compile(fs []Filter, scope Scope) (expr.Expr, error) {
	if len(fs) == 0 {
		return nil, nil
	}
	if scope.Site < 1 {
		return nil, core.ErrValidation.New("site id must be positive")
	}
	o := make(expr.And, 0, len(fs))
	for i := range fs {
		f := &fs[i]
		if err := f.Validate(); err != nil {
			return nil, err
		}
		s, _ := resolve(f.Parameter)
		e, err := s.compile(f, scope)
		if err != nil {
			return nil, err
		}
		o = append(o, e)
	}
	return o, nil
}

// Where compiles fs into a fragment.
func Where(fs []Filter, scope Scope, b expr.Binder) (string, error) {
	e, err := Compile(fs, scope)
	if err != nil {
		return "", err
	}
	return expr.Where(e, b), nil
}

// combine joins per value conditions of one filter.
func combine(t Type, ls []expr.Expr) expr.Expr {
	if t.Negative() {
		return expr.And(ls)
	}
	return expr.Or(ls)
}

// literal wraps v in wildcards for pattern types.
func literal(t Type, v string) expr.Expr {
	if t.pattern() {
		return expr.Str("%" + v + "%")
	}
	return expr.Str(v)
}

// match applies f to target once per value.
func match(target expr.Expr, f *Filter) expr.Expr {
	ls := make([]expr.Expr, len(f.Value))
	for i, v := range f.Value {
		ls[i] = expr.Compare(target, f.Type.Op(), literal(f.Type, v))
	}
	return combine(f.Type, ls)
}
