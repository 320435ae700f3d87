package filters

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
)

type strategy interface {
	compile(f *Filter, scope Scope) (expr.Expr, error)
}

// column compares a plain column or a fixed computed expression.
type column struct {
	target expr.Expr
}

func (c column) compile(f *Filter, _ Scope) (expr.Expr, error) {
	return match(c.target, f), nil
}

// urlParam looks up a key of the url_parameters map.
type urlParam struct {
	key string
}

func (u urlParam) compile(f *Filter, _ Scope) (expr.Expr, error) {
	return match(expr.Index{Map: expr.Col("url_parameters"), Key: expr.Str(u.key)}, f), nil
}

// sessionEvent keeps every row of sessions that contain a matching event.
type sessionEvent struct {
	target expr.Col
}

func (s sessionEvent) compile(f *Filter, scope Scope) (expr.Expr, error) {
	return expr.In{
		Left: sessionID,
		Select: &expr.Select{
			Distinct: true,
			Columns:  []expr.Expr{sessionID},
			From:     Table,
			Where:    expr.And{scope.Rows(), match(s.target, f)},
		},
	}, nil
}

// sessionPage keeps sessions whose first or last pathname matches.
type sessionPage struct {
	agg  string
	name string
}

func (s sessionPage) compile(f *Filter, scope Scope) (expr.Expr, error) {
	return expr.In{
		Left: sessionID,
		Select: &expr.Select{
			Columns: []expr.Expr{sessionID},
			FromSelect: &expr.Select{
				Columns: []expr.Expr{
					sessionID,
					expr.As{Expr: expr.Fn(s.agg, expr.Col("pathname"), expr.Col("timestamp")), Name: s.name},
				},
				From:    Table,
				Where:   scope.Rows(),
				GroupBy: []expr.Expr{sessionID},
			},
			Where: match(expr.Col(s.name), f),
		},
	}, nil
}

// identity matches either the device id or the identified user id. Positive
// types match when either does, negative types when neither does.
type identity struct{}

func (identity) compile(f *Filter, _ Scope) (expr.Expr, error) {
	ls := make([]expr.Expr, len(f.Value))
	for i, v := range f.Value {
		pair := []expr.Expr{
			expr.Compare(expr.Col("user_id"), f.Type.Op(), literal(f.Type, v)),
			expr.Compare(expr.Col("identified_user_id"), f.Type.Op(), literal(f.Type, v)),
		}
		if f.Type.Negative() {
			ls[i] = expr.And(pair)
		} else {
			ls[i] = expr.Or(pair)
		}
	}
	return combine(f.Type, ls), nil
}

// Tolerance is the half width of the window used for coordinate equality.
const Tolerance = 0.001

// tolerance matches coordinates within Tolerance of each value.
type tolerance struct {
	target expr.Col
}

func (t tolerance) compile(f *Filter, _ Scope) (expr.Expr, error) {
	if f.Type.pattern() {
		return nil, core.ErrValidation.New(string(f.Parameter) + " does not support " + string(f.Type))
	}
	ls := make([]expr.Expr, len(f.Value))
	for i, v := range f.Value {
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, core.ErrValidation.New(string(f.Parameter) + " value " + strconv.Quote(v) + " is not a number")
		}
		lo, hi := round(x-Tolerance), round(x+Tolerance)
		if f.Type.Negative() {
			ls[i] = expr.Or{
				expr.Compare(t.target, expr.Lt, expr.Float64(lo)),
				expr.Compare(t.target, expr.Gt, expr.Float64(hi)),
			}
		} else {
			ls[i] = expr.And{
				expr.Compare(t.target, expr.Ge, expr.Float64(lo)),
				expr.Compare(t.target, expr.Le, expr.Float64(hi)),
			}
		}
	}
	return combine(f.Type, ls), nil
}

// round drops the noise of the tolerance arithmetic.
func round(x float64) float64 {
	return math.Round(x*1e7) / 1e7
}

// Table holds one row per event.
const Table = "events"

const sessionID = expr.Col("session_id")

func concat(args ...expr.Expr) expr.Expr {
	return expr.Fn("concat", args...)
}

func str(col string) expr.Expr {
	return expr.Fn("toString", expr.Col(col))
}

var osVersion = concat(str("operating_system"), expr.Str(" "), str("operating_system_version"))

var table = map[Parameter]strategy{
	"hostname":         column{target: expr.Col("hostname")},
	"pathname":         column{target: expr.Col("pathname")},
	"page_title":       column{target: expr.Col("page_title")},
	"querystring":      column{target: expr.Col("querystring")},
	"channel":          column{target: expr.Col("channel")},
	"browser":          column{target: expr.Col("browser")},
	"operating_system": column{target: expr.Col("operating_system")},
	"language":         column{target: expr.Col("language")},
	"country":          column{target: expr.Col("country")},
	"region":           column{target: expr.Col("region")},
	"device_type":      column{target: expr.Col("device_type")},
	"timezone":         column{target: expr.Col("timezone")},

	"referrer":        column{target: expr.Fn("domainWithoutWWW", expr.Col("referrer"))},
	"dimensions":      column{target: concat(str("screen_width"), expr.Str("x"), str("screen_height"))},
	"city":            column{target: concat(str("region"), expr.Str("-"), str("city"))},
	"browser_version": column{target: concat(str("browser"), expr.Str(" "), str("browser_version"))},
	"operating_system_version": column{target: expr.Fn("if",
		expr.Compare(osVersion, expr.Eq, expr.Str("Windows 10")),
		expr.Str("Windows 10/11"),
		osVersion,
	)},

	"utm_source":   urlParam{key: "utm_source"},
	"utm_medium":   urlParam{key: "utm_medium"},
	"utm_campaign": urlParam{key: "utm_campaign"},
	"utm_term":     urlParam{key: "utm_term"},
	"utm_content":  urlParam{key: "utm_content"},

	"event_name": sessionEvent{target: expr.Col("event_name")},
	"entry_page": sessionPage{agg: "argMin", name: "entry_pathname"},
	"exit_page":  sessionPage{agg: "argMax", name: "exit_pathname"},

	"user_id": identity{},

	"lat": tolerance{target: expr.Col("lat")},
	"lon": tolerance{target: expr.Col("lon")},
}

func resolve(p Parameter) (strategy, error) {
	if s, ok := table[p]; ok {
		return s, nil
	}
	if key, ok := strings.CutPrefix(string(p), URLParamPrefix); ok && key != "" {
		return urlParam{key: key}, nil
	}
	return nil, core.ErrValidation.New("unknown filter parameter " + strconv.Quote(string(p)))
}

// Known returns the fixed parameter names, url_param keys aside.
func Known() []Parameter {
	o := make([]Parameter, 0, len(table))
	for p := range table {
		o = append(o, p)
	}
	slices.Sort(o)
	return o
}
