// Package expr is a small SQL expression tree for the ClickHouse dialect.
//
// Predicates are built as trees and rendered in one place, so every literal
// goes through a Binder. Nothing user supplied is ever written verbatim: the
// only raw text nodes are Col values, which come from static tables.
package expr

import (
	"strconv"
	"strings"
	"time"
)

type Expr interface {
	write(w *writer)
}

type Kind uint8

const (
	String Kind = iota
	Int
	Float
	Time
)

type Value struct {
	Kind   Kind
	String string
	Int    int64
	Float  float64
	Time   time.Time
}

// Col is trusted SQL text: a column name or a fixed computed expression.
type Col string

// Lit is a literal value. It is rendered by the Binder.
type Lit struct {
	Value Value
}

func Str(s string) Lit { return Lit{Value: Value{Kind: String, String: s}} }

func Int64(v int64) Lit { return Lit{Value: Value{Kind: Int, Int: v}} }

func Float64(v float64) Lit { return Lit{Value: Value{Kind: Float, Float: v}} }

func Timestamp(t time.Time) Lit { return Lit{Value: Value{Kind: Time, Time: t}} }

type Op uint8

const (
	Eq Op = iota
	Ne
	Like
	NotLike
	Gt
	Ge
	Lt
	Le
)

var opText = [...]string{
	Eq:      "=",
	Ne:      "!=",
	Like:    "LIKE",
	NotLike: "NOT LIKE",
	Gt:      ">",
	Ge:      ">=",
	Lt:      "<",
	Le:      "<=",
}

func (o Op) String() string { return opText[o] }

// Negative reports whether o excludes rows matching its operand.
func (o Op) Negative() bool { return o == Ne || o == NotLike }

type Cmp struct {
	Op          Op
	Left, Right Expr
}

func Compare(left Expr, op Op, right Expr) Cmp {
	return Cmp{Op: op, Left: left, Right: right}
}

type And []Expr

type Or []Expr

// Call is a function call, Fn must be a static name.
type Call struct {
	Fn   string
	Args []Expr
}

func Fn(name string, args ...Expr) Call { return Call{Fn: name, Args: args} }

// Index is a map lookup m[key].
type Index struct {
	Map Expr
	Key Expr
}

// Now is evaluated by the store at execution time.
type Now struct{}

type In struct {
	Left   Expr
	Select *Select
}

type As struct {
	Expr Expr
	Name string
}

type Desc struct {
	Expr Expr
}

// Fill orders by Expr and fills gaps in the series. Step is a static
// interval such as "1 HOUR".
type Fill struct {
	Expr Expr
	Step string
}

type Select struct {
	Distinct   bool
	Columns    []Expr
	From       string
	FromSelect *Select
	Where      Expr
	GroupBy    []Expr
	OrderBy    []Expr
	Limit      int
	Offset     int
}

type writer struct {
	b    strings.Builder
	bind Binder
}

func (c Col) write(w *writer) { w.b.WriteString(string(c)) }

func (l Lit) write(w *writer) { w.b.WriteString(w.bind.Bind(l.Value)) }

func (c Cmp) write(w *writer) {
	c.Left.write(w)
	w.b.WriteByte(' ')
	w.b.WriteString(c.Op.String())
	w.b.WriteByte(' ')
	c.Right.write(w)
}

func (a And) write(w *writer) { group(w, a, " AND ", "1") }

func (o Or) write(w *writer) { group(w, o, " OR ", "0") }

func group(w *writer, ls []Expr, sep, empty string) {
	ls = compact(ls)
	switch len(ls) {
	case 0:
		w.b.WriteString(empty)
	case 1:
		ls[0].write(w)
	default:
		w.b.WriteByte('(')
		join(w, ls, sep)
		w.b.WriteByte(')')
	}
}

func join(w *writer, ls []Expr, sep string) {
	for i, e := range ls {
		if i != 0 {
			w.b.WriteString(sep)
		}
		e.write(w)
	}
}

func compact(ls []Expr) []Expr {
	o := make([]Expr, 0, len(ls))
	for _, e := range ls {
		if e == nil {
			continue
		}
		switch x := e.(type) {
		case And:
			if len(compact(x)) == 0 {
				continue
			}
		case Or:
			if len(compact(x)) == 0 {
				continue
			}
		}
		o = append(o, e)
	}
	return o
}

func (c Call) write(w *writer) {
	w.b.WriteString(c.Fn)
	w.b.WriteByte('(')
	join(w, c.Args, ", ")
	w.b.WriteByte(')')
}

func (i Index) write(w *writer) {
	i.Map.write(w)
	w.b.WriteByte('[')
	i.Key.write(w)
	w.b.WriteByte(']')
}

func (Now) write(w *writer) { w.b.WriteString("now()") }

func (i In) write(w *writer) {
	i.Left.write(w)
	w.b.WriteString(" IN (")
	i.Select.write(w)
	w.b.WriteByte(')')
}

func (a As) write(w *writer) {
	a.Expr.write(w)
	w.b.WriteString(" AS ")
	w.b.WriteString(a.Name)
}

func (d Desc) write(w *writer) {
	d.Expr.write(w)
	w.b.WriteString(" DESC")
}

func (f Fill) write(w *writer) {
	f.Expr.write(w)
	w.b.WriteString(" WITH FILL STEP INTERVAL ")
	w.b.WriteString(f.Step)
}

func (s *Select) write(w *writer) {
	w.b.WriteString("SELECT ")
	if s.Distinct {
		w.b.WriteString("DISTINCT ")
	}
	join(w, s.Columns, ", ")
	w.b.WriteString(" FROM ")
	if s.FromSelect != nil {
		w.b.WriteByte('(')
		s.FromSelect.write(w)
		w.b.WriteByte(')')
	} else {
		w.b.WriteString(s.From)
	}
	if s.Where != nil {
		if where := conjunction(s.Where); len(where) > 0 {
			w.b.WriteString(" WHERE ")
			join(w, where, " AND ")
		}
	}
	if len(s.GroupBy) > 0 {
		w.b.WriteString(" GROUP BY ")
		join(w, s.GroupBy, ", ")
	}
	if len(s.OrderBy) > 0 {
		w.b.WriteString(" ORDER BY ")
		join(w, s.OrderBy, ", ")
	}
	if s.Limit > 0 {
		w.b.WriteString(" LIMIT ")
		w.b.WriteString(strconv.Itoa(s.Limit))
	}
	if s.Offset > 0 {
		w.b.WriteString(" OFFSET ")
		w.b.WriteString(strconv.Itoa(s.Offset))
	}
}

// conjunction flattens the top level of a WHERE clause, unwrapping groups of
// one. Nested groups keep their parentheses.
func conjunction(e Expr) []Expr {
	var o []Expr
	var walk func(e Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case nil:
		case And:
			for _, c := range x {
				walk(c)
			}
		case Or:
			switch c := compact(x); len(c) {
			case 0:
			case 1:
				walk(c[0])
			default:
				o = append(o, x)
			}
		default:
			o = append(o, x)
		}
	}
	walk(e)
	return o
}

// Render returns e as a bare expression.
func Render(e Expr, b Binder) string {
	if e == nil {
		return ""
	}
	w := &writer{bind: b}
	e.write(w)
	return w.b.String()
}

// Where renders e as a predicate fragment: empty, or a conjunction starting
// with AND that can be appended to an existing WHERE clause.
func Where(e Expr, b Binder) string {
	ls := conjunction(e)
	if len(ls) == 0 {
		return ""
	}
	w := &writer{bind: b}
	w.b.WriteString("AND ")
	join(w, ls, " AND ")
	return w.b.String()
}

// SQL renders a full statement.
func SQL(s *Select, b Binder) string {
	w := &writer{bind: b}
	s.write(w)
	return w.b.String()
}
