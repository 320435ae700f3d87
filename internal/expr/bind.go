package expr

import (
	"strconv"
	"strings"
	"time"

	"github.com/dolthub/vitess/go/sqltypes"
)

// Binder turns a literal into query text.
type Binder interface {
	Bind(v Value) string
}

// DateTime is the layout used for timestamps sent to the store. Sub second
// precision is dropped.
const DateTime = time.DateTime

// Params binds literals as ClickHouse named parameters. The same Params must
// be used for every expression of a statement so names stay unique.
type Params struct {
	values map[string]string
}

var _ Binder = (*Params)(nil)

func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

func (p *Params) Bind(v Value) string {
	name := "p" + strconv.Itoa(len(p.values))
	switch v.Kind {
	case Int:
		p.values[name] = strconv.FormatInt(v.Int, 10)
		return "{" + name + ":Int64}"
	case Float:
		p.values[name] = formatFloat(v.Float)
		return "{" + name + ":Float64}"
	case Time:
		p.values[name] = formatTime(v.Time)
		return "toDateTime({" + name + ":String}, 'UTC')"
	default:
		p.values[name] = v.String
		return "{" + name + ":String}"
	}
}

// Set adds a parameter under an explicit name, for statements that reference
// it directly in their text.
func (p *Params) Set(name, value string) {
	p.values[name] = value
}

// Values returns the collected parameters keyed by name.
func (p *Params) Values() map[string]string {
	return p.values
}

type inline struct{}

// Inline writes literals directly into the query text, escaped. Used for
// explaining queries and in tests.
var Inline Binder = inline{}

func (inline) Bind(v Value) string {
	switch v.Kind {
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return formatFloat(v.Float)
	case Time:
		return "toDateTime(" + Quote(formatTime(v.Time)) + ", 'UTC')"
	default:
		return Quote(v.String)
	}
}

// Quote returns s as a single quoted string literal with quotes, backslashes
// and control characters escaped. ClickHouse reads \Z as a plain Z, so 0x1A is
// written as \x1A instead.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i, part := range strings.Split(s, "\x1a") {
		if i > 0 {
			b.WriteString(`\x1A`)
		}
		var e strings.Builder
		sqltypes.NewVarChar(part).EncodeSQL(&e)
		q := e.String()
		b.WriteString(q[1 : len(q)-1])
	}
	b.WriteByte('\'')
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(DateTime)
}
