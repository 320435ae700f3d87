// Package results post processes rows returned by the event store.
package results

import (
	"math"
	"strconv"
	"strings"
)

// Row maps a column name to its value.
type Row map[string]any

// Kind declares how a field is normalized.
type Kind uint8

const (
	// Infer converts numeric looking strings to numbers.
	Infer Kind = iota
	// Text keeps values as returned. Used for identifiers where leading zeros
	// or precision matter.
	Text
	// Number behaves like Infer. It documents fields always expected to be
	// numeric.
	Number
)

// Schema declares field kinds. Fields not listed are Infer.
type Schema map[string]Kind

// Default keeps user and session identifiers opaque.
var Default = Schema{
	"session_id":         Text,
	"user_id":            Text,
	"identified_user_id": Text,
	"effective_user_id":  Text,
}

// With returns a copy of s with extra declarations.
func (s Schema) With(fields Schema) Schema {
	o := make(Schema, len(s)+len(fields))
	for k, v := range s {
		o[k] = v
	}
	for k, v := range fields {
		o[k] = v
	}
	return o
}

// Normalize converts, in place, string values of non Text fields that parse
// fully as finite numbers. Decimal integers that fit become int64, other
// numbers float64.
func (s Schema) Normalize(rows []Row) []Row {
	for _, row := range rows {
		for k, v := range row {
			if s[k] == Text {
				continue
			}
			str, ok := v.(string)
			if !ok {
				continue
			}
			if n, ok := ParseNumber(str); ok {
				row[k] = n
			}
		}
	}
	return rows
}

// ParseNumber parses s as an int64 or a finite float64.
func ParseNumber(s string) (any, bool) {
	if s == "" || strings.TrimSpace(s) != s {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// Normalize applies the Default schema.
func Normalize(rows []Row) []Row {
	return Default.Normalize(rows)
}
