// Package pattern translates path wildcards into anchored regular expressions
// understood by the store's match function.
package pattern

import (
	"regexp"
	"strings"
)

// Escaping turns every literal brace into \{ so the marker cannot come from
// the input.
const doubleStar = "{{DOUBLE_STAR}}"

// ToRegex converts a wildcard path pattern into an anchored regular
// expression.
//
//	*  matches one path segment (no slash)
//	** matches any sequence, slashes included
func ToRegex(pattern string) string {
	s := escape(pattern, "*")
	s = strings.ReplaceAll(s, "**", doubleStar)
	s = strings.ReplaceAll(s, "*", "[^/]+")
	s = strings.ReplaceAll(s, doubleStar, ".*")
	return "^" + s + "$"
}

// BuildRegex matches paths under prefix. With depth > 0 exactly depth more
// segments must follow; otherwise anything starting with prefix matches.
//
//	/news, 2 => ^/news/[^/]+/[^/]+$
//	/news, 0 => ^/news
func BuildRegex(prefix string, depth int) string {
	p := strings.TrimSuffix(escape(prefix, ""), "/")
	if depth <= 0 {
		return "^" + p
	}
	return "^" + p + strings.Repeat("/[^/]+", depth) + "$"
}

// escape quotes regex metacharacters in s except those listed in keep.
func escape(s, keep string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(keep, r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return b.String()
}
