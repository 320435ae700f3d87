package pattern

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestToRegex(t *testing.T) {
	type match struct {
		path string
		ok   bool
	}
	cases := []struct {
		pattern string
		regex   string
		paths   []match
	}{
		{
			pattern: "/news/**",
			regex:   "^/news/.*$",
			paths: []match{
				{"/news/a/b/c", true},
				{"/news/a", true},
				{"/news", false},
				{"/other/a", false},
			},
		},
		{
			pattern: "/a/*",
			regex:   "^/a/[^/]+$",
			paths: []match{
				{"/a/b", true},
				{"/a/b/c", false},
				{"/a", false},
			},
		},
		{
			pattern: "/blog/*/comments",
			regex:   "^/blog/[^/]+/comments$",
			paths: []match{
				{"/blog/post-1/comments", true},
				{"/blog/x/y/comments", false},
			},
		},
		{
			pattern: "/file.html",
			regex:   `^/file\.html$`,
			paths: []match{
				{"/file.html", true},
				{"/fileXhtml", false},
			},
		},
		{
			pattern: "/search?q=(a|b)",
			regex:   `^/search\?q=\(a\|b\)$`,
			paths: []match{
				{"/search?q=(a|b)", true},
				{"/search?q=a", false},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.pattern, func(t *testing.T) {
			got := ToRegex(c.pattern)
			require.Equal(t, c.regex, got)
			re := regexp.MustCompile(got)
			for _, m := range c.paths {
				require.Equal(t, m.ok, re.MatchString(m.path), m.path)
			}
		})
	}
}

func TestBuildRegex(t *testing.T) {
	require.Equal(t, "^/news/[^/]+$", BuildRegex("/news", 1))
	require.Equal(t, "^/news/[^/]+/[^/]+$", BuildRegex("/news", 2))
	require.Equal(t, "^/news", BuildRegex("/news", 0))
	require.Equal(t, "^/news/[^/]+$", BuildRegex("/news/", 1))
	require.Equal(t, `^/v1\.0`, BuildRegex("/v1.0", 0))
}

func TestToRegexProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("always compiles and is anchored", prop.ForAll(
		func(s string) bool {
			got := ToRegex(s)
			_, err := regexp.Compile(got)
			return err == nil && strings.HasPrefix(got, "^") && strings.HasSuffix(got, "$")
		},
		gen.AnyString(),
	))

	properties.Property("patterns without wildcards match only themselves", prop.ForAll(
		func(s string) bool {
			s = strings.ReplaceAll(s, "*", "")
			re := regexp.MustCompile(ToRegex(s))
			return re.MatchString(s) && !re.MatchString(s+"/x")
		},
		gen.AnyString(),
	))

	properties.Property("single star never crosses a slash", prop.ForAll(
		func(a, b string) bool {
			re := regexp.MustCompile(ToRegex("/" + a + "/*"))
			return !re.MatchString("/" + a + "/" + b + "/" + b)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}
