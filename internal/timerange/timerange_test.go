package timerange

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
)

var now = time.Date(2024, 3, 10, 15, 30, 45, 678_000_000, time.UTC)

func where(t *testing.T, s Spec, now time.Time) string {
	t.Helper()
	e, err := Compile(s, now)
	require.NoError(t, err)
	return expr.Where(e, expr.Inline)
}

func TestCompileDates(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
		now  time.Time
		want string
	}{
		{
			name: "new york january",
			spec: Spec{StartDate: "2024-01-01", EndDate: "2024-01-31", TimeZone: "America/New_York"},
			now:  now,
			want: "AND timestamp >= toDateTime('2024-01-01 05:00:00', 'UTC') AND timestamp < toDateTime('2024-02-01 05:00:00', 'UTC')",
		},
		{
			name: "across daylight saving start",
			spec: Spec{StartDate: "2024-03-09", EndDate: "2024-03-10", TimeZone: "America/New_York"},
			now:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			want: "AND timestamp >= toDateTime('2024-03-09 05:00:00', 'UTC') AND timestamp < toDateTime('2024-03-11 04:00:00', 'UTC')",
		},
		{
			name: "utc single day",
			spec: Spec{StartDate: "2024-02-29", EndDate: "2024-02-29", TimeZone: "UTC"},
			now:  now,
			want: "AND timestamp >= toDateTime('2024-02-29 00:00:00', 'UTC') AND timestamp < toDateTime('2024-03-01 00:00:00', 'UTC')",
		},
		{
			name: "ending today is bounded by the store clock",
			spec: Spec{StartDate: "2024-03-01", EndDate: "2024-03-10", TimeZone: "UTC"},
			now:  now,
			want: "AND timestamp >= toDateTime('2024-03-01 00:00:00', 'UTC') AND timestamp < now()",
		},
		{
			name: "today depends on the range time zone",
			spec: Spec{StartDate: "2024-03-11", EndDate: "2024-03-11", TimeZone: "Asia/Tokyo"},
			now:  time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC),
			want: "AND timestamp >= toDateTime('2024-03-10 15:00:00', 'UTC') AND timestamp < now()",
		},
		{
			name: "yesterday in tokyo",
			spec: Spec{StartDate: "2024-03-10", EndDate: "2024-03-10", TimeZone: "Asia/Tokyo"},
			now:  time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC),
			want: "AND timestamp >= toDateTime('2024-03-09 15:00:00', 'UTC') AND timestamp < toDateTime('2024-03-10 15:00:00', 'UTC')",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, where(t, c.spec, c.now))
		})
	}
}

func TestCompileMinutes(t *testing.T) {
	got := where(t, Minutes(60, 0), now)
	require.Equal(t, "AND timestamp > toDateTime('2024-03-10 14:30:45', 'UTC') AND timestamp <= toDateTime('2024-03-10 15:30:45', 'UTC')", got)

	got = where(t, Minutes(30, 10), now)
	require.Equal(t, "AND timestamp > toDateTime('2024-03-10 15:00:45', 'UTC') AND timestamp <= toDateTime('2024-03-10 15:20:45', 'UTC')", got)
}

func TestCompileNone(t *testing.T) {
	require.Equal(t, "", where(t, Spec{}, now))
	require.Equal(t, "", where(t, Spec{TimeZone: "Europe/Berlin"}, now))
}

func TestCompileParams(t *testing.T) {
	e, err := Compile(Minutes(5, 0), now)
	require.NoError(t, err)
	p := expr.NewParams()
	require.Equal(t,
		"AND timestamp > toDateTime({p0:String}, 'UTC') AND timestamp <= toDateTime({p1:String}, 'UTC')",
		expr.Where(e, p))
	require.Equal(t, map[string]string{
		"p0": "2024-03-10 15:25:45",
		"p1": "2024-03-10 15:30:45",
	}, p.Values())
}

func TestCompileInvalid(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
	}{
		{"both variants", Spec{StartDate: "2024-01-01", EndDate: "2024-01-02", TimeZone: "UTC", PastMinutesStart: ptr(10), PastMinutesEnd: ptr(0)}},
		{"start date only", Spec{StartDate: "2024-01-01", TimeZone: "UTC"}},
		{"end date only", Spec{EndDate: "2024-01-01", TimeZone: "UTC"}},
		{"dates without zone", Spec{StartDate: "2024-01-01", EndDate: "2024-01-02"}},
		{"start minutes only", Spec{PastMinutesStart: ptr(10)}},
		{"end minutes only", Spec{PastMinutesEnd: ptr(0)}},
		{"negative minutes", Spec{PastMinutesStart: ptr(10), PastMinutesEnd: ptr(-1)}},
		{"start equals end", Minutes(10, 10)},
		{"start before end", Minutes(5, 10)},
		{"too many minutes", Minutes(maxMinutes+1, 0)},
		{"bad date", Spec{StartDate: "01/01/2024", EndDate: "2024-01-02", TimeZone: "UTC"}},
		{"bad end date", Spec{StartDate: "2024-01-01", EndDate: "2024-13-02", TimeZone: "UTC"}},
		{"unknown zone", Spec{StartDate: "2024-01-01", EndDate: "2024-01-02", TimeZone: "Mars/Olympus"}},
		{"unknown zone alone", Spec{TimeZone: "'); DROP--"}},
		{"unknown zone with minutes", Spec{TimeZone: "Mars/Olympus", PastMinutesStart: ptr(10), PastMinutesEnd: ptr(0)}},
		{"reversed dates", Spec{StartDate: "2024-01-02", EndDate: "2024-01-01", TimeZone: "UTC"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, err := Compile(c.spec, now)
			require.Nil(t, e)
			require.True(t, core.Is(err, core.ErrValidation), "%v", err)
			require.Error(t, c.spec.Validate())
		})
	}
}

func TestPrevious(t *testing.T) {
	p, err := Previous(Minutes(60, 10))
	require.NoError(t, err)
	require.Equal(t, Minutes(110, 60), p)

	p, err = Previous(Spec{StartDate: "2024-03-01", EndDate: "2024-03-10", TimeZone: "UTC"})
	require.NoError(t, err)
	require.Equal(t, Spec{StartDate: "2024-02-20", EndDate: "2024-02-29", TimeZone: "UTC"}, p)

	p, err = Previous(Spec{StartDate: "2024-03-10", EndDate: "2024-03-10", TimeZone: "America/New_York"})
	require.NoError(t, err)
	require.Equal(t, Spec{StartDate: "2024-03-09", EndDate: "2024-03-09", TimeZone: "America/New_York"}, p)

	p, err = Previous(Spec{})
	require.NoError(t, err)
	require.Equal(t, Spec{}, p)

	_, err = Previous(Minutes(1, 2))
	require.True(t, core.Is(err, core.ErrValidation))
}

func TestLocationCached(t *testing.T) {
	a, err := Location("Europe/Paris")
	require.NoError(t, err)
	zones.Wait()
	b, err := Location("Europe/Paris")
	require.NoError(t, err)
	require.Equal(t, a.String(), b.String())

	_, err = Location("")
	require.True(t, core.Is(err, core.ErrValidation))
}

func TestBucket(t *testing.T) {
	b, err := ParseBucket("")
	require.NoError(t, err)
	require.Equal(t, Hour, b)

	b, err = ParseBucket("five_minutes")
	require.NoError(t, err)
	require.Equal(t, "toStartOfFiveMinutes(toTimeZone(timestamp, 'Europe/Berlin'))", expr.Render(b.Start("Europe/Berlin"), expr.Inline))
	require.Equal(t, "5 MINUTE", b.Step())
	require.Equal(t, "toStartOfDay(timestamp)", expr.Render(Day.Start(""), expr.Inline))

	_, err = ParseBucket("fortnight")
	require.True(t, core.Is(err, core.ErrValidation))
}

func TestMinutesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bounds are (now - start, now - end]", prop.ForAll(
		func(end, length int64) bool {
			start := end + length
			s := Minutes(start, end)
			e, err := Compile(s, now)
			if err != nil {
				return false
			}
			lo := now.Add(-time.Duration(start) * time.Minute).Truncate(time.Second)
			hi := now.Add(-time.Duration(end) * time.Minute).Truncate(time.Second)
			want := expr.And{
				expr.Compare(Column, expr.Gt, expr.Timestamp(lo)),
				expr.Compare(Column, expr.Le, expr.Timestamp(hi)),
			}
			return expr.Where(e, expr.Inline) == expr.Where(want, expr.Inline)
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(1, 1_000_000),
	))

	properties.Property("previous window ends where the current starts", prop.ForAll(
		func(end, length int64) bool {
			s := Minutes(end+length, end)
			p, err := Previous(s)
			if err != nil {
				return false
			}
			return *p.PastMinutesEnd == *s.PastMinutesStart &&
				*p.PastMinutesStart-*p.PastMinutesEnd == length
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(1, 1_000_000),
	))

	properties.Property("upper bound is the day after end_date", prop.ForAll(
		func(offset int) bool {
			end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
			s := Spec{StartDate: "2022-12-01", EndDate: end.Format(time.DateOnly), TimeZone: "America/New_York"}
			e, err := Compile(s, now)
			if err != nil {
				return false
			}
			loc, _ := Location("America/New_York")
			next := time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, loc)
			want := expr.Compare(Column, expr.Lt, expr.Timestamp(next))
			got := expr.Where(e, expr.Inline)
			suffix := " AND " + expr.Render(want, expr.Inline)
			return len(got) > len(suffix) && got[len(got)-len(suffix):] == suffix
		},
		gen.IntRange(0, 400),
	))

	properties.TestingRun(t)
}

func ptr(v int64) *int64 { return &v }
