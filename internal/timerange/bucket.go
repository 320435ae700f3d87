package timerange

import (
	"strconv"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
)

// Bucket is the granularity of a time series.
type Bucket string

const (
	Minute         Bucket = "minute"
	FiveMinutes    Bucket = "five_minutes"
	TenMinutes     Bucket = "ten_minutes"
	FifteenMinutes Bucket = "fifteen_minutes"
	Hour           Bucket = "hour"
	Day            Bucket = "day"
	Week           Bucket = "week"
	Month          Bucket = "month"
	Year           Bucket = "year"
)

var buckets = map[Bucket]struct {
	fn, step string
}{
	Minute:         {"toStartOfMinute", "1 MINUTE"},
	FiveMinutes:    {"toStartOfFiveMinutes", "5 MINUTE"},
	TenMinutes:     {"toStartOfTenMinutes", "10 MINUTE"},
	FifteenMinutes: {"toStartOfFifteenMinutes", "15 MINUTE"},
	Hour:           {"toStartOfHour", "1 HOUR"},
	Day:            {"toStartOfDay", "1 DAY"},
	Week:           {"toStartOfWeek", "7 DAY"},
	Month:          {"toStartOfMonth", "1 MONTH"},
	Year:           {"toStartOfYear", "1 YEAR"},
}

func ParseBucket(s string) (Bucket, error) {
	if s == "" {
		return Hour, nil
	}
	b := Bucket(s)
	if _, ok := buckets[b]; !ok {
		return "", core.ErrValidation.New("unknown bucket " + strconv.Quote(s))
	}
	return b, nil
}

// Start truncates the event timestamp, seen in time zone tz, to the start of
// its bucket.
func (b Bucket) Start(tz string) expr.Expr {
	ts := expr.Expr(Column)
	if tz != "" {
		ts = expr.Fn("toTimeZone", Column, expr.Str(tz))
	}
	return expr.Fn(buckets[b].fn, ts)
}

// Step is the static interval between two buckets.
func (b Bucket) Step() string {
	return buckets[b].step
}
