// Package timerange compiles dashboard time ranges into timestamp predicates.
package timerange

import (
	"strconv"
	"time"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
)

// Column is the event timestamp column, stored in UTC.
const Column = expr.Col("timestamp")

// maxMinutes keeps relative windows within time.Duration range.
const maxMinutes = 100 * 366 * 24 * 60

// Spec is either an absolute date range in a time zone or a window of past
// minutes. The zero Spec means no restriction.
type Spec struct {
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
	TimeZone         string `json:"time_zone,omitempty"`
	PastMinutesStart *int64 `json:"past_minutes_start,omitempty"`
	PastMinutesEnd   *int64 `json:"past_minutes_end,omitempty"`
}

type variant uint8

const (
	none variant = iota
	absolute
	relative
)

func (s *Spec) variant() (variant, error) {
	if s.TimeZone != "" {
		if _, err := Location(s.TimeZone); err != nil {
			return none, err
		}
	}
	hasDates := s.StartDate != "" || s.EndDate != ""
	hasMinutes := s.PastMinutesStart != nil || s.PastMinutesEnd != nil
	switch {
	case hasDates && hasMinutes:
		return none, core.ErrValidation.New("date range and past minutes are mutually exclusive")
	case hasDates:
		if s.StartDate == "" || s.EndDate == "" || s.TimeZone == "" {
			return none, core.ErrValidation.New("start_date, end_date and time_zone are required together")
		}
		return absolute, nil
	case hasMinutes:
		if s.PastMinutesStart == nil || s.PastMinutesEnd == nil {
			return none, core.ErrValidation.New("past_minutes_start and past_minutes_end are required together")
		}
		start, end := *s.PastMinutesStart, *s.PastMinutesEnd
		if start < 0 || end < 0 {
			return none, core.ErrValidation.New("past minutes must not be negative")
		}
		if start <= end {
			return none, core.ErrValidation.New("past_minutes_start must be greater than past_minutes_end")
		}
		if start > maxMinutes {
			return none, core.ErrValidation.New("past_minutes_start is too large")
		}
		return relative, nil
	default:
		// A time zone alone carries no range, it only shifts buckets.
		return none, nil
	}
}

// Validate reports whether s is a well formed range.
func (s *Spec) Validate() error {
	v, err := s.variant()
	if err != nil {
		return err
	}
	if v == absolute {
		_, _, _, err = s.dates()
	}
	return err
}

// Compile returns the predicate selecting events inside s, or nil when s does
// not restrict time. now is the instant captured for the request; it is used
// for relative windows and to decide whether the range ends today.
func Compile(s Spec, now time.Time) (expr.Expr, error) {
	v, err := s.variant()
	if err != nil {
		return nil, err
	}
	switch v {
	case absolute:
		return s.compileDates(now)
	case relative:
		return s.compileMinutes(now), nil
	default:
		return nil, nil
	}
}

func (s *Spec) dates() (start, end time.Time, loc *time.Location, err error) {
	loc, err = Location(s.TimeZone)
	if err != nil {
		return
	}
	start, err = time.ParseInLocation(time.DateOnly, s.StartDate, loc)
	if err != nil {
		err = core.ErrValidation.New("start_date must be formatted as YYYY-MM-DD")
		return
	}
	end, err = time.ParseInLocation(time.DateOnly, s.EndDate, loc)
	if err != nil {
		err = core.ErrValidation.New("end_date must be formatted as YYYY-MM-DD")
		return
	}
	if start.After(end) {
		err = core.ErrValidation.New("start_date is after end_date")
	}
	return
}

// compileDates covers [start of start_date, start of the day after end_date)
// in the range's time zone. A range ending today is bounded by the store's
// clock instead so partial days never show data ahead of real time.
func (s *Spec) compileDates(now time.Time) (expr.Expr, error) {
	start, end, loc, err := s.dates()
	if err != nil {
		return nil, err
	}
	lower := expr.Compare(Column, expr.Ge, expr.Timestamp(start))
	if sameDay(end, now.In(loc)) {
		return expr.And{lower, expr.Compare(Column, expr.Lt, expr.Now{})}, nil
	}
	y, m, d := end.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return expr.And{lower, expr.Compare(Column, expr.Lt, expr.Timestamp(next))}, nil
}

// compileMinutes resolves the window to absolute timestamps once, start
// exclusive and end inclusive.
func (s *Spec) compileMinutes(now time.Time) expr.Expr {
	start, end := s.minutes(now)
	return expr.And{
		expr.Compare(Column, expr.Gt, expr.Timestamp(start)),
		expr.Compare(Column, expr.Le, expr.Timestamp(end)),
	}
}

func (s *Spec) minutes(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = now.Add(-time.Duration(*s.PastMinutesStart) * time.Minute).Truncate(time.Second)
	end = now.Add(-time.Duration(*s.PastMinutesEnd) * time.Minute).Truncate(time.Second)
	return
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Previous returns the window of equal length immediately before s. The zero
// Spec is returned for ranges without restriction.
func Previous(s Spec) (Spec, error) {
	v, err := s.variant()
	if err != nil {
		return Spec{}, err
	}
	switch v {
	case absolute:
		start, end, _, err := s.dates()
		if err != nil {
			return Spec{}, err
		}
		days := daysBetween(start, end) + 1
		prevEnd := start.AddDate(0, 0, -1)
		prevStart := prevEnd.AddDate(0, 0, -(days - 1))
		return Spec{
			StartDate: prevStart.Format(time.DateOnly),
			EndDate:   prevEnd.Format(time.DateOnly),
			TimeZone:  s.TimeZone,
		}, nil
	case relative:
		start, end := *s.PastMinutesStart, *s.PastMinutesEnd
		length := start - end
		prevStart, prevEnd := start+length, start
		return Spec{PastMinutesStart: &prevStart, PastMinutesEnd: &prevEnd}, nil
	default:
		return Spec{}, nil
	}
}

func daysBetween(start, end time.Time) int {
	a := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Minutes is a helper for building relative specs.
func Minutes(start, end int64) Spec {
	return Spec{PastMinutesStart: &start, PastMinutesEnd: &end}
}

func (s Spec) String() string {
	v, _ := s.variant()
	switch v {
	case absolute:
		return s.StartDate + ".." + s.EndDate + " " + s.TimeZone
	case relative:
		return "past " + strconv.FormatInt(*s.PastMinutesStart, 10) + ".." + strconv.FormatInt(*s.PastMinutesEnd, 10) + " minutes"
	default:
		return "all time"
	}
}
