package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/filters"
	"github.com/vinceanalytics/tally/internal/stats"
	"github.com/vinceanalytics/tally/internal/timerange"
)

func site(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("site"), 10, 64)
	if err != nil || id < 1 {
		return 0, core.ErrValidation.New("site must be a positive integer")
	}
	return id, nil
}

// query reads the parameters shared by dashboard endpoints.
func query(r *http.Request) (stats.Query, error) {
	id, err := site(r)
	if err != nil {
		return stats.Query{}, err
	}
	v := r.URL.Query()
	tr, err := timeRange(v)
	if err != nil {
		return stats.Query{}, err
	}
	fs, err := filters.Parse(v.Get("filters"))
	if err != nil {
		return stats.Query{}, err
	}
	return stats.Query{Site: id, Time: tr, Filters: fs}, nil
}

func timeRange(v url.Values) (timerange.Spec, error) {
	s := timerange.Spec{
		StartDate: v.Get("start_date"),
		EndDate:   v.Get("end_date"),
		TimeZone:  v.Get("time_zone"),
	}
	var err error
	if s.PastMinutesStart, err = optionalInt(v, "past_minutes_start"); err != nil {
		return s, err
	}
	if s.PastMinutesEnd, err = optionalInt(v, "past_minutes_end"); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func optionalInt(v url.Values, name string) (*int64, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, core.ErrValidation.New(name + " must be an integer")
	}
	return &n, nil
}

func intParam(v url.Values, name string) (int, error) {
	n, err := optionalInt(v, name)
	if err != nil || n == nil {
		return 0, err
	}
	return int(*n), nil
}

func optionalDepth(r *http.Request) (*int, error) {
	n, err := optionalInt(r.URL.Query(), "depth")
	if err != nil || n == nil {
		return nil, err
	}
	d := int(*n)
	return &d, nil
}
