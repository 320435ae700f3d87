package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
	"github.com/vinceanalytics/tally/internal/filters"
	"github.com/vinceanalytics/tally/internal/stats"
	"github.com/vinceanalytics/tally/internal/timerange"
)

func explainCMD() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "prints the sql of a dashboard query without running it",
		ArgsUsage: "pageview-counts|pageviews|users",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "site", Usage: "site id", Value: 1},
			&cli.StringFlag{Name: "filters", Usage: "json list of filters"},
			&cli.StringFlag{Name: "start-date", Usage: "first day, YYYY-MM-DD"},
			&cli.StringFlag{Name: "end-date", Usage: "last day, YYYY-MM-DD"},
			&cli.StringFlag{Name: "time-zone", Usage: "IANA time zone of the dates"},
			&cli.StringFlag{Name: "past-minutes-start", Usage: "start of a relative range in minutes before now"},
			&cli.StringFlag{Name: "past-minutes-end", Usage: "end of a relative range in minutes before now"},
			&cli.StringFlag{Name: "prefix", Usage: "path prefix of pageview-counts"},
			&cli.IntFlag{Name: "depth", Usage: "exact segments below prefix, any when zero"},
			&cli.StringFlag{Name: "bucket", Usage: "time bucket of pageviews"},
			&cli.IntFlag{Name: "page", Usage: "page of users", Value: 1},
			&cli.IntFlag{Name: "limit", Usage: "users per page"},
		},
		Action: func(ctx context.Context, x *cli.Command) error {
			r := explain{
				Kind:    x.Args().First(),
				Site:    int64(x.Int("site")),
				Filters: x.String("filters"),
				Time: timerange.Spec{
					StartDate: x.String("start-date"),
					EndDate:   x.String("end-date"),
					TimeZone:  x.String("time-zone"),
				},
				MinutesStart: x.String("past-minutes-start"),
				MinutesEnd:   x.String("past-minutes-end"),
				Prefix:       x.String("prefix"),
				Depth:        int(x.Int("depth")),
				Bucket:       x.String("bucket"),
				Page:         int(x.Int("page")),
				Limit:        int(x.Int("limit")),
			}
			return r.write(os.Stdout, time.Now())
		},
	}
}

type explain struct {
	Kind         string
	Site         int64
	Filters      string
	Time         timerange.Spec
	MinutesStart string
	MinutesEnd   string
	Prefix       string
	Depth        int
	Bucket       string
	Page, Limit  int
}

func (e *explain) query() (stats.Query, error) {
	var err error
	if e.Time.PastMinutesStart, err = minutes(e.MinutesStart); err != nil {
		return stats.Query{}, err
	}
	if e.Time.PastMinutesEnd, err = minutes(e.MinutesEnd); err != nil {
		return stats.Query{}, err
	}
	fs, err := filters.Parse(e.Filters)
	if err != nil {
		return stats.Query{}, err
	}
	return stats.Query{Site: e.Site, Time: e.Time, Filters: fs}, nil
}

func (e *explain) write(w io.Writer, now time.Time) error {
	q, err := e.query()
	if err != nil {
		return err
	}
	var sel *expr.Select
	switch e.Kind {
	case "pageview-counts":
		r := &stats.PageviewCounts{Query: q, Prefix: e.Prefix}
		if e.Depth != 0 {
			r.Depth = &e.Depth
		}
		sel, err = r.Select(now)
	case "pageviews":
		b, berr := timerange.ParseBucket(e.Bucket)
		if berr != nil {
			return berr
		}
		sel, err = (&stats.Pageviews{Query: q, Bucket: b}).Select(now)
	case "users":
		sel, err = (&stats.Users{Query: q, Page: e.Page, Limit: e.Limit}).Select(now)
	default:
		return core.ErrValidation.New(fmt.Sprintf("unknown query %q", e.Kind))
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, expr.SQL(sel, expr.Inline))
	return err
}

func minutes(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, core.ErrValidation.New("minutes must be an integer")
	}
	return &n, nil
}
