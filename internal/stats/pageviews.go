package stats

import (
	"context"
	"time"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
	"github.com/vinceanalytics/tally/internal/filters"
	"github.com/vinceanalytics/tally/internal/results"
	"github.com/vinceanalytics/tally/internal/store"
	"github.com/vinceanalytics/tally/internal/timerange"
	"golang.org/x/sync/errgroup"
)

type Pageviews struct {
	Query
	Bucket timerange.Bucket
}

func (r *Pageviews) Select(now time.Time) (*expr.Select, error) {
	where, err := r.where(now)
	if err != nil {
		return nil, err
	}
	bucket := r.Bucket
	if bucket == "" {
		bucket = timerange.Hour
	}
	return &expr.Select{
		Columns: []expr.Expr{
			expr.As{Expr: bucket.Start(r.Time.TimeZone), Name: "time"},
			expr.As{Expr: expr.Fn("countIf", expr.Compare(expr.Col("type"), expr.Eq, expr.Str("pageview"))), Name: "pageviews"},
			expr.As{Expr: expr.Fn("uniq", expr.Col("session_id")), Name: "sessions"},
			expr.As{Expr: expr.Fn("uniq", expr.Col("user_id")), Name: "users"},
		},
		From:    filters.Table,
		Where:   where,
		GroupBy: []expr.Expr{expr.Col("time")},
		OrderBy: []expr.Expr{expr.Fill{Expr: expr.Col("time"), Step: bucket.Step()}},
	}, nil
}

// Series holds a time series and the one of the preceding period. Previous is
// nil when the query has no time range.
type Series struct {
	Current  []results.Row `json:"current"`
	Previous []results.Row `json:"previous"`
}

// Pageviews returns bucketed counts for the current and previous periods. Both
// queries run concurrently and see the same instant.
func (s *Service) Pageviews(ctx context.Context, r *Pageviews) (*Series, error) {
	now := core.Now(ctx)
	sel, err := r.Select(now)
	if err != nil {
		return nil, err
	}
	current := statement("pageviews", sel)
	prev := *r
	prev.Time, err = timerange.Previous(r.Time)
	if err != nil {
		return nil, err
	}
	var previous *store.Statement
	if prev.Time != (timerange.Spec{}) {
		sel, err := prev.Select(now)
		if err != nil {
			return nil, err
		}
		st := statement("pageviews_previous", sel)
		previous = &st
	}
	o := &Series{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.Current, err = s.query(ctx, current, results.Default)
		return
	})
	if previous != nil {
		g.Go(func() (err error) {
			o.Previous, err = s.query(ctx, *previous, results.Default)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return o, nil
}
