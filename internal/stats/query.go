// Package stats builds and runs the dashboard queries.
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
	"github.com/vinceanalytics/tally/internal/traits"
)

// Query is what every dashboard request carries.
type Query struct {
	Site    int64
	Time    timerange.Spec
	Filters []filters.Filter
}

// where returns the site, time and filter predicates of q at now.
func (q *Query) where(now time.Time) (expr.And, error) {
	if q.Site < 1 {
		return nil, core.ErrValidation.New("site id must be positive")
	}
	tr, err := timerange.Compile(q.Time, now)
	if err != nil {
		return nil, err
	}
	fs, err := filters.Compile(q.Filters, filters.Scope{Site: q.Site, Time: tr})
	if err != nil {
		return nil, err
	}
	return expr.And{
		expr.Compare(expr.Col("site_id"), expr.Eq, expr.Int64(q.Site)),
		tr,
		fs,
	}, nil
}

func statement(name string, sel *expr.Select) store.Statement {
	p := expr.NewParams()
	return store.Statement{
		Name:   name,
		SQL:    expr.SQL(sel, p),
		Params: p,
	}
}

type Service struct {
	Store  store.Querier
	Traits *traits.Enricher
}

func New(q store.Querier, t *traits.Enricher) *Service {
	return &Service{Store: q, Traits: t}
}

func (s *Service) query(ctx context.Context, st store.Statement, schema results.Schema) ([]results.Row, error) {
	rows, err := s.Store.Query(ctx, st)
	if err != nil {
		return nil, err
	}
	return schema.Normalize(rows), nil
}
