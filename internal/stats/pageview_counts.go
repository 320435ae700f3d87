package stats

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
	"github.com/vinceanalytics/tally/internal/filters"
	"github.com/vinceanalytics/tally/internal/pattern"
	"github.com/vinceanalytics/tally/internal/results"
)

// NewsPrefix enables filtering by the date embedded in article paths such as
// /news/launch-03-14-2024.
const NewsPrefix = "/news"

const (
	datedPath   = `.*-\d{2}-\d{2}-\d{4}$`
	datedGroups = `.*-(\d{2})-(\d{2})-(\d{4})$`
	isoDate     = `\3-\1-\2`
)

// MaxDepth bounds PageviewCounts.Depth.
const MaxDepth = 64

type PageviewCounts struct {
	Query
	Prefix string
	// Depth is the exact number of segments below Prefix, nil for any.
	Depth *int
}

func (r *PageviewCounts) Select(now time.Time) (*expr.Select, error) {
	if r.Prefix == "" {
		return nil, core.ErrValidation.New("prefix parameter is required")
	}
	depth := 0
	if r.Depth != nil {
		if *r.Depth < 1 {
			return nil, core.ErrValidation.New("depth must be a positive integer")
		}
		if *r.Depth > MaxDepth {
			return nil, core.ErrValidation.New("depth must be at most " + strconv.Itoa(MaxDepth))
		}
		depth = *r.Depth
	}
	where, err := r.where(now)
	if err != nil {
		return nil, err
	}
	pathname := expr.Col("pathname")
	cond := expr.And{
		where[0],
		expr.Compare(expr.Col("type"), expr.Eq, expr.Str("pageview")),
		expr.Fn("match", pathname, expr.Str(pattern.BuildRegex(r.Prefix, depth))),
	}
	if strings.HasPrefix(r.Prefix, NewsPrefix) && r.Time.StartDate != "" && r.Time.EndDate != "" {
		published := expr.Fn("toDate", expr.Fn("replaceRegexpOne", pathname, expr.Str(datedGroups), expr.Str(isoDate)))
		cond = append(cond,
			expr.Fn("match", pathname, expr.Str(datedPath)),
			expr.Compare(published, expr.Ge, expr.Fn("toDate", expr.Str(r.Time.StartDate))),
			expr.Compare(published, expr.Le, expr.Fn("toDate", expr.Str(r.Time.EndDate))),
		)
	}
	cond = append(cond, where[1:]...)
	return &expr.Select{
		Columns: []expr.Expr{pathname, expr.As{Expr: expr.Fn("count"), Name: "count"}},
		From:    filters.Table,
		Where:   cond,
		GroupBy: []expr.Expr{pathname},
		OrderBy: []expr.Expr{expr.Desc{Expr: expr.Col("count")}},
	}, nil
}

var countsSchema = results.Default.With(results.Schema{"pathname": results.Text})

// PageviewCounts returns pageviews per pathname below a prefix.
func (s *Service) PageviewCounts(ctx context.Context, r *PageviewCounts) (map[string]any, error) {
	sel, err := r.Select(core.Now(ctx))
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, statement("pageview_counts", sel), countsSchema)
	if err != nil {
		return nil, err
	}
	o := make(map[string]any, len(rows))
	for _, row := range rows {
		if p, ok := row["pathname"].(string); ok {
			o[p] = row["count"]
		}
	}
	return o, nil
}
