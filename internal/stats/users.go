package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/expr"
	"github.com/vinceanalytics/tally/internal/filters"
	"github.com/vinceanalytics/tally/internal/results"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	// MaxPage keeps the offset far from overflowing.
	MaxPage = 1 << 20
)

type Users struct {
	Query
	// Page starts at 1.
	Page  int
	Limit int
}

// Select groups events per visitor. Aliases never shadow event columns, the
// store would otherwise substitute them inside WHERE.
func (r *Users) Select(now time.Time) (*expr.Select, error) {
	page, limit := r.Page, r.Limit
	switch {
	case page == 0:
		page = 1
	case page < 0 || page > MaxPage:
		return nil, core.ErrValidation.New("page must be between 1 and " + strconv.Itoa(MaxPage))
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0 || limit > MaxLimit:
		return nil, core.ErrValidation.New("limit must be between 1 and 200")
	}
	where, err := r.where(now)
	if err != nil {
		return nil, err
	}
	user, identified := expr.Col("user_id"), expr.Col("identified_user_id")
	return &expr.Select{
		Columns: []expr.Expr{
			user,
			identified,
			expr.As{Expr: expr.Fn("if", expr.Compare(identified, expr.Ne, expr.Str("")), identified, user), Name: "effective_user_id"},
			expr.As{Expr: expr.Fn("uniq", expr.Col("session_id")), Name: "sessions"},
			expr.As{Expr: expr.Fn("countIf", expr.Compare(expr.Col("type"), expr.Eq, expr.Str("pageview"))), Name: "pageviews"},
			expr.As{Expr: expr.Fn("min", expr.Col("timestamp")), Name: "first_seen"},
			expr.As{Expr: expr.Fn("max", expr.Col("timestamp")), Name: "last_seen"},
		},
		From:    filters.Table,
		Where:   where,
		GroupBy: []expr.Expr{user, identified},
		OrderBy: []expr.Expr{expr.Desc{Expr: expr.Col("last_seen")}},
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}, nil
}

// Users lists visitors with their traits.
func (s *Service) Users(ctx context.Context, r *Users) ([]results.Row, error) {
	sel, err := r.Select(core.Now(ctx))
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, statement("users", sel), results.Default)
	if err != nil {
		return nil, err
	}
	if s.Traits == nil {
		return rows, nil
	}
	return s.Traits.Enrich(ctx, rows, r.Site)
}
