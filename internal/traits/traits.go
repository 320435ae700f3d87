// Package traits attaches user profile traits to result rows.
package traits

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vinceanalytics/tally/internal/logger"
	"github.com/vinceanalytics/tally/internal/results"
)

const (
	// Key is the row field holding the identified user id.
	Key = "identified_user_id"
	// Field is the row field receiving traits.
	Field = "traits"
)

// Lookup fetches traits for identified users of a site in one round trip.
// Ids without a profile are absent from the result.
type Lookup interface {
	Traits(ctx context.Context, site int64, ids []string) (map[string]map[string]any, error)
}

type Enricher struct {
	Lookup Lookup
}

func New(lookup Lookup) *Enricher {
	return &Enricher{Lookup: lookup}
}

// Enrich sets Field on every row to the traits of its identified user, or nil.
// At most one lookup is made.
func (e *Enricher) Enrich(ctx context.Context, rows []results.Row, site int64) ([]results.Row, error) {
	ids := Distinct(rows)
	var found map[string]map[string]any
	if len(ids) > 0 {
		var err error
		found, err = e.Lookup.Traits(ctx, site, ids)
		if err != nil {
			return nil, fmt.Errorf("looking up traits %w", err)
		}
		logger.Get(ctx).Debug("enriched rows with traits",
			slog.Int64("site", site),
			slog.Int("ids", len(ids)),
			slog.Int("found", len(found)),
		)
	}
	for _, row := range rows {
		id, _ := row[Key].(string)
		if t, ok := found[id]; ok && id != "" {
			row[Field] = t
		} else {
			row[Field] = nil
		}
	}
	return rows, nil
}

// Distinct returns the non empty identified user ids of rows in first seen
// order.
func Distinct(rows []results.Row) []string {
	seen := make(map[string]struct{})
	var o []string
	for _, row := range rows {
		id, _ := row[Key].(string)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		o = append(o, id)
	}
	return o
}
