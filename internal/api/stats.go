package api

import (
	"net/http"

	"github.com/vinceanalytics/tally/internal/render"
	"github.com/vinceanalytics/tally/internal/stats"
	"github.com/vinceanalytics/tally/internal/timerange"
)

func (a *API) PageviewCounts(w http.ResponseWriter, r *http.Request) {
	q, err := query(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	req := &stats.PageviewCounts{Query: q, Prefix: r.URL.Query().Get("prefix")}
	if req.Depth, err = optionalDepth(r); err != nil {
		render.Fail(w, r, err)
		return
	}
	o, err := a.Stats.PageviewCounts(r.Context(), req)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, o)
}

func (a *API) Pageviews(w http.ResponseWriter, r *http.Request) {
	q, err := query(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	b, err := timerange.ParseBucket(r.URL.Query().Get("bucket"))
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	o, err := a.Stats.Pageviews(r.Context(), &stats.Pageviews{Query: q, Bucket: b})
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, o)
}

func (a *API) Users(w http.ResponseWriter, r *http.Request) {
	q, err := query(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	req := &stats.Users{Query: q}
	if req.Page, err = intParam(r.URL.Query(), "page"); err != nil {
		render.Fail(w, r, err)
		return
	}
	if req.Limit, err = intParam(r.URL.Query(), "limit"); err != nil {
		render.Fail(w, r, err)
		return
	}
	o, err := a.Stats.Users(r.Context(), req)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, o)
}
