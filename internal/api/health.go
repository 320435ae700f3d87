package api

import (
	"net/http"

	"github.com/vinceanalytics/tally/internal/render"
	"github.com/vinceanalytics/tally/internal/version"
)

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.Ping != nil {
		if err := a.Ping(r); err != nil {
			render.ERROR(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]string{"version": version.Read().String()})
}
