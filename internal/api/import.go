package api

import (
	"encoding/json"
	"net/http"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/db"
	"github.com/vinceanalytics/tally/internal/render"
)

// maxUpload bounds import files.
const maxUpload = 512 << 20

type importView struct {
	ID       string          `json:"importId"`
	Platform string          `json:"platform"`
	Status   db.ImportStatus `json:"status"`
	FileName string          `json:"fileName,omitempty"`
}

func view(i *db.Import) importView {
	return importView{ID: i.ID, Platform: i.Platform, Status: i.Status, FileName: i.FileName}
}

func (a *API) ListImports(w http.ResponseWriter, r *http.Request) {
	id, err := site(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	ls, err := a.Imports.List(r.Context(), id)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	o := make([]importView, len(ls))
	for i := range ls {
		o[i] = view(&ls[i])
	}
	render.JSON(w, http.StatusOK, o)
}

func (a *API) CreateImport(w http.ResponseWriter, r *http.Request) {
	id, err := site(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	var body struct {
		Platform string `json:"platform"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		render.Fail(w, r, core.ErrValidation.New("invalid body"))
		return
	}
	imp, err := a.Imports.Create(r.Context(), id, body.Platform)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, view(imp))
}

func (a *API) UploadImport(w http.ResponseWriter, r *http.Request) {
	id, err := site(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	imp, err := a.Imports.Upload(r.Context(), id, r.PathValue("importId"),
		r.URL.Query().Get("name"), http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, view(imp))
}

func (a *API) DeleteImport(w http.ResponseWriter, r *http.Request) {
	id, err := site(r)
	if err != nil {
		render.Fail(w, r, err)
		return
	}
	if err := a.Imports.Delete(r.Context(), id, r.PathValue("importId")); err != nil {
		render.Fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"message": "Import deleted successfully"})
}
