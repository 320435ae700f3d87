package render

import (
	"encoding/json"
	"net/http"

	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/logger"
)

type data struct {
	Data any `json:"data"`
}

// JSON writes v wrapped in a data envelope.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data{Data: v})
}

type err struct {
	Error any `json:"error"`
}

func ERROR(w http.ResponseWriter, code int, msg ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if len(msg) == 0 {
		msg = []any{http.StatusText(code)}
	}
	json.NewEncoder(w).Encode(err{Error: msg[0]})
}

// Fail writes e with the status of its kind. Unclassified errors are logged
// and hidden from the client.
func Fail(w http.ResponseWriter, r *http.Request, e error) {
	switch {
	case core.Is(e, core.ErrValidation):
		ERROR(w, http.StatusBadRequest, e.Error())
	case core.Is(e, core.ErrNotFound):
		ERROR(w, http.StatusNotFound, e.Error())
	case core.Is(e, core.ErrConflict):
		ERROR(w, http.StatusConflict, e.Error())
	default:
		logger.Get(r.Context()).Error("request failed", "path", r.URL.Path, "err", e)
		ERROR(w, http.StatusInternalServerError)
	}
}
