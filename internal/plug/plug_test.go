package plug

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/logger"
)

func TestPipelineOrder(t *testing.T) {
	var order []string
	mark := func(name string) Plug {
		return func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				h.ServeHTTP(w, r)
			})
		}
	}
	h := Pipeline{mark("a")}.And(mark("b")).Pass(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRequestID(t *testing.T) {
	var b bytes.Buffer
	ctx := logger.With(context.Background(), logger.New(&b, "info"))
	h := RequestID(Log(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	r := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	id := w.Header().Get(RequestIDHeader)
	require.Len(t, id, 26)
	require.Contains(t, b.String(), `"request_id":"`+id+`"`)
	require.Contains(t, b.String(), `"status":418`)

	r = httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)
	r.Header.Set(RequestIDHeader, "given")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, "given", w.Header().Get(RequestIDHeader))
}

func TestClock(t *testing.T) {
	var calls int
	ctx := core.SetNow(context.Background(), func() time.Time {
		calls++
		return time.Unix(int64(calls), 0)
	})
	var seen []time.Time
	h := Clock(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, core.Now(r.Context()), core.Now(r.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	require.Len(t, seen, 2)
	require.Equal(t, seen[0], seen[1])
	require.Equal(t, 1, calls)
}

func TestCORS(t *testing.T) {
	h := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	r := httptest.NewRequest(http.MethodOptions, "/api/sites/1/users", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/sites/1/users", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
