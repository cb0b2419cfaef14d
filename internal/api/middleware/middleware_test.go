package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Use(RequestLogger(logger))
	r.Put("/api/v1/admin/profiles/{userID}/role", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	router := newTestRouter(testLogger())
	const pattern = "/api/v1/admin/profiles/{userID}/role"

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPut, pattern, "409"))
	for _, id := range []string{"u-1", "u-2", "u-3"} {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/profiles/"+id+"/role", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPut, pattern, "409"))

	if after-before != 3 {
		t.Errorf("прирост счётчика = %v, ожидается 3", after-before)
	}
}

func TestMetricsMiddleware_UnknownPath(t *testing.T) {
	router := newTestRouter(testLogger())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, pathOther, "404"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/abc", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, pathOther, "404"))

	if after-before != 1 {
		t.Errorf("прирост счётчика other = %v, ожидается 1", after-before)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		wantLevel string
		wantCode  float64
	}{
		{"успех", http.MethodGet, "/health/live", "INFO", 200},
		{"конфликт", http.MethodPut, "/api/v1/admin/profiles/u-1/role", "WARN", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			router := newTestRouter(logger)

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("запись лога не JSON: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, ожидается %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != tt.wantCode {
				t.Errorf("status = %v, ожидается %v", entry["status"], tt.wantCode)
			}
			if entry["path"] != tt.path {
				t.Errorf("path = %v", entry["path"])
			}
		})
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := newResponseWriter(rr)
	_, _ = rw.Write([]byte("body"))
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, ожидается 200 после Write", rw.statusCode)
	}
	if rw.written != 4 {
		t.Errorf("written = %d, ожидается 4", rw.written)
	}
}
