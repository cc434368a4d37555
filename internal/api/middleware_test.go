package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("default status = %d, want 200", rw.statusCode)
	}

	rw.WriteHeader(http.StatusBadGateway)
	if rw.statusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rw.statusCode)
	}

	data := []byte(`{"error":{}}`)
	rw.Write(data)
	rw.Write(data)
	if rw.responseSize != 2*len(data) {
		t.Errorf("responseSize = %d, want %d", rw.responseSize, 2*len(data))
	}
}

func TestRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/api/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = routePattern(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/42", nil))

	if got != "/api/items/{id}" {
		t.Errorf("routePattern() = %q, want /api/items/{id}", got)
	}
}

func TestRoutePattern_NoRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/raw", nil)
	if got := routePattern(req); got != "/api/raw" {
		t.Errorf("routePattern() = %q, want /api/raw", got)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		method string
		status int
	}{
		{"ok", http.MethodGet, http.StatusOK},
		{"bad gateway", http.MethodPost, http.StatusBadGateway},
		{"server error", http.MethodPost, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("body"))
			}))

			r := chi.NewRouter()
			r.Method(tt.method, "/api/test", handler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/test", nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}
