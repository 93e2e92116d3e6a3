package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"weather2go/internal/config"
	"weather2go/internal/types"
)

func newRoutedServer(t *testing.T, cfg *config.Config) (*Server, *MockMetricsCollector) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Environment: "local"}
	}
	srv, err := NewServer(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	collector := &MockMetricsCollector{}
	srv.Metrics = collector
	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html></html>"))
		})
	})
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/weather", func(w http.ResponseWriter, r *http.Request) {
			Data(w, r, http.StatusOK, map[string]string{"city": r.URL.Query().Get("city")})
		})
		r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
				Error(w, r, types.NewAppError(types.ErrCodeUpstreamWeather, "timed out", r.Context().Err()))
			case <-time.After(time.Second):
				w.WriteHeader(http.StatusOK)
			}
		})
		r.Get("/panic", func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})
		r.Get("/logger", func(w http.ResponseWriter, r *http.Request) {
			if types.LoggerFromContext(r.Context(), nil) == srv.Logger {
				t.Error("expected a request-scoped logger in the context")
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
	srv.MountRoutes()
	return srv, collector
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMountRoutes_MountsRootV1AndHealth(t *testing.T) {
	srv, _ := newRoutedServer(t, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/v1/weather?city=Chicago", http.StatusOK},
		{"/health", http.StatusOK},
	}
	for _, tt := range tests {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestMountRoutes_NotFoundUsesErrorEnvelope(t *testing.T) {
	srv, _ := newRoutedServer(t, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeNotFoundRoute) {
		t.Errorf("code = %q", body.Error.Code)
	}
	if body.Error.RequestID == "" {
		t.Error("error envelope should carry the request ID")
	}
}

func TestMountRoutes_MethodNotAllowed(t *testing.T) {
	srv, _ := newRoutedServer(t, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodDelete, "/v1/weather", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(types.ErrCodeMethodNotAllowed)) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMountRoutes_RequestIDGeneratedAndPropagated(t *testing.T) {
	srv, _ := newRoutedServer(t, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a generated X-Request-Id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-from-client")
	rec = serve(srv, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-from-client" {
		t.Errorf("X-Request-Id = %q, want the client value", got)
	}
}

func TestRequestIDMiddleware_RejectsOversizedID(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", maxRequestIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "" || len(seen) > maxRequestIDLength {
		t.Errorf("request ID = %q, want a freshly generated one", seen)
	}
}

func TestMountRoutes_PanicRecovered(t *testing.T) {
	srv, _ := newRoutedServer(t, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("panic body is not valid JSON: %v (%s)", err, rec.Body.String())
	}
	if body.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestMountRoutes_RequestTimeoutFromConfig(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{RequestTimeout: 20 * time.Millisecond}}
	srv, _ := newRoutedServer(t, cfg)

	start := time.Now()
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/slow", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("request took %v, expected the timeout to cut it short", elapsed)
	}
}

func TestMountRoutes_InjectsRequestLogger(t *testing.T) {
	srv, _ := newRoutedServer(t, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/logger", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestMountRoutes_MetricsUseRoutePattern(t *testing.T) {
	srv, collector := newRoutedServer(t, nil)

	serve(srv, httptest.NewRequest(http.MethodGet, "/v1/weather?city=Chicago", nil))

	calls := collector.Calls()
	if len(calls) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(calls))
	}
	if calls[0].Endpoint != "/v1/weather" || calls[0].Status != "200" || calls[0].Method != http.MethodGet {
		t.Errorf("recorded %+v", calls[0])
	}
}

func TestMountRoutes_DefaultsWhenConfigEmpty(t *testing.T) {
	srv, _ := newRoutedServer(t, &config.Config{})
	if srv.requestTimeout() != defaultRequestTimeout {
		t.Errorf("requestTimeout = %v", srv.requestTimeout())
	}
	if origins := srv.corsAllowedOrigins(); len(origins) != 1 || origins[0] != "*" {
		t.Errorf("corsAllowedOrigins = %v", origins)
	}
}
