package core

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"weather2go/internal/config"
	"weather2go/internal/types"
)

func TestRecoverer_WritesValidEnvelope(t *testing.T) {
	srv, err := NewServer(&config.Config{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	h := srv.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("model exploded")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "id-with-\"quote\""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	detail := decodeErrorBody(t, rec)
	if detail.RequestID != `id-with-"quote"` {
		t.Errorf("request_id = %q", detail.RequestID)
	}
	if strings.Contains(rec.Body.String(), "model exploded") {
		t.Error("panic value leaked to the client")
	}
}

func TestRecoverer_RepanicsAbortHandler(t *testing.T) {
	srv, _ := NewServer(&config.Config{}, testLogger())
	h := srv.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rvr)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestLogger_RedactsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestLogger(logger, []string{"Authorization"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(types.WithRequestID(req.Context(), "req-42"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR for 5xx", entry["level"])
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["status"] != float64(http.StatusBadGateway) {
		t.Errorf("status = %v", entry["status"])
	}
	headers, _ := entry["headers"].(map[string]any)
	if headers["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization = %v", headers["Authorization"])
	}
	if headers["Accept"] != "application/json" {
		t.Errorf("Accept = %v", headers["Accept"])
	}
	if strings.Contains(buf.String(), "secret-token") {
		t.Error("secret leaked into logs")
	}
}

func TestRequestLogger_StoresLoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestLogger(logger, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		types.LoggerFromContext(r.Context(), nil).Info("inside handler")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-7"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	first, _, _ := strings.Cut(buf.String(), "\n")
	if !strings.Contains(first, `"msg":"inside handler"`) || !strings.Contains(first, `"request_id":"req-7"`) {
		t.Errorf("handler log line = %s", first)
	}
}

func TestMetricsMiddleware_NilCollectorPassesThrough(t *testing.T) {
	srv, _ := NewServer(&config.Config{}, testLogger())
	called := false
	h := srv.MetricsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("next handler not called")
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	srv, _ := NewServer(&config.Config{}, testLogger())
	collector := &MockMetricsCollector{}
	srv.Metrics = collector

	h := srv.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything?x=1", nil))

	calls := collector.Calls()
	if len(calls) != 1 || calls[0].Endpoint != "unmatched" || calls[0].Status != "418" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	srv, _ := NewServer(&config.Config{}, testLogger())
	rec := httptest.NewRecorder()
	srv.SecurityHeadersMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": contentSecurityPolicy,
	}
	for name, value := range want {
		if got := rec.Header().Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestCORS_Wildcard(t *testing.T) {
	h := NewCORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/model", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials must not be allowed with a wildcard origin, got %q", got)
	}
}

func TestCORS_AllowList(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed := httptest.NewRequest(http.MethodGet, "/", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, allowed)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Errorf("Vary = %q", rec.Header().Get("Vary"))
	}

	denied := httptest.NewRequest(http.MethodGet, "/", nil)
	denied.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, denied)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Allow-Origin %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := NewCORSMiddleware([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/v1/assessments", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
}

func TestEscapeJSON(t *testing.T) {
	got := escapeJSON("a\"b\\c\nd\x01")
	want := `a\"b\\c\nd\u0001`
	if got != want {
		t.Errorf("escapeJSON = %q, want %q", got, want)
	}
}
