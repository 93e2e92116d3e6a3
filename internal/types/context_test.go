package types

import (
	"context"
	"log/slog"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")

	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-42")
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	fallback := slog.Default()
	scoped := fallback.With("request_id", "req-1")

	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback logger when none is stored")
	}
	if got := LoggerFromContext(WithLogger(context.Background(), scoped), fallback); got != scoped {
		t.Error("expected the stored logger")
	}
	if got := LoggerFromContext(context.Background(), nil); got == nil {
		t.Error("expected slog.Default when no fallback is given")
	}
}
