package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather2go/internal/assess"
	"weather2go/internal/config"
	"weather2go/internal/model"
	"weather2go/internal/model/modeltest"
	"weather2go/internal/risk"
	"weather2go/internal/types"
)

const chicagoPayload = `{
  "name": "Chicago",
  "dt": 1767268800,
  "weather": [{"main": "Clear", "description": "clear sky"}],
  "main": {"temp": 22.5, "humidity": 60},
  "wind": {"speed": 3.2},
  "visibility": 10000
}`

func testConfig(t *testing.T, weatherURL string) *config.Config {
	t.Helper()
	paths := modeltest.WriteArtifacts(t, t.TempDir())
	return &config.Config{
		Environment: "local",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		Weather: config.WeatherConfig{
			APIKey:    "test-key",
			BaseURL:   weatherURL,
			UserAgent: "Weather2Go/test",
		},
		Model: config.ModelConfig{
			Path:        paths.Model,
			EncoderPath: paths.Encoder,
			Preload:     true,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_LocalWiringAssessesCity(t *testing.T) {
	var userAgent string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(chicagoPayload))
	}))
	defer upstream.Close()

	a, err := New(context.Background(), testConfig(t, upstream.URL), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Preload(context.Background()))
	assert.True(t, a.Loader.Loaded())

	got, err := a.Service.Assess(context.Background(), assess.Request{Name: "Ada", City: "Chicago"})
	require.NoError(t, err)
	assert.Equal(t, risk.Safe, got.Combined)
	assert.Nil(t, got.PersistedAt, "no sinks are configured")
	assert.Equal(t, "Weather2Go/test", userAgent)
}

func TestNew_HealthProbesWithoutDatabase(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, "http://127.0.0.1:1"), discardLogger())
	require.NoError(t, err)

	probes := a.HealthProbes()
	require.Len(t, probes, 1)
	assert.Equal(t, "model", probes[0].Name())
	assert.NoError(t, probes[0].Check(context.Background()))
}

func TestPreload_FailureIsReturnedAndRetried(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Model.Path = t.TempDir() + "/missing.json"

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	err = a.Preload(context.Background())
	assert.Equal(t, types.ErrCodeInternalArtifactLoad, types.CodeOf(err))
	assert.False(t, a.Loader.Loaded())
}

func TestPreload_Disabled(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Model.Preload = false

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	require.NoError(t, a.Preload(context.Background()))
	assert.False(t, a.Loader.Loaded())
}

func TestNew_RequiresConfigAndLogger(t *testing.T) {
	_, err := New(context.Background(), nil, discardLogger())
	assert.Error(t, err)
	_, err = New(context.Background(), &config.Config{}, nil)
	assert.Error(t, err)
}

func TestUsesS3(t *testing.T) {
	assert.False(t, usesS3(model.Paths{Model: "/models/rf_model.json"}))
	assert.True(t, usesS3(model.Paths{Model: "/models/rf_model.json", Scaler: "s3://bucket/scaler.json"}))
}
