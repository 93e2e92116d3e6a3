// Package weather fetches current conditions for a city from the
// OpenWeatherMap current-weather endpoint.
//
// Every lookup is exactly one upstream request. Failures come back as a nil
// observation and a *types.AppError; nothing is retried or cached.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weather2go/internal/external"
	"weather2go/internal/types"
)

// DefaultBaseURL is the public OpenWeatherMap API host.
const DefaultBaseURL = "http://api.openweathermap.org"

const currentPath = "/data/2.5/weather"

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// Config configures a Client.
type Config struct {
	APIKey  types.SecretString
	BaseURL string // defaults to DefaultBaseURL
	Logger  *slog.Logger
	Clock   types.Clock
}

// Client looks up current weather observations.
type Client struct {
	base    *external.BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
	clock   types.Clock
}

// NewClient creates a Client that sends requests through base.
func NewClient(base *external.BaseClient, cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Client{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		clock:   clock,
	}
}

// currentResponse is the subset of the current-weather payload we read.
type currentResponse struct {
	Name    string `json:"name"`
	Dt      int64  `json:"dt"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility *int `json:"visibility"`
}

// Current returns the current observation for city in metric units.
func (c *Client) Current(ctx context.Context, city string) (*types.WeatherObservation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "city is required", nil)
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+currentPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create weather request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.base.Do(req)
	if err != nil {
		err = c.redact(err)
		c.logger.WarnContext(ctx, "weather lookup failed",
			"city", city,
			"error", err,
		)
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamWeather,
			"weather service unavailable",
			err,
			map[string]any{"city": city},
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.upstreamError(city, "failed to read weather response", err)
	}

	c.logger.DebugContext(ctx, "weather lookup",
		"city", city,
		"status", resp.StatusCode,
		"duration_ms", c.clock.Now().Sub(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeNotFoundCity,
			fmt.Sprintf("city %q not found", city),
			nil,
			map[string]any{"city": city},
		)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.WarnContext(ctx, "weather service error",
			"city", city,
			"status", resp.StatusCode,
			"response_body", truncate(string(body), 512),
		)
		return nil, c.upstreamError(city, fmt.Sprintf("weather service returned %d", resp.StatusCode), nil)
	}

	return c.parse(city, body)
}

func (c *Client) parse(city string, body []byte) (*types.WeatherObservation, error) {
	var payload currentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, c.upstreamError(city, "malformed weather response", err)
	}
	if payload.Main == nil || payload.Main.Temp == nil || payload.Main.Humidity == nil {
		return nil, c.upstreamError(city, "weather response has no main readings", nil)
	}
	if len(payload.Weather) == 0 {
		return nil, c.upstreamError(city, "weather response has no condition", nil)
	}

	visibility := types.DefaultVisibilityMeters
	if payload.Visibility != nil {
		visibility = *payload.Visibility
	}

	observedAt := c.clock.Now()
	if payload.Dt > 0 {
		observedAt = time.Unix(payload.Dt, 0).UTC()
	}

	return &types.WeatherObservation{
		City:        city,
		Temperature: *payload.Main.Temp,
		Humidity:    int(math.Round(*payload.Main.Humidity)),
		WindSpeed:   payload.Wind.Speed,
		Visibility:  visibility,
		Condition:   payload.Weather[0].Main,
		Description: payload.Weather[0].Description,
		ObservedAt:  observedAt,
	}, nil
}

func (c *Client) upstreamError(city, msg string, err error) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeUpstreamWeather, msg, err, map[string]any{"city": city})
}

// redact strips the API key from transport errors, which embed the request
// URL.
func (c *Client) redact(err error) error {
	key := c.apiKey.Unmask()
	if key == "" {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(key), "REDACTED")
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
