package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	"weather2go/internal/assess"
	"weather2go/internal/model"
	"weather2go/internal/risk"
	"weather2go/internal/types"
)

type fakeService struct {
	bundle     *model.Bundle
	modelErr   error
	assessment *assess.Assessment
	assessErr  error
	obs        *types.WeatherObservation
	weatherErr error

	requests []assess.Request
	cities   []string
}

func (f *fakeService) Assess(_ context.Context, req assess.Request) (*assess.Assessment, error) {
	f.requests = append(f.requests, req)
	return f.assessment, f.assessErr
}

func (f *fakeService) Weather(_ context.Context, city string) (*types.WeatherObservation, error) {
	f.cities = append(f.cities, city)
	return f.obs, f.weatherErr
}

func (f *fakeService) Model(context.Context) (*model.Bundle, error) {
	return f.bundle, f.modelErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chicago() *types.WeatherObservation {
	return &types.WeatherObservation{
		City:        "Chicago",
		Temperature: 22.5,
		Humidity:    60,
		WindSpeed:   3.2,
		Visibility:  10000,
		Condition:   "Clear",
		Description: "clear sky",
		ObservedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func duluth() *types.WeatherObservation {
	return &types.WeatherObservation{
		City:        "Duluth",
		Temperature: -8,
		Humidity:    90,
		WindSpeed:   12,
		Visibility:  400,
		Condition:   "Snow",
		ObservedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func safeAssessment() *assess.Assessment {
	return &assess.Assessment{
		ID:    "a-1",
		Name:  "Ada",
		Model: "driving-risk",
		Legs: []risk.Leg{{
			Observation: chicago(),
			Prediction:  &types.RiskPrediction{Kind: types.OutputClass, Class: 1, Score: 0.9},
			Tier:        risk.Safe,
		}},
		Combined:  risk.Safe,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func routeAssessment() *assess.Assessment {
	a := safeAssessment()
	a.Legs = append(a.Legs, risk.Leg{
		Observation: duluth(),
		Prediction:  &types.RiskPrediction{Kind: types.OutputClass, Class: 3, Score: 1},
		Tier:        risk.High,
	})
	a.Combined = risk.High
	a.Decisive = 1
	return a
}

func serveRoutes(register func(chi.Router), req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
