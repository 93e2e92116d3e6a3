// Package assess runs the driving-risk pipeline for one submission: load the
// model, then for each city fetch weather, assemble features, predict and
// tier, then combine the route and persist the outcome.
//
// The pipeline is single-shot and fails fast. Any error aborts the remaining
// steps; nothing is retried, queued or cached beyond the model itself.
package assess

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"weather2go/internal/features"
	"weather2go/internal/metrics"
	"weather2go/internal/model"
	"weather2go/internal/risk"
	"weather2go/internal/types"
)

// ModelSource yields the loaded model bundle. *model.Loader satisfies it.
type ModelSource interface {
	Get(ctx context.Context) (*model.Bundle, error)
}

// WeatherSource looks up current weather. *weather.Client satisfies it.
type WeatherSource interface {
	Current(ctx context.Context, city string) (*types.WeatherObservation, error)
}

// ResultSink stores one result per submission.
type ResultSink interface {
	Record(ctx context.Context, res types.PersistedResult) error
	Name() string
}

// StructValidator validates tagged request structs.
type StructValidator interface {
	ValidateStruct(s any) error
}

// Metrics is the telemetry the pipeline emits.
type Metrics interface {
	RecordAssessment(ctx context.Context, riskLevel string)
	RecordWeatherFailure(ctx context.Context, code types.ErrorCode)
	RecordPredictionLatency(ctx context.Context, duration time.Duration)
}

// Request is one user submission.
type Request struct {
	Name   string             `json:"name" validate:"max=200"`
	City   string             `json:"city" validate:"required,max=100"`
	City2  string             `json:"city2,omitempty" validate:"max=100"`
	Inputs map[string]float64 `json:"inputs,omitempty" validate:"dive,gte=0"`
}

// Cities returns the trimmed, non-empty cities in route order.
func (r Request) Cities() []string {
	cities := []string{strings.TrimSpace(r.City)}
	if c2 := strings.TrimSpace(r.City2); c2 != "" {
		cities = append(cities, c2)
	}
	return cities
}

// Assessment is the outcome of one submission.
type Assessment struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Model    string     `json:"model"`
	Legs     []risk.Leg `json:"legs"`
	Combined risk.Tier  `json:"combined"`
	// Decisive is the index in Legs of the city that set Combined.
	Decisive    int        `json:"decisive_leg"`
	PersistedAt *time.Time `json:"persisted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Route reports whether two cities were assessed.
func (a *Assessment) Route() bool {
	return len(a.Legs) > 1
}

// Config wires a Service.
type Config struct {
	Models    ModelSource
	Weather   WeatherSource
	Sinks     []ResultSink
	Validator StructValidator
	Metrics   Metrics
	Logger    *slog.Logger
	Clock     types.Clock
}

// Service runs assessments. It is safe for concurrent use.
type Service struct {
	models    ModelSource
	weather   WeatherSource
	sinks     []ResultSink
	validator StructValidator
	metrics   Metrics
	logger    *slog.Logger
	clock     types.Clock
}

// NewService creates a Service. Sinks may be empty, in which case results
// are not persisted.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		models:    cfg.Models,
		weather:   cfg.Weather,
		sinks:     cfg.Sinks,
		validator: cfg.Validator,
		metrics:   recorder,
		logger:    logger,
		clock:     clock,
	}
}

// Assess validates req and runs the pipeline. Errors are *types.AppError.
func (s *Service) Assess(ctx context.Context, req Request) (*Assessment, error) {
	if s.validator != nil {
		if err := s.validator.ValidateStruct(req); err != nil {
			return nil, err
		}
	}
	cities := req.Cities()
	if cities[0] == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "city is required", nil)
	}

	logger := types.LoggerFromContext(ctx, s.logger)

	bundle, err := s.models.Get(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "model unavailable", "error", err)
		return nil, err
	}
	assembler, err := features.NewAssembler(bundle)
	if err != nil {
		return nil, err
	}

	a := &Assessment{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Model:     bundle.Model.Name,
		Legs:      make([]risk.Leg, 0, len(cities)),
		CreatedAt: s.clock.Now(),
	}

	for _, city := range cities {
		leg, err := s.assessCity(ctx, bundle, assembler, city, req.Inputs)
		if err != nil {
			logger.WarnContext(ctx, "assessment aborted",
				"city", city,
				"code", types.CodeOf(err),
				"error", err,
			)
			return nil, err
		}
		a.Legs = append(a.Legs, leg)
	}

	a.Decisive = risk.Worst(a.Legs)
	a.Combined = a.Legs[a.Decisive].Tier

	if err := s.persist(ctx, a); err != nil {
		return nil, err
	}

	s.metrics.RecordAssessment(ctx, a.Combined.Level)
	logger.InfoContext(ctx, "assessment complete",
		"assessment_id", a.ID,
		"cities", len(a.Legs),
		"risk_level", a.Combined.Level,
		"persisted", a.PersistedAt != nil,
	)
	return a, nil
}

// Weather returns the current observation for city without running the
// model.
func (s *Service) Weather(ctx context.Context, city string) (*types.WeatherObservation, error) {
	obs, err := s.weather.Current(ctx, city)
	if err != nil {
		s.metrics.RecordWeatherFailure(ctx, types.CodeOf(err))
		return nil, err
	}
	return obs, nil
}

// Model returns the loaded model bundle.
func (s *Service) Model(ctx context.Context) (*model.Bundle, error) {
	return s.models.Get(ctx)
}

func (s *Service) assessCity(ctx context.Context, bundle *model.Bundle, assembler *features.Assembler, city string, inputs map[string]float64) (risk.Leg, error) {
	obs, err := s.Weather(ctx, city)
	if err != nil {
		return risk.Leg{}, err
	}

	vec, err := assembler.Assemble(obs, inputs)
	if err != nil {
		return risk.Leg{}, err
	}

	start := s.clock.Now()
	pred, err := bundle.Model.Predict(vec)
	if err != nil {
		return risk.Leg{}, err
	}
	s.metrics.RecordPredictionLatency(ctx, s.clock.Now().Sub(start))

	tier, err := risk.ForPrediction(pred)
	if err != nil {
		return risk.Leg{}, err
	}

	return risk.Leg{Observation: obs, Prediction: pred, Tier: tier}, nil
}

func (s *Service) persist(ctx context.Context, a *Assessment) error {
	if len(s.sinks) == 0 {
		return nil
	}

	res := PersistedResultFor(a)
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, res); err != nil {
			types.LoggerFromContext(ctx, s.logger).ErrorContext(ctx, "failed to persist result",
				"sink", sink.Name(),
				"assessment_id", a.ID,
				"error", err,
			)
			if types.CodeOf(err) != types.ErrCodeInternalPersistence {
				return types.NewAppError(types.ErrCodeInternalPersistence, "failed to save result", err)
			}
			return err
		}
	}
	persistedAt := res.Timestamp
	a.PersistedAt = &persistedAt
	return nil
}

// PersistedResultFor flattens a into the row stored for it. For a route the
// row describes the city that set the combined tier. The risk score is the
// predicted class for class models and the raw score for score models.
func PersistedResultFor(a *Assessment) types.PersistedResult {
	leg := a.Legs[a.Decisive]
	score := leg.Prediction.Score
	if leg.Prediction.Kind == types.OutputClass {
		score = float64(leg.Prediction.Class)
	}
	return types.PersistedResult{
		Timestamp:        a.CreatedAt,
		Name:             a.Name,
		City:             leg.Observation.City,
		WeatherCondition: leg.Observation.Condition,
		Temperature:      leg.Observation.Temperature,
		Humidity:         leg.Observation.Humidity,
		RiskScore:        score,
		RiskLevel:        a.Combined.Level,
	}
}
