// Package handlers contains the HTTP handlers of Weather2Go: the JSON API
// mounted under /v1 and the server-rendered form at /.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"weather2go/internal/assess"
	"weather2go/internal/core"
	"weather2go/internal/features"
	"weather2go/internal/model"
	"weather2go/internal/types"
)

// AssessmentService is the pipeline contract the handlers depend on.
// *assess.Service satisfies it.
type AssessmentService interface {
	Assess(ctx context.Context, req assess.Request) (*assess.Assessment, error)
	Weather(ctx context.Context, city string) (*types.WeatherObservation, error)
	Model(ctx context.Context) (*model.Bundle, error)
}

// AssessmentHandler serves the JSON API.
type AssessmentHandler struct {
	service AssessmentService
	logger  *slog.Logger
}

// NewAssessmentHandler creates an AssessmentHandler.
func NewAssessmentHandler(svc AssessmentService, logger *slog.Logger) *AssessmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the JSON endpoints. The caller mounts the router
// under /v1.
func (h *AssessmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/assessments", h.HandleCreate)
	r.Get("/weather", h.HandleWeather)
	r.Get("/model", h.HandleModel)
}

// HandleCreate handles POST /v1/assessments.
func (h *AssessmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req assess.Request
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	a, err := h.service.Assess(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.Data(w, r, http.StatusCreated, a)
}

// HandleWeather handles GET /v1/weather?city=.
func (h *AssessmentHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"city query parameter is required",
			nil,
		))
		return
	}

	obs, err := h.service.Weather(r.Context(), city)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.Data(w, r, http.StatusOK, obs)
}

// ModelInfo describes the loaded model for GET /v1/model.
type ModelInfo struct {
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Output   types.OutputKind `json:"output"`
	Classes  []int            `json:"classes,omitempty"`
	Trees    int              `json:"trees"`
	Features []FeatureInfo    `json:"features"`
	Inputs   []string         `json:"inputs"`
	Scaled   bool             `json:"scaled"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// FeatureInfo is one schema field of ModelInfo.
type FeatureInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Source   string   `json:"source"`
	Encoding []string `json:"encoding,omitempty"`
}

// HandleModel handles GET /v1/model.
func (h *AssessmentHandler) HandleModel(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Model(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	info, err := describeModel(bundle)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.Data(w, r, http.StatusOK, info)
}

func describeModel(bundle *model.Bundle) (*ModelInfo, error) {
	schema, err := features.NewSchema(bundle)
	if err != nil {
		return nil, err
	}

	info := &ModelInfo{
		Name:     bundle.Model.Name,
		Kind:     bundle.Model.Kind,
		Output:   bundle.Model.OutputKind(),
		Classes:  bundle.Model.Classes,
		Trees:    len(bundle.Model.Trees),
		Inputs:   append([]string{}, schema.Inputs()...),
		Scaled:   bundle.Scaler != nil,
		LoadedAt: bundle.LoadedAt,
	}
	for _, f := range schema.Fields() {
		fi := FeatureInfo{Name: f.Name, Kind: f.Kind, Source: f.Source.String()}
		if f.Encoder != nil {
			fi.Encoding = f.Encoder.Classes
		}
		info.Features = append(info.Features, fi)
	}
	return info, nil
}
