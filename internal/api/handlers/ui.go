package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"weather2go/internal/assess"
	"weather2go/internal/core"
	"weather2go/internal/features"
	"weather2go/internal/types"
)

//go:embed templates/index.html
var templateFS embed.FS

// maxFormSize bounds the UI form body.
const maxFormSize = 64 << 10

// inputField is one user-supplied model feature rendered as a number input.
type inputField struct {
	Name  string
	Value string
}

// page is the view model of templates/index.html.
type page struct {
	Name   string
	City   string
	City2  string
	Inputs []inputField
	Result *assess.Assessment
	Error  string
}

// UIHandler serves the HTML form. Only the message of a failure is shown,
// never a tier.
type UIHandler struct {
	service AssessmentService
	logger  *slog.Logger
	tmpl    *template.Template
}

// NewUIHandler parses the embedded template.
func NewUIHandler(svc AssessmentService, logger *slog.Logger) (*UIHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &UIHandler{service: svc, logger: logger, tmpl: tmpl}, nil
}

// RegisterRoutes mounts GET / and POST /.
func (h *UIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleForm)
	r.Post("/", h.HandleSubmit)
}

// HandleForm renders an empty form with one input per user-supplied model
// feature.
func (h *UIHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	p := &page{}
	inputs, err := h.inputNames(r)
	if err != nil {
		h.render(w, r, core.AsAppError(err).HTTPStatus(), withError(p, err))
		return
	}
	for _, name := range inputs {
		p.Inputs = append(p.Inputs, inputField{Name: name})
	}
	h.render(w, r, http.StatusOK, p)
}

// HandleSubmit runs an assessment from the posted form.
func (h *UIHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, withError(&page{}, types.NewAppError(
			types.ErrCodeValidationInvalidInput, "the form could not be read", err,
		)))
		return
	}

	p := &page{
		Name:  strings.TrimSpace(r.PostForm.Get("name")),
		City:  strings.TrimSpace(r.PostForm.Get("city")),
		City2: strings.TrimSpace(r.PostForm.Get("city2")),
	}

	names, err := h.inputNames(r)
	if err != nil {
		h.render(w, r, core.AsAppError(err).HTTPStatus(), withError(p, err))
		return
	}

	req := assess.Request{Name: p.Name, City: p.City, City2: p.City2}
	for _, name := range names {
		raw := strings.TrimSpace(r.PostForm.Get(name))
		p.Inputs = append(p.Inputs, inputField{Name: name, Value: raw})
		if raw == "" {
			continue
		}
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			h.render(w, r, http.StatusBadRequest, withError(p, types.NewAppError(
				types.ErrCodeValidationInvalidInput, name+" must be a number", perr,
			)))
			return
		}
		if req.Inputs == nil {
			req.Inputs = make(map[string]float64, len(names))
		}
		req.Inputs[name] = v
	}

	a, err := h.service.Assess(r.Context(), req)
	if err != nil {
		h.render(w, r, core.AsAppError(err).HTTPStatus(), withError(p, err))
		return
	}

	p.Result = a
	h.render(w, r, http.StatusOK, p)
}

// inputNames returns the user-supplied features of the loaded model.
func (h *UIHandler) inputNames(r *http.Request) ([]string, error) {
	bundle, err := h.service.Model(r.Context())
	if err != nil {
		return nil, err
	}
	schema, err := features.NewSchema(bundle)
	if err != nil {
		return nil, err
	}
	return schema.Inputs(), nil
}

func withError(p *page, err error) *page {
	appErr := core.AsAppError(err)
	p.Error = appErr.Message
	p.Result = nil
	return p
}

func (h *UIHandler) render(w http.ResponseWriter, r *http.Request, status int, p *page) {
	if p.Error != "" && status >= http.StatusInternalServerError {
		types.LoggerFromContext(r.Context(), h.logger).ErrorContext(r.Context(), "ui request failed", "error", p.Error)
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, p); err != nil {
		types.LoggerFromContext(r.Context(), h.logger).ErrorContext(r.Context(), "template render failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
