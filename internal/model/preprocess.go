package model

import (
	"fmt"

	"weather2go/internal/types"
)

// LabelEncoder maps a categorical value to its index in Classes.
type LabelEncoder struct {
	Field   string   `json:"field"`
	Classes []string `json:"classes"`

	index map[string]int
}

// NewLabelEncoder builds an encoder for field. The code of a value is its
// position in classes.
func NewLabelEncoder(field string, classes []string) (*LabelEncoder, error) {
	e := &LabelEncoder{Field: field, Classes: classes}
	if err := e.build(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *LabelEncoder) build() error {
	if e.Field == "" {
		return fmt.Errorf("label encoder has no field")
	}
	if len(e.Classes) == 0 {
		return fmt.Errorf("label encoder %q has no classes", e.Field)
	}
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		if _, dup := e.index[c]; dup {
			return fmt.Errorf("label encoder %q repeats class %q", e.Field, c)
		}
		e.index[c] = i
	}
	return nil
}

// Encode returns the code for value. Values not seen at training time fail
// with feature_shape_mismatch.
func (e *LabelEncoder) Encode(value string) (float64, error) {
	code, ok := e.index[value]
	if !ok {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeFeatureShape,
			fmt.Sprintf("unknown %s value %q", e.Field, value),
			nil,
			map[string]any{"field": e.Field, "value": value},
		)
	}
	return float64(code), nil
}

// Scaler standardizes a vector: (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *Scaler) validate(width int) error {
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler mean has %d entries, scale has %d", len(s.Mean), len(s.Scale))
	}
	if len(s.Mean) != width {
		return fmt.Errorf("scaler width %d does not match model width %d", len(s.Mean), width)
	}
	return nil
}

// Transform returns a standardized copy of values. A zero scale is treated
// as one.
func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, types.NewAppError(
			types.ErrCodeFeatureShape,
			fmt.Sprintf("scaler expects %d features, got %d", len(s.Mean), len(values)),
			nil,
		)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}
