package features

import (
	"fmt"
	"math"
	"sort"

	"weather2go/internal/model"
	"weather2go/internal/types"
)

// Assembler builds feature vectors for one bundle.
type Assembler struct {
	schema *Schema
	scaler *model.Scaler
}

// NewAssembler creates an Assembler for b.
func NewAssembler(b *model.Bundle) (*Assembler, error) {
	schema, err := NewSchema(b)
	if err != nil {
		return nil, err
	}
	return &Assembler{schema: schema, scaler: b.Scaler}, nil
}

// Schema returns the schema the Assembler fills.
func (a *Assembler) Schema() *Schema {
	return a.schema
}

// Assemble returns the vector for obs and inputs in schema order. Categorical
// values are encoded and the scaler, when present, is applied last.
//
// Every user field must be present in inputs and every key of inputs must
// be a user field; otherwise the call fails with feature_shape_mismatch.
func (a *Assembler) Assemble(obs *types.WeatherObservation, inputs map[string]float64) (types.FeatureVector, error) {
	if obs == nil {
		return types.FeatureVector{}, types.NewAppError(types.ErrCodeFeatureShape, "no weather observation", nil)
	}

	var unknown []string
	for name := range inputs {
		i, ok := a.schema.index[name]
		if !ok || a.schema.fields[i].Source != SourceInput {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return types.FeatureVector{}, types.NewAppErrorWithDetails(
			types.ErrCodeFeatureShape,
			fmt.Sprintf("inputs not used by the model: %v", unknown),
			nil,
			map[string]any{"unexpected": unknown},
		)
	}

	values := make([]float64, a.schema.Len())
	for i, f := range a.schema.fields {
		var (
			v   float64
			err error
		)
		if f.Source == SourceInput {
			v, err = inputValue(f, inputs)
		} else {
			v, err = observationValue(f, obs)
		}
		if err != nil {
			return types.FeatureVector{}, err
		}
		values[i] = v
	}

	if a.scaler != nil {
		scaled, err := a.scaler.Transform(values)
		if err != nil {
			return types.FeatureVector{}, err
		}
		values = scaled
	}

	return types.FeatureVector{Names: a.schema.Names(), Values: values}, nil
}

func inputValue(f Field, inputs map[string]float64) (float64, error) {
	v, ok := inputs[f.Name]
	if !ok {
		return 0, shapeError(fmt.Sprintf("missing input %q", f.Name), f.Name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidInput,
			fmt.Sprintf("input %q must be a finite number", f.Name),
			nil,
			map[string]any{"field": f.Name},
		)
	}
	return v, nil
}

func observationValue(f Field, obs *types.WeatherObservation) (float64, error) {
	switch f.Name {
	case Temperature:
		return obs.Temperature, nil
	case Humidity:
		return float64(obs.Humidity), nil
	case WindSpeed:
		return obs.WindSpeed, nil
	case Visibility:
		return float64(obs.Visibility), nil
	case Condition:
		return f.Encoder.Encode(obs.Condition)
	}
	return 0, shapeError(fmt.Sprintf("no observation source for %q", f.Name), f.Name)
}
