// Package features turns a weather observation and user inputs into the
// ordered vector the risk model was trained on.
package features

import (
	"fmt"

	"weather2go/internal/model"
	"weather2go/internal/types"
)

// Observation-sourced feature names.
const (
	Temperature = "temperature"
	Humidity    = "humidity"
	WindSpeed   = "wind_speed"
	Visibility  = "visibility"
	Condition   = "condition"
)

// Source tells where a field's value comes from.
type Source int

const (
	// SourceObservation fields are read from the weather observation.
	SourceObservation Source = iota
	// SourceInput fields are supplied by the user.
	SourceInput
)

func (s Source) String() string {
	if s == SourceInput {
		return "input"
	}
	return "observation"
}

// Field is one named, typed position in the vector.
type Field struct {
	Name    string
	Kind    string
	Source  Source
	Encoder *model.LabelEncoder
}

// Schema is the ordered field list of a model. It is immutable.
type Schema struct {
	fields []Field
	index  map[string]int
}

var observationKinds = map[string]string{
	Temperature: model.FeatureNumeric,
	Humidity:    model.FeatureNumeric,
	WindSpeed:   model.FeatureNumeric,
	Visibility:  model.FeatureNumeric,
	Condition:   model.FeatureCategorical,
}

// NewSchema derives the schema from a loaded bundle. Observation fields must
// carry the kind their source produces, and user inputs must be numeric.
func NewSchema(b *model.Bundle) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, b.Model.NumFeatures()),
		index:  make(map[string]int, b.Model.NumFeatures()),
	}
	for i, feat := range b.Model.Features {
		f := Field{Name: feat.Name, Kind: feat.Kind, Source: SourceInput}
		if kind, ok := observationKinds[feat.Name]; ok {
			if kind != feat.Kind {
				return nil, shapeError(fmt.Sprintf("feature %q must be %s, model declares %s", feat.Name, kind, feat.Kind), feat.Name)
			}
			f.Source = SourceObservation
		} else if feat.Kind != model.FeatureNumeric {
			return nil, shapeError(fmt.Sprintf("user input %q must be numeric", feat.Name), feat.Name)
		}
		if feat.Kind == model.FeatureCategorical {
			f.Encoder = b.Encoders[feat.Encoder]
			if f.Encoder == nil {
				return nil, shapeError(fmt.Sprintf("categorical feature %q has no encoder", feat.Name), feat.Name)
			}
		}
		s.fields = append(s.fields, f)
		s.index[feat.Name] = i
	}
	return s, nil
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns the fields in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Inputs returns the names of user-supplied fields, in order.
func (s *Schema) Inputs() []string {
	var out []string
	for _, f := range s.fields {
		if f.Source == SourceInput {
			out = append(out, f.Name)
		}
	}
	return out
}

// Has reports whether name is a field.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func shapeError(msg, field string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeFeatureShape, msg, nil, map[string]any{"field": field})
}
