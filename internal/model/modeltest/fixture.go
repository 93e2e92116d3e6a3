// Package modeltest provides small, hand-built risk models for tests.
//
// Forest is a classifier over temperature, condition, wind speed and
// visibility predicting classes 1, 2 and 3. Regressor is a score model over
// two user inputs plus temperature and humidity.
package modeltest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"weather2go/internal/model"
)

// Conditions is the label encoder vocabulary for "condition".
var Conditions = []string{"Clear", "Clouds", "Rain", "Snow"}

// Forest returns the classifier. Each call returns a fresh copy.
//
// Clear, mild, calm weather with good visibility predicts 1. Strong wind
// with rain predicts 2. Poor visibility below freezing predicts 3.
func Forest() *model.Forest {
	return &model.Forest{
		FormatVersion: model.SupportedFormatVersion,
		Kind:          model.KindClassifier,
		Name:          "fixture-rf",
		Classes:       []int{1, 2, 3},
		Features: []model.Feature{
			{Name: "temperature", Kind: model.FeatureNumeric},
			{Name: "condition", Kind: model.FeatureCategorical, Encoder: "condition"},
			{Name: "wind_speed", Kind: model.FeatureNumeric},
			{Name: "visibility", Kind: model.FeatureNumeric},
		},
		Trees: []model.Tree{
			{
				// visibility <= 1000 ? 3 : (wind_speed <= 10 ? 1 : 2)
				ChildrenLeft:  []int{1, -1, 3, -1, -1},
				ChildrenRight: []int{2, -1, 4, -1, -1},
				Feature:       []int{3, -2, 2, -2, -2},
				Threshold:     []float64{1000, -2, 10, -2, -2},
				Value:         [][]float64{{9, 8, 6}, {0, 1, 4}, {9, 7, 2}, {8, 1, 1}, {1, 6, 1}},
			},
			{
				// temperature <= 0 ? 3 : (condition <= Clouds ? 1 : 2)
				ChildrenLeft:  []int{1, -1, 3, -1, -1},
				ChildrenRight: []int{2, -1, 4, -1, -1},
				Feature:       []int{0, -2, 1, -2, -2},
				Threshold:     []float64{0, -2, 1.5, -2, -2},
				Value:         [][]float64{{1, 3, 4}, {0, 1, 3}, {1, 2, 1}, {1, 0, 0}, {0, 2, 1}},
			},
		},
	}
}

// Regressor returns a score model. Each call returns a fresh copy.
func Regressor() *model.Forest {
	return &model.Forest{
		FormatVersion: model.SupportedFormatVersion,
		Kind:          model.KindRegressor,
		Name:          "fixture-score",
		Features: []model.Feature{
			{Name: "feature1", Kind: model.FeatureNumeric},
			{Name: "feature2", Kind: model.FeatureNumeric},
			{Name: "temperature", Kind: model.FeatureNumeric},
			{Name: "humidity", Kind: model.FeatureNumeric},
		},
		Trees: []model.Tree{
			{
				// temperature <= 0 ? 0.9 : (humidity <= 80 ? (feature1 <= 5 ? 0.1 : 0.4) : 0.5)
				ChildrenLeft:  []int{1, -1, 3, 5, -1, -1, -1},
				ChildrenRight: []int{2, -1, 4, 6, -1, -1, -1},
				Feature:       []int{2, -2, 3, 0, -2, -2, -2},
				Threshold:     []float64{0, -2, 80, 5, -2, -2, -2},
				Value:         [][]float64{{0.5}, {0.9}, {0.3}, {0.2}, {0.5}, {0.1}, {0.4}},
			},
		},
	}
}

// Encoder returns the condition label encoder.
func Encoder() *model.LabelEncoder {
	enc, err := model.NewLabelEncoder("condition", Conditions)
	if err != nil {
		panic(err)
	}
	return enc
}

// Bundle returns the classifier with its encoder and no scaler.
func Bundle(t testing.TB) *model.Bundle {
	t.Helper()
	b, err := model.NewBundle(Forest(), []*model.LabelEncoder{Encoder()}, nil)
	if err != nil {
		t.Fatalf("fixture bundle: %v", err)
	}
	return b
}

// RegressorBundle returns the score model.
func RegressorBundle(t testing.TB) *model.Bundle {
	t.Helper()
	b, err := model.NewBundle(Regressor(), nil, nil)
	if err != nil {
		t.Fatalf("fixture bundle: %v", err)
	}
	return b
}

// WriteArtifacts writes the classifier and encoder as JSON files into dir
// and returns their paths.
func WriteArtifacts(t testing.TB, dir string) model.Paths {
	t.Helper()
	paths := model.Paths{
		Model:   filepath.Join(dir, "rf_model.json"),
		Encoder: filepath.Join(dir, "label_encoder.json"),
	}
	WriteJSON(t, paths.Model, Forest())
	WriteJSON(t, paths.Encoder, Encoder())
	return paths
}

// WriteJSON marshals v into path.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
