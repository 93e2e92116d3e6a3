package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather2go/internal/model"
	"weather2go/internal/model/modeltest"
	"weather2go/internal/types"
)

func chicago() *types.WeatherObservation {
	return &types.WeatherObservation{
		City:        "Chicago",
		Temperature: 22.5,
		Humidity:    60,
		WindSpeed:   3.2,
		Visibility:  10000,
		Condition:   "Clear",
		ObservedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSchema_FromClassifier(t *testing.T) {
	s, err := NewSchema(modeltest.Bundle(t))
	require.NoError(t, err)

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []string{Temperature, Condition, WindSpeed, Visibility}, s.Names())
	assert.Empty(t, s.Inputs())
	assert.True(t, s.Has(Condition))
	assert.False(t, s.Has("feature1"))

	fields := s.Fields()
	assert.Equal(t, SourceObservation, fields[1].Source)
	assert.NotNil(t, fields[1].Encoder)
}

func TestSchema_FromRegressorWithInputs(t *testing.T) {
	s, err := NewSchema(modeltest.RegressorBundle(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"feature1", "feature2"}, s.Inputs())
	assert.Equal(t, "input", s.Fields()[0].Source.String())
}

func TestSchema_KindMismatch(t *testing.T) {
	f := modeltest.Regressor()
	f.Features[2].Kind = model.FeatureCategorical
	f.Features[2].Encoder = "condition"
	b, err := model.NewBundle(f, []*model.LabelEncoder{modeltest.Encoder()}, nil)
	require.NoError(t, err)

	_, err = NewSchema(b)
	assert.Equal(t, types.ErrCodeFeatureShape, types.CodeOf(err))
}

func TestAssemble_ScenarioChicago(t *testing.T) {
	a, err := NewAssembler(modeltest.Bundle(t))
	require.NoError(t, err)

	v, err := a.Assemble(chicago(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature", "condition", "wind_speed", "visibility"}, v.Names)
	assert.Equal(t, []float64{22.5, 0, 3.2, 10000}, v.Values)
}

func TestAssemble_OrderIsStable(t *testing.T) {
	a, err := NewAssembler(modeltest.RegressorBundle(t))
	require.NoError(t, err)

	inputs := map[string]float64{"feature2": 7, "feature1": 3}
	first, err := a.Assemble(chicago(), inputs)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		next, err := a.Assemble(chicago(), inputs)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
	assert.Equal(t, []float64{3, 7, 22.5, 60}, first.Values)
}

func TestAssemble_AppliesScaler(t *testing.T) {
	scaler := &model.Scaler{Mean: []float64{20, 0, 3, 10000}, Scale: []float64{2.5, 1, 0, 1000}}
	b, err := model.NewBundle(modeltest.Forest(), []*model.LabelEncoder{modeltest.Encoder()}, scaler)
	require.NoError(t, err)
	a, err := NewAssembler(b)
	require.NoError(t, err)

	v, err := a.Assemble(chicago(), nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0, 0.2, 0}, v.Values, 1e-9)
}

func TestAssemble_Mismatches(t *testing.T) {
	a, err := NewAssembler(modeltest.RegressorBundle(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		inputs map[string]float64
	}{
		{"missing input", map[string]float64{"feature1": 1}},
		{"extra input", map[string]float64{"feature1": 1, "feature2": 2, "feature3": 3}},
		{"observation field as input", map[string]float64{"feature1": 1, "feature2": 2, "temperature": 40}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Assemble(chicago(), tc.inputs)
			assert.Equal(t, types.ErrCodeFeatureShape, types.CodeOf(err))
		})
	}
}

func TestAssemble_UnknownCondition(t *testing.T) {
	a, err := NewAssembler(modeltest.Bundle(t))
	require.NoError(t, err)

	obs := chicago()
	obs.Condition = "Tornado"
	_, err = a.Assemble(obs, nil)
	assert.Equal(t, types.ErrCodeFeatureShape, types.CodeOf(err))
}

func TestAssemble_NilObservation(t *testing.T) {
	a, err := NewAssembler(modeltest.Bundle(t))
	require.NoError(t, err)

	_, err = a.Assemble(nil, nil)
	assert.Equal(t, types.ErrCodeFeatureShape, types.CodeOf(err))
}
