package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather2go/internal/model"
	"weather2go/internal/types"
)

func TestLabelEncoder(t *testing.T) {
	enc, err := model.NewLabelEncoder("condition", []string{"Clear", "Clouds", "Rain"})
	require.NoError(t, err)

	code, err := enc.Encode("Rain")
	require.NoError(t, err)
	assert.Equal(t, 2.0, code)

	_, err = enc.Encode("Tornado")
	assert.Equal(t, types.ErrCodeFeatureShape, types.CodeOf(err))
}

func TestLabelEncoder_Invalid(t *testing.T) {
	_, err := model.NewLabelEncoder("", []string{"Clear"})
	assert.Error(t, err)

	_, err = model.NewLabelEncoder("condition", nil)
	assert.Error(t, err)

	_, err = model.NewLabelEncoder("condition", []string{"Clear", "Clear"})
	assert.Error(t, err)
}

func TestScalerTransform(t *testing.T) {
	s := &model.Scaler{Mean: []float64{10, 50}, Scale: []float64{2, 0}}

	out, err := s.Transform([]float64{14, 53})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, out)

	_, err = s.Transform([]float64{1})
	assert.Equal(t, types.ErrCodeFeatureShape, types.CodeOf(err))
}
