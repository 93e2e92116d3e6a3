package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather2go/internal/types"
)

func TestForClass(t *testing.T) {
	tests := []struct {
		class    int
		level    string
		color    string
		severity Severity
	}{
		{1, "Safe", "green", SeveritySuccess},
		{2, "Moderate", "yellow", SeverityWarning},
		{3, "High", "red", SeverityError},
	}
	for _, tc := range tests {
		tier, err := ForClass(tc.class)
		require.NoError(t, err)
		assert.Equal(t, tc.level, tier.Level)
		assert.Equal(t, tc.color, tier.Color)
		assert.Equal(t, tc.severity, tier.Severity)
	}
}

func TestForClass_Unknown(t *testing.T) {
	for _, class := range []int{0, 4, -1} {
		_, err := ForClass(class)
		assert.Equal(t, types.ErrCodeUnknownRiskClass, types.CodeOf(err), "class %d", class)
	}
}

func TestForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{0, ScoreLow},
		{0.29, ScoreLow},
		{0.3, ScoreMedium},
		{0.69, ScoreMedium},
		{0.7, ScoreHigh},
		{1, ScoreHigh},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ForScore(tc.score), "score %v", tc.score)
	}
}

func TestForPrediction(t *testing.T) {
	tier, err := ForPrediction(&types.RiskPrediction{Kind: types.OutputClass, Class: 2})
	require.NoError(t, err)
	assert.Equal(t, Moderate, tier)

	tier, err = ForPrediction(&types.RiskPrediction{Kind: types.OutputScore, Score: 0.1})
	require.NoError(t, err)
	assert.Equal(t, ScoreLow, tier)

	_, err = ForPrediction(nil)
	assert.Error(t, err)
}

func classLeg(class int) Leg {
	tier, _ := ForClass(class)
	return Leg{Prediction: &types.RiskPrediction{Kind: types.OutputClass, Class: class}, Tier: tier}
}

func scoreLeg(score float64) Leg {
	return Leg{Prediction: &types.RiskPrediction{Kind: types.OutputScore, Score: score}, Tier: ForScore(score)}
}

func TestWorst(t *testing.T) {
	assert.Equal(t, -1, Worst(nil))
	assert.Equal(t, 0, Worst([]Leg{classLeg(2)}))
	assert.Equal(t, 1, Worst([]Leg{classLeg(1), classLeg(3)}))
	assert.Equal(t, 0, Worst([]Leg{classLeg(3), classLeg(1)}))
	assert.Equal(t, 0, Worst([]Leg{classLeg(2), classLeg(2)}), "ties keep the start")
	assert.Equal(t, 1, Worst([]Leg{scoreLeg(0.35), scoreLeg(0.45)}), "same tier, higher score")
}
