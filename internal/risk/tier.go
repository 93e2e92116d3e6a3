// Package risk maps model output to the traffic-light tiers shown to users
// and combines the tiers of a two-city route.
package risk

import (
	"fmt"

	"weather2go/internal/types"
)

// Severity is the UI treatment of a tier.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Tier is a qualitative risk band. Rank orders tiers from least (1) to most
// (3) severe.
type Tier struct {
	Level    string   `json:"level"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Severity Severity `json:"severity"`
	Rank     int      `json:"rank"`
}

// Class tiers.
var (
	Safe     = Tier{Level: "Safe", Label: "Safe to drive", Color: "green", Severity: SeveritySuccess, Rank: 1}
	Moderate = Tier{Level: "Moderate", Label: "Moderate risk", Color: "yellow", Severity: SeverityWarning, Rank: 2}
	High     = Tier{Level: "High", Label: "High risk", Color: "red", Severity: SeverityError, Rank: 3}
)

// Score tiers.
var (
	ScoreLow    = Tier{Level: "Low", Label: "Low risk", Color: "green", Severity: SeveritySuccess, Rank: 1}
	ScoreMedium = Tier{Level: "Medium", Label: "Medium risk", Color: "yellow", Severity: SeverityWarning, Rank: 2}
	ScoreHigh   = Tier{Level: "High", Label: "High risk", Color: "red", Severity: SeverityError, Rank: 3}
)

// Score thresholds. A score below LowThreshold is Low, below
// MediumThreshold is Medium, anything else is High.
const (
	LowThreshold    = 0.3
	MediumThreshold = 0.7
)

// ForClass maps a predicted class to its tier. Classes other than 1, 2 and
// 3 fail with unknown_risk_class.
func ForClass(class int) (Tier, error) {
	switch class {
	case 1:
		return Safe, nil
	case 2:
		return Moderate, nil
	case 3:
		return High, nil
	}
	return Tier{}, types.NewAppErrorWithDetails(
		types.ErrCodeUnknownRiskClass,
		fmt.Sprintf("model produced unknown risk class %d", class),
		nil,
		map[string]any{"class": class},
	)
}

// ForScore maps a continuous score to its tier.
func ForScore(score float64) Tier {
	switch {
	case score < LowThreshold:
		return ScoreLow
	case score < MediumThreshold:
		return ScoreMedium
	default:
		return ScoreHigh
	}
}

// ForPrediction picks the policy matching the prediction kind.
func ForPrediction(p *types.RiskPrediction) (Tier, error) {
	if p == nil {
		return Tier{}, types.NewAppError(types.ErrCodeInternalUnexpected, "no prediction", nil)
	}
	if p.Kind == types.OutputScore {
		return ForScore(p.Score), nil
	}
	return ForClass(p.Class)
}
