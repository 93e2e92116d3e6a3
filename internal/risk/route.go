package risk

import "weather2go/internal/types"

// Leg is the outcome for one city.
type Leg struct {
	Observation *types.WeatherObservation `json:"weather"`
	Prediction  *types.RiskPrediction     `json:"prediction"`
	Tier        Tier                      `json:"tier"`
}

// Worst returns the index of the leg that determines a route's combined
// tier: the highest class for class outputs, the highest score for score
// outputs. Ties keep the earlier leg. It returns -1 for no legs.
func Worst(legs []Leg) int {
	worst := -1
	for i := range legs {
		if worst < 0 || worse(legs[i], legs[worst]) {
			worst = i
		}
	}
	return worst
}

func worse(a, b Leg) bool {
	if a.Prediction != nil && b.Prediction != nil && a.Prediction.Kind == b.Prediction.Kind {
		if a.Prediction.Kind == types.OutputScore {
			return a.Prediction.Score > b.Prediction.Score
		}
		if a.Prediction.Class != b.Prediction.Class {
			return a.Prediction.Class > b.Prediction.Class
		}
	}
	return a.Tier.Rank > b.Tier.Rank
}
