package types

import "time"

// DefaultVisibilityMeters is used when the upstream payload carries no
// visibility reading.
const DefaultVisibilityMeters = 10000

// WeatherObservation is the subset of a current-weather payload the risk
// model consumes. It is created per upstream call and never mutated.
type WeatherObservation struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temperature_c"`
	Humidity    int       `json:"humidity_percent"`
	WindSpeed   float64   `json:"wind_speed_ms"`
	Visibility  int       `json:"visibility_m"`
	Condition   string    `json:"condition"`
	Description string    `json:"description,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// FeatureVector is the ordered numeric input handed to the model. Names[i]
// labels Values[i].
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Len returns the vector width.
func (v FeatureVector) Len() int {
	return len(v.Values)
}

// OutputKind tells whether a model produces discrete classes or a
// continuous score.
type OutputKind string

const (
	OutputClass OutputKind = "class"
	OutputScore OutputKind = "score"
)

// ClassProbability is one entry of a class-probability distribution.
type ClassProbability struct {
	Class       int     `json:"class"`
	Probability float64 `json:"probability"`
}

// RiskPrediction is the result of one classifier invocation.
//
// For class outputs Class holds the predicted label and Score the
// probability of that label (1 when the model is not probabilistic). For
// score outputs Score holds the regression value in [0,1] and Class is 0.
type RiskPrediction struct {
	Kind          OutputKind         `json:"kind"`
	Class         int                `json:"class,omitempty"`
	Score         float64            `json:"score"`
	Probabilities []ClassProbability `json:"probabilities,omitempty"`
}

// PersistedResult is the flat record appended to the results table.
type PersistedResult struct {
	Timestamp        time.Time `json:"timestamp"`
	Name             string    `json:"name"`
	City             string    `json:"city"`
	WeatherCondition string    `json:"weather_condition"`
	Temperature      float64   `json:"temperature"`
	Humidity         int       `json:"humidity"`
	RiskScore        float64   `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
}
