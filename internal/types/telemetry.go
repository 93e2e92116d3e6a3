package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency          = "APILatency"
	MetricAPIRequestCount     = "APIRequestCount"
	MetricAssessment          = "Assessment"
	MetricWeatherFetchFailure = "WeatherFetchFailure"
	MetricPredictionLatency   = "PredictionLatency"

	// Dimension Keys
	DimEndpoint  = "Endpoint"
	DimMethod    = "Method"
	DimStatus    = "Status"
	DimRiskLevel = "RiskLevel"
	DimErrorCode = "ErrorCode"

	// Metric Namespace
	MetricNamespace = "Weather2Go"
)
