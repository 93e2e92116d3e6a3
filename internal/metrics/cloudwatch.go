// Package metrics emits service telemetry to AWS CloudWatch.
//
// Metrics emitted:
//   - APILatency, APIRequestCount: Dims {Endpoint, Method, Status}
//   - Assessment: Dims {RiskLevel} on every completed assessment
//   - WeatherFetchFailure: Dims {ErrorCode} when a weather lookup fails
//   - PredictionLatency: no dims
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"weather2go/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Recorder is the full set of metrics the service emits.
type Recorder interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
	RecordAssessment(ctx context.Context, riskLevel string)
	RecordWeatherFailure(ctx context.Context, code types.ErrorCode)
	RecordPredictionLatency(ctx context.Context, duration time.Duration)
}

var (
	_ Recorder = (*CloudWatchRecorder)(nil)
	_ Recorder = Noop{}
)

// CloudWatchRecorder publishes each metric with one PutMetricData call.
// Publishing failures are logged and never surface to callers.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRecorder creates a CloudWatchRecorder. An empty namespace
// falls back to types.MetricNamespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest emits latency and count for one API request.
func (m *CloudWatchRecorder) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dim(types.DimEndpoint, endpoint),
		dim(types.DimMethod, method),
		dim(types.DimStatus, status),
	}
	m.put(context.Background(), "request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

// RecordAssessment counts a completed assessment by combined risk level.
func (m *CloudWatchRecorder) RecordAssessment(ctx context.Context, riskLevel string) {
	m.put(ctx, "assessment", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAssessment),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimRiskLevel, riskLevel)},
	})
}

// RecordWeatherFailure counts a failed weather lookup by error code.
func (m *CloudWatchRecorder) RecordWeatherFailure(ctx context.Context, code types.ErrorCode) {
	m.put(ctx, "weather failure", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricWeatherFetchFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimErrorCode, string(code))},
	})
}

// RecordPredictionLatency records how long one model invocation took.
func (m *CloudWatchRecorder) RecordPredictionLatency(ctx context.Context, duration time.Duration) {
	m.put(ctx, "prediction latency", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricPredictionLatency),
		Value:      aws.Float64(float64(duration.Microseconds()) / 1000),
		Unit:       cwtypes.StandardUnitMilliseconds,
	})
}

func (m *CloudWatchRecorder) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record "+what+" metric", "error", err.Error())
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// Noop discards all metrics. It is used when METRICS_ENABLED is false.
type Noop struct{}

func (Noop) RecordRequest(string, string, string, time.Duration) {}
func (Noop) RecordAssessment(context.Context, string) {}
func (Noop) RecordWeatherFailure(context.Context, types.ErrorCode) {}
func (Noop) RecordPredictionLatency(context.Context, time.Duration) {}
