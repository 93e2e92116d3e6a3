// Package main is the AWS Lambda entry point that runs one assessment per
// invocation. The event is an assessment request:
//
//	{"name": "Ada", "city": "Chicago", "city2": "Duluth", "inputs": {"feature1": 2}}
//
// and the response is the assessment, or an error whose message carries the
// error code (for example "not_found_city: city not found: Atlantis").
//
// Cold start loads configuration, wires the pipeline and preloads the model
// so that the first invocation does not pay for the artifact download.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"weather2go/internal/app"
	"weather2go/internal/assess"
	"weather2go/internal/config"
	"weather2go/internal/types"
)

// Assessor runs one assessment. *assess.Service satisfies it.
type Assessor interface {
	Assess(ctx context.Context, req assess.Request) (*assess.Assessment, error)
}

func main() {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		newLogger("info", os.Stdout).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel, os.Stdout)

	ctx := context.Background()
	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire components", "error", err)
		os.Exit(1)
	}
	_ = deps.Preload(ctx)

	logger.Info("assess Lambda initialized",
		"version", cfg.Build.Version,
		"persistence", cfg.Database.Enabled(),
		"results_queue", cfg.Results.QueueURL != "",
	)

	lambda.Start(newHandler(deps.Service, logger))
}

func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: config.ParseLogLevel(level)}))
}

// newHandler returns the Lambda handler. The Lambda request ID becomes the
// request ID of the assessment logs.
func newHandler(svc Assessor, logger *slog.Logger) func(ctx context.Context, req assess.Request) (*assess.Assessment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req assess.Request) (*assess.Assessment, error) {
		reqLogger := logger
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			ctx = types.WithRequestID(ctx, lc.AwsRequestID)
			reqLogger = logger.With("request_id", lc.AwsRequestID)
		}
		ctx = types.WithLogger(ctx, reqLogger)

		a, err := svc.Assess(ctx, req)
		if err != nil {
			reqLogger.WarnContext(ctx, "assessment failed", "code", types.CodeOf(err), "error", err)
			return nil, err
		}
		return a, nil
	}
}
