// Package main implements the model-inspect CLI for debugging model
// artifacts without running the server or calling the weather API.
//
// Usage:
//
//	go run ./cmd/tools/model-inspect --model=models/rf_model.json --encoder=models/label_encoder.json
//	go run ./cmd/tools/model-inspect --set temperature=-8 --set condition=Snow --set wind_speed=12 --set visibility=400
//
// Artifact locations default to MODEL_PATH, ENCODER_PATH and SCALER_PATH
// (read from the environment or a .env file). Without --set the tool prints
// the feature schema. With --set it builds one observation from the given
// values, runs a prediction and prints the tier.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"weather2go/internal/features"
	"weather2go/internal/model"
	"weather2go/internal/risk"
	"weather2go/internal/types"
)

// assignments collects repeated --set name=value flags.
type assignments map[string]string

func (a assignments) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (a assignments) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	a[name] = strings.TrimSpace(value)
	return nil
}

type options struct {
	paths  model.Paths
	values assignments
}

func main() {
	// Load .env before reading flag defaults from the environment.
	_ = godotenv.Load()

	opts := options{values: assignments{}}
	flag.StringVar(&opts.paths.Model, "model", os.Getenv("MODEL_PATH"), "model artifact (path or s3:// URI)")
	flag.StringVar(&opts.paths.Encoder, "encoder", os.Getenv("ENCODER_PATH"), "label encoder artifact (optional)")
	flag.StringVar(&opts.paths.Scaler, "scaler", os.Getenv("SCALER_PATH"), "scaler artifact (optional)")
	flag.Var(opts.values, "set", "feature value as name=value (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: model-inspect [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Print the schema of the model artifacts, or run one prediction.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if opts.paths.Model == "" {
		fmt.Fprintf(os.Stderr, "error: --model or MODEL_PATH is required\n\n")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := newStore(ctx, opts.paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, model.NewLoader(store, opts.paths, logger), opts.values, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newStore creates an artifact store, with an S3 client only when an
// artifact lives in S3.
func newStore(ctx context.Context, p model.Paths) (*model.Store, error) {
	needsS3 := false
	for _, loc := range []string{p.Model, p.Encoder, p.Scaler} {
		needsS3 = needsS3 || strings.HasPrefix(loc, "s3://")
	}
	if !needsS3 {
		return model.NewStore(nil), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	endpoint := os.Getenv("AWS_ENDPOINT_URL")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return model.NewStore(client), nil
}

type schemaField struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Source   string   `json:"source"`
	Encoding []string `json:"encoding,omitempty"`
}

type schemaReport struct {
	Name     string           `json:"name"`
	Output   types.OutputKind `json:"output"`
	Classes  []int            `json:"classes,omitempty"`
	Trees    int              `json:"trees"`
	Scaled   bool             `json:"scaled"`
	Features []schemaField    `json:"features"`
}

type predictionReport struct {
	Vector     types.FeatureVector   `json:"vector"`
	Prediction *types.RiskPrediction `json:"prediction"`
	Tier       risk.Tier             `json:"tier"`
}

// run loads the artifacts and writes a JSON report to out.
func run(ctx context.Context, loader *model.Loader, values assignments, out io.Writer) error {
	bundle, err := loader.Get(ctx)
	if err != nil {
		return err
	}
	schema, err := features.NewSchema(bundle)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if len(values) == 0 {
		report := schemaReport{
			Name:    bundle.Model.Name,
			Output:  bundle.Model.OutputKind(),
			Classes: bundle.Model.Classes,
			Trees:   len(bundle.Model.Trees),
			Scaled:  bundle.Scaler != nil,
		}
		for _, f := range schema.Fields() {
			field := schemaField{Name: f.Name, Kind: f.Kind, Source: f.Source.String()}
			if f.Encoder != nil {
				field.Encoding = f.Encoder.Classes
			}
			report.Features = append(report.Features, field)
		}
		return enc.Encode(report)
	}

	obs, inputs, err := observationFrom(values)
	if err != nil {
		return err
	}
	assembler, err := features.NewAssembler(bundle)
	if err != nil {
		return err
	}
	vec, err := assembler.Assemble(obs, inputs)
	if err != nil {
		return err
	}
	pred, err := bundle.Model.Predict(vec)
	if err != nil {
		return err
	}
	tier, err := risk.ForPrediction(pred)
	if err != nil {
		return err
	}
	return enc.Encode(predictionReport{Vector: vec, Prediction: pred, Tier: tier})
}

// observationFrom splits the assignments into an observation and the
// remaining user inputs. Unset observation fields stay zero, except
// visibility, which takes its usual default.
func observationFrom(values assignments) (*types.WeatherObservation, map[string]float64, error) {
	obs := &types.WeatherObservation{City: "cli", Visibility: types.DefaultVisibilityMeters}
	inputs := map[string]float64{}

	for name, raw := range values {
		if name == features.Condition {
			obs.Condition = raw
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("--set %s: %w", name, errors.Unwrap(err))
		}
		switch name {
		case features.Temperature:
			obs.Temperature = v
		case features.Humidity:
			obs.Humidity = int(v)
		case features.WindSpeed:
			obs.WindSpeed = v
		case features.Visibility:
			obs.Visibility = int(v)
		default:
			inputs[name] = v
		}
	}
	return obs, inputs, nil
}
