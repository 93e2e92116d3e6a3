// Package app wires the Weather2Go components from configuration. Both the
// HTTP server and the Lambda entry point build their dependencies here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"weather2go/internal/assess"
	"weather2go/internal/config"
	"weather2go/internal/core"
	"weather2go/internal/db"
	"weather2go/internal/external"
	"weather2go/internal/metrics"
	"weather2go/internal/model"
	"weather2go/internal/queue"
	"weather2go/internal/weather"
)

// weatherBreakerName identifies the upstream breaker in logs.
const weatherBreakerName = "openweathermap"

// App holds the wired components of one process.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *core.Validator
	Metrics   metrics.Recorder
	Loader    *model.Loader
	Service   *assess.Service

	pool    *pgxpool.Pool
	closers []func() error
}

// New builds every component described by cfg. Optional components (results
// database, results queue, CloudWatch metrics, S3 artifacts) are created only
// when configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("app: config and logger are required")
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Validator: core.NewValidator(logger),
		Metrics:   metrics.Noop{},
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	if cfg.Observability.MetricsEnabled {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		cw := cloudwatch.NewFromConfig(c, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		a.Metrics = metrics.NewCloudWatchRecorder(cw, cfg.Observability.MetricNamespace, logger)
	}

	paths := model.Paths{
		Model:   cfg.Model.Path,
		Encoder: cfg.Model.EncoderPath,
		Scaler:  cfg.Model.ScalerPath,
	}
	var objects model.ObjectGetter
	if usesS3(paths) {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		objects = s3.NewFromConfig(c, func(o *s3.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				o.UsePathStyle = true
			}
		})
	}
	a.Loader = model.NewLoader(model.NewStore(objects), paths, logger)

	var sinks []assess.ResultSink
	if cfg.Database.Enabled() {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		sinks = append(sinks, db.NewResultRepository(pool))
	} else {
		logger.Info("DATABASE_URL not set; results will not be persisted")
	}

	if cfg.Results.QueueURL != "" {
		c, err := loadAWS()
		if err != nil {
			a.Close()
			return nil, err
		}
		client := sqs.NewFromConfig(c, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		sinks = append(sinks, queue.NewResultPublisher(client, cfg.Results.QueueURL, logger))
	}

	httpClient := &http.Client{Timeout: cfg.Server.RequestTimeout}
	base := external.NewBaseClient(httpClient, weatherBreakerName, cfg.Weather.BreakerFailures, cfg.Weather.UserAgent)
	weatherClient := weather.NewClient(base, weather.Config{
		APIKey:  cfg.Weather.APIKey,
		BaseURL: cfg.Weather.BaseURL,
		Logger:  logger,
	})

	a.Service = assess.NewService(assess.Config{
		Models:    a.Loader,
		Weather:   weatherClient,
		Sinks:     sinks,
		Validator: a.Validator,
		Metrics:   a.Metrics,
		Logger:    logger,
	})

	return a, nil
}

// Preload loads the model artifacts when configured to. A failure is logged
// and returned; requests retry the load later.
func (a *App) Preload(ctx context.Context) error {
	if !a.Config.Model.Preload {
		return nil
	}
	if err := a.Loader.Preload(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "model preload failed", "error", err)
		return err
	}
	return nil
}

// HealthProbes returns the probes for GET /health.
func (a *App) HealthProbes() []core.HealthProbe {
	probes := []core.HealthProbe{
		core.NewProbe("model", func(ctx context.Context) error {
			_, err := a.Loader.Get(ctx)
			return err
		}),
	}
	if a.pool != nil {
		var pinger db.Pinger = a.pool
		probes = append(probes, core.NewProbe("database", pinger.Ping))
	}
	return probes
}

// Close releases the database pool.
func (a *App) Close() error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openPool(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if dbCfg.MaxConns > 0 {
		poolCfg.MaxConns = dbCfg.MaxConns
	}
	poolCfg.MinConns = dbCfg.MinConns
	if dbCfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = dbCfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	return pool, nil
}

func usesS3(p model.Paths) bool {
	for _, loc := range []string{p.Model, p.Encoder, p.Scaler} {
		if strings.HasPrefix(loc, "s3://") {
			return true
		}
	}
	return false
}
