// Package model loads the persisted driving-risk model and runs it.
//
// Artifacts are JSON exports of a trained tree ensemble, an optional label
// encoder for categorical inputs and an optional standard scaler. They are
// loaded once per process and shared read-only by every request.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"weather2go/internal/types"
)

const (
	bundleKey = "bundle"

	// DefaultLoadTimeout bounds one shared artifact load.
	DefaultLoadTimeout = 2 * time.Minute
)

// Paths locates the three artifacts. Encoder and Scaler are optional.
type Paths struct {
	Model   string
	Encoder string
	Scaler  string
}

// Bundle is a fully validated, immutable set of artifacts.
type Bundle struct {
	Model    *Forest
	Encoders map[string]*LabelEncoder
	Scaler   *Scaler
	Paths    Paths
	LoadedAt time.Time
}

// Loader lazily loads the Bundle on first use and caches it for the
// lifetime of the process. Concurrent first calls share one load. A failed
// load is not cached, so the next call tries again.
type Loader struct {
	store  *Store
	paths  Paths
	logger *slog.Logger
	clock  types.Clock

	loadTimeout time.Duration

	group   singleflight.Group
	current atomic.Pointer[Bundle]
}

// NewLoader creates a Loader. Nothing is read until Get or Preload.
func NewLoader(store *Store, paths Paths, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:  store,
		paths:  paths,
		logger: logger,
		clock:  types.RealClock{},

		loadTimeout: DefaultLoadTimeout,
	}
}

// Get returns the cached Bundle, loading it on the first call. Errors are
// *types.AppError with code internal_artifact_load_failed.
//
// The shared load is detached from ctx and bounded by the loader's own
// timeout. A caller whose ctx ends stops waiting without cancelling the load
// for the others.
func (l *Loader) Get(ctx context.Context) (*Bundle, error) {
	if b := l.current.Load(); b != nil {
		return b, nil
	}

	ch := l.group.DoChan(bundleKey, func() (any, error) {
		if b := l.current.Load(); b != nil {
			return b, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
		defer cancel()

		b, err := l.load(loadCtx)
		if err != nil {
			return nil, err
		}
		l.current.Store(b)
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	case <-ctx.Done():
		return nil, artifactError(l.paths.Model, "load still in progress", ctx.Err())
	}
}

// Preload loads the Bundle eagerly. It is meant for process startup.
func (l *Loader) Preload(ctx context.Context) error {
	_, err := l.Get(ctx)
	return err
}

// Loaded reports whether a Bundle is cached.
func (l *Loader) Loaded() bool {
	return l.current.Load() != nil
}

// NewBundle validates the artifacts against each other and assembles a
// Bundle. encoders and scaler may be empty.
func NewBundle(forest *Forest, encoders []*LabelEncoder, scaler *Scaler) (*Bundle, error) {
	if forest == nil {
		return nil, fmt.Errorf("no model")
	}
	if err := forest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	byField := make(map[string]*LabelEncoder, len(encoders))
	for _, enc := range encoders {
		if enc.index == nil {
			if err := enc.build(); err != nil {
				return nil, err
			}
		}
		byField[enc.Field] = enc
	}
	for _, feat := range forest.Features {
		if feat.Kind != FeatureCategorical {
			continue
		}
		if _, ok := byField[feat.Encoder]; !ok {
			return nil, fmt.Errorf("categorical feature %q has no %q encoder", feat.Name, feat.Encoder)
		}
	}

	if scaler != nil {
		if err := scaler.validate(forest.NumFeatures()); err != nil {
			return nil, err
		}
	}

	return &Bundle{Model: forest, Encoders: byField, Scaler: scaler}, nil
}

func (l *Loader) load(ctx context.Context) (*Bundle, error) {
	start := l.clock.Now()

	forest := &Forest{}
	if err := l.decode(ctx, l.paths.Model, forest); err != nil {
		return nil, err
	}

	var encoders []*LabelEncoder
	if l.paths.Encoder != "" {
		var err error
		if encoders, err = l.loadEncoders(ctx); err != nil {
			return nil, err
		}
	}

	var scaler *Scaler
	if l.paths.Scaler != "" {
		scaler = &Scaler{}
		if err := l.decode(ctx, l.paths.Scaler, scaler); err != nil {
			return nil, err
		}
	}

	b, err := NewBundle(forest, encoders, scaler)
	if err != nil {
		return nil, artifactError(l.paths.Model, "inconsistent artifacts", err)
	}
	b.Paths = l.paths
	b.LoadedAt = l.clock.Now()

	l.logger.InfoContext(ctx, "model artifacts loaded",
		"model", forest.Name,
		"kind", forest.Kind,
		"features", forest.NumFeatures(),
		"trees", len(forest.Trees),
		"encoders", len(encoders),
		"scaled", scaler != nil,
		"duration_ms", l.clock.Now().Sub(start).Milliseconds(),
	)
	return b, nil
}

// loadEncoders accepts either a single encoder object or an array of them.
func (l *Loader) loadEncoders(ctx context.Context) ([]*LabelEncoder, error) {
	var raw json.RawMessage
	if err := l.decode(ctx, l.paths.Encoder, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*LabelEncoder
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, artifactError(l.paths.Encoder, "malformed encoder list", err)
		}
		return list, nil
	}

	enc := &LabelEncoder{}
	if err := json.Unmarshal(trimmed, enc); err != nil {
		return nil, artifactError(l.paths.Encoder, "malformed encoder", err)
	}
	return []*LabelEncoder{enc}, nil
}

func (l *Loader) decode(ctx context.Context, location string, dst any) error {
	rc, err := l.store.Open(ctx, location)
	if err != nil {
		return artifactError(location, "artifact unavailable", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return artifactError(location, "artifact unreadable", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return artifactError(location, "artifact is not valid JSON", err)
	}
	return nil
}

func artifactError(location, msg string, err error) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeInternalArtifactLoad,
		"model unavailable: "+msg,
		err,
		map[string]any{"artifact": location},
	)
}
