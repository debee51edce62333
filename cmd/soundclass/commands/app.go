package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/haivivi/soundclass/pkg/classifier"
	"github.com/haivivi/soundclass/pkg/cli"
	"github.com/haivivi/soundclass/pkg/features"
	"github.com/haivivi/soundclass/pkg/kv"
	"github.com/haivivi/soundclass/pkg/pipeline"
)

// app holds the resources of one command invocation.
type app struct {
	ctx        *cli.Context
	classifier *classifier.Classifier
	extractor  *features.Extractor
	pipeline   *pipeline.Pipeline
	cache      kv.Store
}

// loadClassifier loads the model selected by flags and context. Failure is
// fatal for the command.
func loadClassifier(ctx *cli.Context) (*classifier.Classifier, error) {
	path := getModelPath(ctx)
	printVerbose("loading model %s", path)
	var opts []classifier.Option
	if ctx.ModelFormat != "" {
		opts = append(opts, classifier.WithFormat(classifier.Format(ctx.ModelFormat)))
	}
	c, err := classifier.Load(path, opts...)
	if err != nil {
		slog.Debug("load model failed", "path", path, "error", err)
		return nil, errors.New(pipeline.Message(err))
	}
	return c, nil
}

// newExtractor builds the feature extractor, with the cache if enabled.
func newExtractor(ctx *cli.Context) (*features.Extractor, kv.Store, error) {
	cache, err := openCache(ctx)
	if err != nil {
		// The cache is an optimization; run without it.
		slog.Warn("feature cache disabled", "error", err)
		cache = nil
	}
	var opts []features.Option
	if cache != nil {
		opts = append(opts, features.WithCache(cache, ctx.CacheTTL()))
	}
	ext, err := features.New(ctx.FeatureConfig(), opts...)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, nil, err
	}
	return ext, cache, nil
}

// newApp loads everything predict needs.
func newApp() (*app, error) {
	ctx, err := getContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("context %s: %w", ctx.Name, err)
	}
	c, err := loadClassifier(ctx)
	if err != nil {
		return nil, err
	}
	ext, cache, err := newExtractor(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	p, err := pipeline.New(ext, c, pipeline.WithTimeout(ctx.TimeoutDuration()))
	if err != nil {
		c.Close()
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}
	return &app{ctx: ctx, classifier: c, extractor: ext, pipeline: p, cache: cache}, nil
}

func (a *app) Close() error {
	err := a.classifier.Close()
	if a.cache != nil {
		err = errors.Join(err, a.cache.Close())
	}
	return err
}
