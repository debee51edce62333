// Package features turns audio files into fixed-length MFCC feature vectors.
//
// Every file is decoded, downmixed to mono, resampled to the extractor's
// canonical rate and reduced to the time-mean of each MFCC coefficient, so a
// 0.5 second clip and a 30 second clip both yield NumCoeffs values.
package features

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/haivivi/soundclass/pkg/audio/decode"
	"github.com/haivivi/soundclass/pkg/audio/mfcc"
	"github.com/haivivi/soundclass/pkg/audio/resampler"
	"github.com/haivivi/soundclass/pkg/kv"
)

// Vector is one feature vector: the time-mean of every MFCC coefficient.
type Vector []float32

// Option configures an Extractor.
type Option func(*Extractor)

// WithCache stores computed vectors in s. A ttl of zero never expires.
func WithCache(s kv.Store, ttl time.Duration) Option {
	return func(e *Extractor) {
		e.cache = s
		e.cacheTTL = ttl
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// Extractor computes feature vectors. It holds no per-file state and is safe
// for concurrent use.
type Extractor struct {
	mfcc        *mfcc.Extractor
	cache       kv.Store
	cacheTTL    time.Duration
	fingerprint string
	logger      *slog.Logger
}

// New creates an Extractor for cfg.
func New(cfg mfcc.Config, opts ...Option) (*Extractor, error) {
	m, err := mfcc.New(cfg)
	if err != nil {
		return nil, err
	}
	e := &Extractor{mfcc: m}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.cache != nil {
		if e.fingerprint, err = fingerprint(cfg); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Width returns the length of every vector this Extractor produces.
func (e *Extractor) Width() int { return e.mfcc.Config().NumCoeffs }

// Config returns the MFCC configuration.
func (e *Extractor) Config() mfcc.Config { return e.mfcc.Config() }

// Extract reads the audio file at path and returns its feature vector.
// Every failure is an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, path string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, extractionError(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, extractionError(path, err)
	}

	var key kv.Key
	if e.cache != nil {
		sum := sha256.Sum256(data)
		key = cacheKey(e.fingerprint, hex.EncodeToString(sum[:]))
		if v, ok := e.lookup(ctx, key); ok {
			e.logger.Debug("features cache hit", "path", path)
			return v, nil
		}
	}

	clip, err := decode.Bytes(data, path)
	if err != nil {
		return nil, extractionError(path, err)
	}
	e.logger.Debug("audio decoded",
		"path", path,
		"format", clip.Format,
		"rate", clip.SampleRate,
		"channels", clip.Channels,
		"duration", clip.Duration(),
	)

	v, err := e.ExtractClip(ctx, clip)
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) {
			ee.Path = path
		}
		return nil, err
	}
	if e.cache != nil {
		e.store(ctx, key, v)
	}
	return v, nil
}

// ExtractClip computes the feature vector of already decoded audio.
func (e *Extractor) ExtractClip(ctx context.Context, clip *decode.Clip) (Vector, error) {
	if len(clip.Samples) == 0 {
		return nil, &ExtractionError{Kind: KindEmpty, Err: decode.ErrEmpty}
	}
	if err := ctx.Err(); err != nil {
		return nil, extractionError("", err)
	}

	rate := e.mfcc.Config().SampleRate
	pcm, err := resampler.Resample(clip.Samples, clip.SampleRate, rate)
	if err != nil {
		return nil, &ExtractionError{Kind: KindDecode, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, extractionError("", err)
	}

	means := e.mfcc.Mean(pcm)
	if len(means) != e.Width() {
		return nil, &ExtractionError{Kind: KindEmpty, Err: fmt.Errorf("%w: no analysis frames", decode.ErrEmpty)}
	}
	v := make(Vector, len(means))
	for i, m := range means {
		v[i] = float32(m)
	}
	return v, nil
}
