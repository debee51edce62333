// Package pipeline connects feature extraction to classification: one audio
// file in, one prediction (or one displayable error) out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/soundclass/pkg/classifier"
	"github.com/haivivi/soundclass/pkg/features"
)

// Extractor turns an audio file into a feature vector.
type Extractor interface {
	Extract(ctx context.Context, path string) (features.Vector, error)
	Width() int
}

// Predictor classifies a feature vector.
type Predictor interface {
	Predict(ctx context.Context, vec []float32) (*classifier.Prediction, error)
	InputWidth() int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTimeout bounds each Run. Zero means no limit beyond the caller's ctx.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// Pipeline runs extraction then inference for one file at a time. It is safe
// for concurrent use when its Extractor and Predictor are.
type Pipeline struct {
	extractor Extractor
	predictor Predictor
	logger    *slog.Logger
	timeout   time.Duration
}

// New assembles a pipeline. The extractor must produce
// classifier.ExpectedInputWidth features and the model must accept them.
func New(ext Extractor, pred Predictor, opts ...Option) (*Pipeline, error) {
	if ext.Width() != classifier.ExpectedInputWidth {
		return nil, fmt.Errorf("pipeline: extractor produces %d features, want %d: %w",
			ext.Width(), classifier.ExpectedInputWidth, classifier.ErrShapeMismatch)
	}
	if ext.Width() != pred.InputWidth() {
		return nil, fmt.Errorf("pipeline: extractor produces %d features, model expects %d: %w",
			ext.Width(), pred.InputWidth(), classifier.ErrShapeMismatch)
	}
	p := &Pipeline{extractor: ext, predictor: pred}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Result is one successful prediction.
type Result struct {
	RequestID  string
	Path       string
	Prediction *classifier.Prediction
	Features   features.Vector
	Elapsed    time.Duration
}

// Run classifies the audio file at path. Extraction failures are returned as
// *features.ExtractionError and the predictor is not called; inference
// failures are *classifier.InferenceError. Use Message to display either.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	id := uuid.NewString()
	log := p.logger.With("request_id", id, "path", path)

	vec, err := p.extractor.Extract(ctx, path)
	if err != nil {
		log.Debug("extraction failed", "error", err)
		return nil, err
	}
	extracted := time.Since(start)

	pred, err := p.predictor.Predict(ctx, vec)
	if err != nil {
		log.Debug("inference failed", "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	log.Info("prediction",
		"label", pred.Label,
		"confidence", pred.Confidence(),
		"extract", extracted,
		"elapsed", elapsed,
	)
	return &Result{
		RequestID:  id,
		Path:       path,
		Prediction: pred,
		Features:   vec,
		Elapsed:    elapsed,
	}, nil
}

// Text is the plain rendering of the prediction.
func (r *Result) Text() string { return r.Prediction.Render() }

// Report is the structured form of a Result for YAML/JSON output.
type Report struct {
	RequestID   string                  `json:"request_id" yaml:"request_id"`
	Path        string                  `json:"path" yaml:"path"`
	Label       string                  `json:"label" yaml:"label"`
	Index       int                     `json:"index" yaml:"index"`
	Confidence  float64                 `json:"confidence" yaml:"confidence"`
	Scores      []float64               `json:"scores" yaml:"scores"`
	Percentages map[string]float64      `json:"percentages" yaml:"percentages"`
	Ranked      []classifier.ClassScore `json:"ranked" yaml:"ranked"`
	Elapsed     string                  `json:"elapsed" yaml:"elapsed"`
}

// Report returns the structured view of r.
func (r *Result) Report() Report {
	p := r.Prediction
	return Report{
		RequestID:   r.RequestID,
		Path:        r.Path,
		Label:       p.Label,
		Index:       p.Index,
		Confidence:  p.Confidence(),
		Scores:      append([]float64(nil), p.Scores...),
		Percentages: p.Percentages(),
		Ranked:      p.Ranked(),
		Elapsed:     r.Elapsed.Round(time.Millisecond).String(),
	}
}
