// Package classifier maps MFCC feature vectors to urban sound classes.
//
// A Classifier owns one pretrained model (a Backend) and a fixed, ordered
// LabelSet. It is constructed loaded and is immutable afterwards:
//
//	c, err := classifier.Load("model.msgpack")
//	if err != nil {
//		// fatal, there is no fallback classifier
//	}
//	defer c.Close()
//	pred, err := c.Predict(ctx, vec)
//	fmt.Print(pred.Render())
//
// Model formats are pluggable through RegisterFormat. The native dense
// format is always available. ONNX support is compiled in with the "onnx"
// build tag.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
)

// ExpectedInputWidth is the feature vector length the pipeline produces.
const ExpectedInputWidth = 40

// Option configures Load and New.
type Option func(*options)

type options struct {
	format Format
	labels LabelSet
	logger *slog.Logger
}

// WithFormat overrides the model format otherwise guessed from the path.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// WithLabels sets the label set. Default is UrbanSound6.
func WithLabels(l LabelSet) Option {
	return func(o *options) { o.labels = l }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Classifier is a loaded model plus its label set. Safe for concurrent use.
type Classifier struct {
	backend    Backend
	labels     LabelSet
	logger     *slog.Logger
	path       string
	format     Format
	concurrent bool

	// run serializes Forward for backends that are not ConcurrentSafe.
	run sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// Load reads the model at path and returns a loaded Classifier. The model
// must take ExpectedInputWidth inputs. Every failure is a *LoadError.
func Load(path string, opts ...Option) (*Classifier, error) {
	o := applyOptions(opts)
	format := o.format
	if format == "" {
		format = FormatFromPath(path)
	}
	if format == "" {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: cannot infer format from %q", ErrUnknownFormat, path)}
	}
	open, ok := opener(format)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w %q (registered: %v)", ErrUnknownFormat, format, Formats())}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	backend, err := open(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if w := backend.InputWidth(); w != ExpectedInputWidth {
		backend.Close()
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: model takes %d inputs, features have %d",
			ErrShapeMismatch, w, ExpectedInputWidth)}
	}

	c, err := newClassifier(backend, o)
	if err != nil {
		backend.Close()
		return nil, &LoadError{Path: path, Err: err}
	}
	c.path = path
	c.format = format
	c.logger.Info("model loaded",
		"path", path,
		"format", format,
		"inputs", backend.InputWidth(),
		"outputs", backend.OutputWidth(),
		"concurrent", c.concurrent,
	)
	return c, nil
}

// New wraps an already opened backend. The Classifier takes ownership of it.
func New(backend Backend, opts ...Option) (*Classifier, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidModel)
	}
	return newClassifier(backend, applyOptions(opts))
}

func applyOptions(opts []Option) options {
	o := options{labels: UrbanSound6}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func newClassifier(b Backend, o options) (*Classifier, error) {
	if b.InputWidth() <= 0 {
		return nil, fmt.Errorf("%w: input width %d", ErrInvalidModel, b.InputWidth())
	}
	if b.OutputWidth() != o.labels.Len() {
		return nil, fmt.Errorf("%w: model has %d outputs, label set has %d", ErrInvalidModel, b.OutputWidth(), o.labels.Len())
	}
	if lb, ok := b.(LabeledBackend); ok {
		if names := lb.Labels(); len(names) > 0 {
			stored, err := NewLabelSet(names...)
			if err != nil {
				return nil, fmt.Errorf("%w: stored labels: %v", ErrInvalidModel, err)
			}
			if !stored.Equal(o.labels) {
				return nil, fmt.Errorf("%w: model labels [%s] differ from [%s]", ErrInvalidModel, stored, o.labels)
			}
		}
	}
	c := &Classifier{backend: b, labels: o.labels, logger: o.logger}
	if cb, ok := b.(ConcurrentBackend); ok {
		c.concurrent = cb.ConcurrentSafe()
	}
	return c, nil
}

// InputWidth returns the feature vector length the model accepts.
func (c *Classifier) InputWidth() int { return c.backend.InputWidth() }

// Labels returns the label set.
func (c *Classifier) Labels() LabelSet { return c.labels }

// Predict classifies one feature vector. A vector of the wrong length fails
// with an error matching ErrShapeMismatch without reaching the model. Every
// failure is an *InferenceError.
func (c *Classifier) Predict(ctx context.Context, vec []float32) (*Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, &InferenceError{Err: ErrClosed}
	}
	if want := c.backend.InputWidth(); len(vec) != want {
		return nil, &InferenceError{Err: &ShapeMismatchError{Got: len(vec), Want: want}}
	}
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Err: err}
	}

	scores, err := c.forward(ctx, vec)
	if err != nil {
		var ie *InferenceError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &InferenceError{Err: err}
	}
	if err := checkScores(scores, c.labels.Len()); err != nil {
		return nil, &InferenceError{Err: err}
	}

	s := make(Scores, len(scores))
	for i, v := range scores {
		s[i] = float64(v)
	}
	idx := s.Argmax()
	return &Prediction{
		Label:  c.labels.Name(idx),
		Index:  idx,
		Scores: s,
		Labels: c.labels,
	}, nil
}

func (c *Classifier) forward(ctx context.Context, vec []float32) ([]float32, error) {
	if !c.concurrent {
		c.run.Lock()
		defer c.run.Unlock()
	}
	return c.backend.Forward(ctx, vec)
}

func checkScores(scores []float32, want int) error {
	if len(scores) != want {
		return fmt.Errorf("model returned %d scores, want %d", len(scores), want)
	}
	for i, v := range scores {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("score %d is not finite", i)
		}
		if f < 0 {
			return fmt.Errorf("score %d is negative (%g)", i, f)
		}
	}
	return nil
}

// Info describes the loaded model.
type Info struct {
	Path        string      `json:"path,omitempty" yaml:"path,omitempty"`
	Format      Format      `json:"format,omitempty" yaml:"format,omitempty"`
	InputWidth  int         `json:"input_width" yaml:"input_width"`
	OutputWidth int         `json:"output_width" yaml:"output_width"`
	Labels      []string    `json:"labels" yaml:"labels"`
	Concurrent  bool        `json:"concurrent" yaml:"concurrent"`
	Layers      []LayerInfo `json:"layers,omitempty" yaml:"layers,omitempty"`
}

// Info returns a description of the model for inspection.
func (c *Classifier) Info() Info {
	info := Info{
		Path:        c.path,
		Format:      c.format,
		InputWidth:  c.backend.InputWidth(),
		OutputWidth: c.backend.OutputWidth(),
		Labels:      c.labels.Names(),
		Concurrent:  c.concurrent,
	}
	if lb, ok := c.backend.(LayeredBackend); ok {
		info.Layers = lb.Layers()
	}
	return info
}

// Close releases the backend. Predict fails with ErrClosed afterwards.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.backend.Close()
}
