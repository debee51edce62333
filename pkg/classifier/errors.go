package classifier

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrShapeMismatch matches feature vectors whose length differs from the
	// model's input width. It indicates a pipeline bug, not a user error.
	ErrShapeMismatch = errors.New("classifier: feature shape mismatch")

	// ErrClosed is returned by Predict after Close.
	ErrClosed = errors.New("classifier: closed")

	// ErrUnknownFormat is returned when no backend handles a model format.
	ErrUnknownFormat = errors.New("classifier: unknown model format")

	// ErrInvalidModel is returned for model files that decode but do not
	// describe a usable network.
	ErrInvalidModel = errors.New("classifier: invalid model")
)

// LoadError reports a model that could not be loaded. It is fatal: there is
// no fallback classifier.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("classifier: load model %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ShapeMismatchError carries the offending and expected vector lengths.
type ShapeMismatchError struct {
	Got, Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("feature vector has %d values, model expects %d", e.Got, e.Want)
}

// Is makes errors.Is(err, ErrShapeMismatch) match.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// InferenceError wraps every failure of Predict.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("classifier: inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
