package pipeline

import (
	"context"
	"errors"

	"github.com/haivivi/soundclass/pkg/classifier"
	"github.com/haivivi/soundclass/pkg/features"
)

// Message converts err into a short line fit for an end user. It never
// includes raw error text; log the error itself for diagnostics.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var ee *features.ExtractionError
	if errors.As(err, &ee) {
		return "Error processing audio file: " + extractionReason(ee.Kind)
	}

	var le *classifier.LoadError
	switch {
	case errors.As(err, &le):
		return "Cannot load model: " + le.Path
	case errors.Is(err, classifier.ErrShapeMismatch):
		return "Internal error: feature shape mismatch"
	case errors.Is(err, context.DeadlineExceeded):
		return "Prediction timed out"
	case errors.Is(err, context.Canceled):
		return "Prediction canceled"
	case errors.Is(err, classifier.ErrClosed):
		return "Error running classifier: model is closed"
	}

	var ie *classifier.InferenceError
	if errors.As(err, &ie) {
		return "Error running classifier"
	}
	return "Unexpected error"
}

func extractionReason(k features.Kind) string {
	switch k {
	case features.KindUnreadable:
		return "file cannot be read"
	case features.KindUnsupported:
		return "not a supported audio format (WAV or MP3)"
	case features.KindDecode:
		return "audio data is corrupt"
	case features.KindEmpty:
		return "file contains no audio"
	case features.KindCanceled:
		return "processing was canceled or timed out"
	}
	return "unknown failure"
}
