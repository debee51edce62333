package features

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/haivivi/soundclass/pkg/audio/decode"
)

// Kind classifies an extraction failure.
type Kind int

const (
	// KindUnreadable means the file could not be opened or read.
	KindUnreadable Kind = iota + 1
	// KindUnsupported means the file is not a recognized audio container.
	KindUnsupported
	// KindDecode means the container was recognized but decoding failed.
	KindDecode
	// KindEmpty means the file holds no audio samples.
	KindEmpty
	// KindCanceled means the context ended before extraction finished.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindUnreadable:
		return "unreadable"
	case KindUnsupported:
		return "unsupported"
	case KindDecode:
		return "decode"
	case KindEmpty:
		return "empty"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ExtractionError reports why an audio file could not be turned into a
// feature vector. It is recoverable: the caller shows a message and waits
// for the next file.
type ExtractionError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("features: %s %q: %v", e.Kind, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// classify maps a read or decode error to its Kind.
func classify(err error) Kind {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &pathErr):
		return KindUnreadable
	case errors.Is(err, decode.ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, decode.ErrEmpty):
		return KindEmpty
	}
	return KindDecode
}

func extractionError(path string, err error) *ExtractionError {
	return &ExtractionError{Path: path, Kind: classify(err), Err: err}
}
