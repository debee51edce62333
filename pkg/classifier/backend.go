package classifier

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Backend runs the forward pass of a loaded, immutable model.
type Backend interface {
	// InputWidth is the length of the feature vector the model accepts.
	InputWidth() int

	// OutputWidth is the number of scores the model produces.
	OutputWidth() int

	// Forward evaluates the model on one feature vector.
	Forward(ctx context.Context, in []float32) ([]float32, error)

	// Close releases runtime resources.
	Close() error
}

// ConcurrentBackend is implemented by backends whose Forward may run on
// several goroutines at once. Other backends are serialized by Classifier.
type ConcurrentBackend interface {
	Backend
	ConcurrentSafe() bool
}

// LabeledBackend is implemented by model formats that store their own label
// list.
type LabeledBackend interface {
	Backend
	Labels() []string
}

// LayeredBackend is implemented by backends that can describe their layers.
type LayeredBackend interface {
	Backend
	Layers() []LayerInfo
}

// LayerInfo summarizes one layer for inspection.
type LayerInfo struct {
	Name       string `json:"name" yaml:"name"`
	Kind       string `json:"kind" yaml:"kind"`
	Activation string `json:"activation,omitempty" yaml:"activation,omitempty"`
	Inputs     int    `json:"inputs" yaml:"inputs"`
	Outputs    int    `json:"outputs" yaml:"outputs"`
}

// Format names a model serialization.
type Format string

const (
	FormatMsgpack Format = "msgpack"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatONNX    Format = "onnx"
)

// Opener builds a Backend from the raw bytes of a model file.
type Opener func(data []byte) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Format]Opener)
)

// RegisterFormat makes a model format loadable. Typically called from init().
func RegisterFormat(f Format, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f] = open
}

// Formats returns the registered formats in sorted order.
func Formats() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Format, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func opener(f Format) (Opener, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	open, ok := registry[f]
	return open, ok
}

// FormatFromPath guesses the model format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return FormatMsgpack
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".onnx":
		return FormatONNX
	}
	return ""
}
