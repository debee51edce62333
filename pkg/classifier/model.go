package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// DenseFormatVersion tags native dense-network model files.
const DenseFormatVersion = "soundclass-dense/v1"

// Layer kinds.
const (
	KindDense   = "dense"
	KindDropout = "dropout"
)

// ModelSpec is the serialized form of a feed-forward network made of dense
// layers, the shape of a Keras Sequential classifier. Dropout layers are
// kept for fidelity with the training graph and are identity at inference.
type ModelSpec struct {
	Format     string      `msgpack:"format" json:"format" yaml:"format"`
	InputWidth int         `msgpack:"input_width" json:"input_width" yaml:"input_width"`
	Labels     []string    `msgpack:"labels,omitempty" json:"labels,omitempty" yaml:"labels,omitempty"`
	Layers     []LayerSpec `msgpack:"layers" json:"layers" yaml:"layers"`
}

// LayerSpec is one layer of a ModelSpec. Weights are [inputs][outputs].
type LayerSpec struct {
	Name       string      `msgpack:"name" json:"name" yaml:"name"`
	Kind       string      `msgpack:"kind" json:"kind" yaml:"kind"`
	Activation string      `msgpack:"activation,omitempty" json:"activation,omitempty" yaml:"activation,omitempty"`
	Weights    [][]float32 `msgpack:"weights,omitempty" json:"weights,omitempty" yaml:"weights,omitempty"`
	Bias       []float32   `msgpack:"bias,omitempty" json:"bias,omitempty" yaml:"bias,omitempty"`
}

// OutputWidth returns the width of the last dense layer, or InputWidth if
// there is none.
func (s *ModelSpec) OutputWidth() int {
	w := s.InputWidth
	for _, l := range s.Layers {
		if l.Kind == KindDense && len(l.Bias) > 0 {
			w = len(l.Bias)
		}
	}
	return w
}

// Validate checks that layer widths chain from InputWidth to the output.
func (s *ModelSpec) Validate() error {
	if s.Format != DenseFormatVersion {
		return fmt.Errorf("%w: format %q, want %q", ErrInvalidModel, s.Format, DenseFormatVersion)
	}
	if s.InputWidth <= 0 {
		return fmt.Errorf("%w: input width %d", ErrInvalidModel, s.InputWidth)
	}
	width := s.InputWidth
	dense := 0
	for i, l := range s.Layers {
		switch l.Kind {
		case KindDropout:
			continue
		case KindDense:
		default:
			return fmt.Errorf("%w: layer %d (%s): unknown kind %q", ErrInvalidModel, i, l.Name, l.Kind)
		}
		if _, ok := activations[l.Activation]; !ok {
			return fmt.Errorf("%w: layer %d (%s): unknown activation %q", ErrInvalidModel, i, l.Name, l.Activation)
		}
		if len(l.Weights) != width {
			return fmt.Errorf("%w: layer %d (%s): %d weight rows, want %d", ErrInvalidModel, i, l.Name, len(l.Weights), width)
		}
		out := len(l.Bias)
		if out == 0 {
			return fmt.Errorf("%w: layer %d (%s): empty bias", ErrInvalidModel, i, l.Name)
		}
		for r, row := range l.Weights {
			if len(row) != out {
				return fmt.Errorf("%w: layer %d (%s): weight row %d has %d columns, want %d", ErrInvalidModel, i, l.Name, r, len(row), out)
			}
		}
		width = out
		dense++
	}
	if dense == 0 {
		return fmt.Errorf("%w: no dense layers", ErrInvalidModel)
	}
	if len(s.Labels) > 0 && len(s.Labels) != width {
		return fmt.Errorf("%w: %d labels for %d outputs", ErrInvalidModel, len(s.Labels), width)
	}
	return nil
}

// DecodeModelSpec parses a dense model file.
func DecodeModelSpec(data []byte, format Format) (*ModelSpec, error) {
	var spec ModelSpec
	var err error
	switch format {
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &spec)
	case FormatJSON:
		err = json.Unmarshal(data, &spec)
	case FormatYAML:
		err = yaml.Unmarshal(data, &spec)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidModel, format, err)
	}
	return &spec, nil
}

// EncodeModelSpec serializes spec, e.g. when exporting converted weights.
func EncodeModelSpec(spec *ModelSpec, format Format) ([]byte, error) {
	switch format {
	case FormatMsgpack:
		return msgpack.Marshal(spec)
	case FormatJSON:
		return json.MarshalIndent(spec, "", "  ")
	case FormatYAML:
		return yaml.Marshal(spec)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

func init() {
	for _, f := range []Format{FormatMsgpack, FormatJSON, FormatYAML} {
		RegisterFormat(f, func(data []byte) (Backend, error) {
			spec, err := DecodeModelSpec(data, f)
			if err != nil {
				return nil, err
			}
			return NewDense(spec)
		})
	}
}
