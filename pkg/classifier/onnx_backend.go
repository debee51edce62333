//go:build onnx

package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/haivivi/soundclass/pkg/onnx"
)

var (
	onnxEnvOnce sync.Once
	onnxEnv     *onnx.Env
	onnxEnvErr  error
)

func sharedEnv() (*onnx.Env, error) {
	onnxEnvOnce.Do(func() {
		onnxEnv, onnxEnvErr = onnx.NewEnv("soundclass")
	})
	return onnxEnv, onnxEnvErr
}

// ONNX runs a model exported to ONNX with one [1, N] float input and one
// [1, M] float output.
type ONNX struct {
	session *onnx.Session
	input   onnx.IOInfo
	output  onnx.IOInfo
	in, out int
}

// NewONNX opens an ONNX model from memory.
func NewONNX(data []byte) (*ONNX, error) {
	env, err := sharedEnv()
	if err != nil {
		return nil, err
	}
	session, err := env.NewSession(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	ins, outs := session.Inputs(), session.Outputs()
	if len(ins) != 1 || len(outs) < 1 {
		session.Close()
		return nil, fmt.Errorf("%w: onnx model has %d inputs and %d outputs, want 1 and 1", ErrInvalidModel, len(ins), len(outs))
	}
	return &ONNX{
		session: session,
		input:   ins[0],
		output:  outs[0],
		in:      ins[0].Elements(),
		out:     outs[0].Elements(),
	}, nil
}

func (m *ONNX) InputWidth() int  { return m.in }
func (m *ONNX) OutputWidth() int { return m.out }

// ConcurrentSafe reports true: ONNX Runtime sessions lock internally.
func (m *ONNX) ConcurrentSafe() bool { return true }

func (m *ONNX) Layers() []LayerInfo {
	return []LayerInfo{{
		Name:    m.input.Name + " -> " + m.output.Name,
		Kind:    "onnx",
		Inputs:  m.in,
		Outputs: m.out,
	}}
}

func (m *ONNX) Forward(ctx context.Context, in []float32) ([]float32, error) {
	if len(in) != m.in {
		return nil, &ShapeMismatchError{Got: len(in), Want: m.in}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := append([]float32(nil), in...)
	tensor, err := onnx.NewTensor([]int64{1, int64(m.in)}, data)
	if err != nil {
		return nil, err
	}
	defer tensor.Close()

	outputs, err := m.session.Run([]string{m.input.Name}, []*onnx.Tensor{tensor}, []string{m.output.Name})
	if err != nil {
		return nil, err
	}
	defer outputs[0].Close()
	return outputs[0].FloatData()
}

func (m *ONNX) Close() error { return m.session.Close() }

func init() {
	RegisterFormat(FormatONNX, func(data []byte) (Backend, error) {
		return NewONNX(data)
	})
}
