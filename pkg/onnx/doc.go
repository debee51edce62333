// Package onnx binds the ONNX Runtime C API.
//
// The bindings are only compiled with the "onnx" build tag because they need
// CGo and a system onnxruntime library:
//
//	go build -tags onnx ./...
//
// The package exposes three types:
//
//   - [Env] holds the runtime environment, one per process
//   - [Session] holds a loaded model and describes its inputs and outputs
//   - [Tensor] is a float32 tensor passed to and from Session.Run
//
// Usage:
//
//	env, _ := onnx.NewEnv("soundclass")
//	defer env.Close()
//
//	session, _ := env.NewSession(modelData)
//	defer session.Close()
//
//	in := session.Inputs()[0]
//	input, _ := onnx.NewTensor([]int64{1, 40}, features)
//	defer input.Close()
//
//	outputs, _ := session.Run([]string{in.Name}, []*onnx.Tensor{input}, session.OutputNames())
//	scores, _ := outputs[0].FloatData()
//
// Session.Run is safe for concurrent use; ONNX Runtime locks internally.
package onnx
