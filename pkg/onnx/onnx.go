//go:build onnx

package onnx

/*
#cgo LDFLAGS: -lonnxruntime
#include <onnxruntime_c_api.h>
#include <stdlib.h>
#include <string.h>

static const OrtApi* ort_api() {
    return OrtGetApiBase()->GetApi(ORT_API_VERSION);
}

static OrtStatus* ort_create_env(const OrtApi* api, const char* name, OrtEnv** out) {
    return api->CreateEnv(ORT_LOGGING_LEVEL_WARNING, name, out);
}

static OrtStatus* ort_create_session_options(const OrtApi* api, int threads, OrtSessionOptions** out) {
    OrtStatus* status = api->CreateSessionOptions(out);
    if (status || threads <= 0) return status;
    return api->SetIntraOpNumThreads(*out, threads);
}

static OrtStatus* ort_create_session_from_memory(const OrtApi* api, OrtEnv* env,
    const void* model_data, size_t model_data_len, OrtSessionOptions* opts, OrtSession** out) {
    return api->CreateSessionFromArray(env, model_data, model_data_len, opts, out);
}

static OrtStatus* ort_create_tensor_float(const OrtApi* api, OrtMemoryInfo* info,
    float* data, size_t data_len, int64_t* shape, size_t shape_len, OrtValue** out) {
    return api->CreateTensorWithDataAsOrtValue(info, data, data_len * sizeof(float),
        shape, shape_len, ONNX_TENSOR_ELEMENT_DATA_TYPE_FLOAT, out);
}

static OrtStatus* ort_create_cpu_memory_info(const OrtApi* api, OrtMemoryInfo** out) {
    return api->CreateCpuMemoryInfo(OrtArenaAllocator, OrtMemTypeDefault, out);
}

static OrtStatus* ort_run(const OrtApi* api, OrtSession* session,
    const char** input_names, const OrtValue* const* inputs, size_t num_inputs,
    const char** output_names, size_t num_outputs, OrtValue** outputs) {
    return api->Run(session, NULL, input_names, inputs, num_inputs,
        output_names, num_outputs, outputs);
}

static OrtStatus* ort_get_tensor_float_data(const OrtApi* api, OrtValue* value, float** out) {
    return api->GetTensorMutableData(value, (void**)out);
}

static OrtStatus* ort_get_tensor_shape(const OrtApi* api, OrtValue* value,
    int64_t* shape, size_t shape_len) {
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* status = api->GetTensorTypeAndShape(value, &info);
    if (status) return status;
    status = api->GetDimensions(info, shape, shape_len);
    api->ReleaseTensorTypeAndShapeInfo(info);
    return status;
}

static OrtStatus* ort_get_tensor_ndim(const OrtApi* api, OrtValue* value, size_t* ndim) {
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* status = api->GetTensorTypeAndShape(value, &info);
    if (status) return status;
    status = api->GetDimensionsCount(info, ndim);
    api->ReleaseTensorTypeAndShapeInfo(info);
    return status;
}

// IO introspection. is_input selects inputs (1) or outputs (0).

static OrtStatus* ort_io_count(const OrtApi* api, OrtSession* s, int is_input, size_t* out) {
    return is_input ? api->SessionGetInputCount(s, out) : api->SessionGetOutputCount(s, out);
}

static OrtStatus* ort_io_name(const OrtApi* api, OrtSession* s, int is_input, size_t i, char** out) {
    OrtAllocator* alloc;
    OrtStatus* status = api->GetAllocatorWithDefaultOptions(&alloc);
    if (status) return status;
    char* name;
    status = is_input
        ? api->SessionGetInputName(s, i, alloc, &name)
        : api->SessionGetOutputName(s, i, alloc, &name);
    if (status) return status;
    *out = strdup(name);
    return api->AllocatorFree(alloc, name);
}

static OrtStatus* ort_io_shape(const OrtApi* api, OrtSession* s, int is_input, size_t i,
    int64_t* shape, size_t cap, size_t* ndim) {
    OrtTypeInfo* type_info;
    OrtStatus* status = is_input
        ? api->SessionGetInputTypeInfo(s, i, &type_info)
        : api->SessionGetOutputTypeInfo(s, i, &type_info);
    if (status) return status;
    const OrtTensorTypeAndShapeInfo* tensor_info;
    status = api->CastTypeInfoToTensorInfo(type_info, &tensor_info);
    if (status == NULL && tensor_info == NULL) {
        *ndim = 0;
        api->ReleaseTypeInfo(type_info);
        return NULL;
    }
    if (status == NULL) status = api->GetDimensionsCount(tensor_info, ndim);
    if (status == NULL) status = api->GetDimensions(tensor_info, shape, *ndim < cap ? *ndim : cap);
    api->ReleaseTypeInfo(type_info);
    return status;
}

static const char* ort_error_message(const OrtApi* api, OrtStatus* status) {
    return api->GetErrorMessage(status);
}

static void ort_release_status(const OrtApi* api, OrtStatus* status) {
    api->ReleaseStatus(status);
}

static void ort_release_env(const OrtApi* api, OrtEnv* env) { api->ReleaseEnv(env); }
static void ort_release_session(const OrtApi* api, OrtSession* s) { api->ReleaseSession(s); }
static void ort_release_session_options(const OrtApi* api, OrtSessionOptions* o) { api->ReleaseSessionOptions(o); }
static void ort_release_memory_info(const OrtApi* api, OrtMemoryInfo* i) { api->ReleaseMemoryInfo(i); }
static void ort_release_value(const OrtApi* api, OrtValue* v) { api->ReleaseValue(v); }
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

// maxDims bounds the rank accepted when describing model inputs and outputs.
const maxDims = 8

func api() *C.OrtApi {
	return C.ort_api()
}

// checkStatus converts an OrtStatus to a Go error and releases it.
func checkStatus(status *C.OrtStatus) error {
	if status == nil {
		return nil
	}
	msg := C.GoString(C.ort_error_message(api(), status))
	C.ort_release_status(api(), status)
	return fmt.Errorf("onnx: %s", msg)
}

// Env is the ONNX Runtime environment. Create one per process.
type Env struct {
	env *C.OrtEnv
}

// NewEnv creates a new ONNX Runtime environment.
func NewEnv(name string) (*Env, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var env *C.OrtEnv
	if err := checkStatus(C.ort_create_env(api(), cName, &env)); err != nil {
		return nil, err
	}

	e := &Env{env: env}
	runtime.SetFinalizer(e, (*Env).Close)
	return e, nil
}

// SessionOption configures NewSession.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	threads int
}

// WithIntraOpThreads limits the threads used inside one operator. Zero
// keeps the runtime default.
func WithIntraOpThreads(n int) SessionOption {
	return func(c *sessionConfig) { c.threads = n }
}

// NewSession creates a session from in-memory ONNX model data.
func (e *Env) NewSession(modelData []byte, opts ...SessionOption) (*Session, error) {
	if len(modelData) == 0 {
		return nil, fmt.Errorf("onnx: empty model data")
	}
	var cfg sessionConfig
	for _, o := range opts {
		o(&cfg)
	}

	var sopts *C.OrtSessionOptions
	if err := checkStatus(C.ort_create_session_options(api(), C.int(cfg.threads), &sopts)); err != nil {
		return nil, err
	}
	defer C.ort_release_session_options(api(), sopts)

	var session *C.OrtSession
	if err := checkStatus(C.ort_create_session_from_memory(
		api(), e.env,
		unsafe.Pointer(&modelData[0]), C.size_t(len(modelData)),
		sopts, &session,
	)); err != nil {
		return nil, err
	}

	s := &Session{session: session, pinned: modelData}
	runtime.SetFinalizer(s, (*Session).Close)

	var err error
	if s.inputs, err = s.describe(true); err != nil {
		s.Close()
		return nil, err
	}
	if s.outputs, err = s.describe(false); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the environment.
func (e *Env) Close() error {
	if e.env != nil {
		C.ort_release_env(api(), e.env)
		e.env = nil
		runtime.SetFinalizer(e, nil)
	}
	return nil
}

// IOInfo describes one model input or output. Dynamic dimensions are -1.
type IOInfo struct {
	Name  string
	Shape []int64
}

// Elements returns the number of values per item, ignoring dynamic
// dimensions.
func (i IOInfo) Elements() int {
	n := 1
	for _, d := range i.Shape {
		if d > 0 {
			n *= int(d)
		}
	}
	return n
}

// Session holds a loaded ONNX model.
type Session struct {
	session *C.OrtSession
	pinned  any // prevents GC of model data
	inputs  []IOInfo
	outputs []IOInfo
}

func (s *Session) describe(input bool) ([]IOInfo, error) {
	isInput := C.int(0)
	if input {
		isInput = 1
	}
	var count C.size_t
	if err := checkStatus(C.ort_io_count(api(), s.session, isInput, &count)); err != nil {
		return nil, err
	}
	infos := make([]IOInfo, int(count))
	for i := range infos {
		var cName *C.char
		if err := checkStatus(C.ort_io_name(api(), s.session, isInput, C.size_t(i), &cName)); err != nil {
			return nil, err
		}
		infos[i].Name = C.GoString(cName)
		C.free(unsafe.Pointer(cName))

		var dims [maxDims]C.int64_t
		var ndim C.size_t
		if err := checkStatus(C.ort_io_shape(api(), s.session, isInput, C.size_t(i), &dims[0], maxDims, &ndim)); err != nil {
			return nil, err
		}
		if int(ndim) > maxDims {
			return nil, fmt.Errorf("onnx: %s has rank %d, max %d", infos[i].Name, ndim, maxDims)
		}
		infos[i].Shape = make([]int64, int(ndim))
		for d := range infos[i].Shape {
			infos[i].Shape[d] = int64(dims[d])
		}
	}
	return infos, nil
}

// Inputs describes the model inputs.
func (s *Session) Inputs() []IOInfo { return s.inputs }

// Outputs describes the model outputs.
func (s *Session) Outputs() []IOInfo { return s.outputs }

// OutputNames returns the names of all outputs in model order.
func (s *Session) OutputNames() []string {
	names := make([]string, len(s.outputs))
	for i, o := range s.outputs {
		names[i] = o.Name
	}
	return names
}

// Run executes inference with the given inputs and output names.
// Returns output tensors. The caller must close each output tensor.
func (s *Session) Run(inputNames []string, inputs []*Tensor, outputNames []string) ([]*Tensor, error) {
	if len(inputNames) != len(inputs) {
		return nil, fmt.Errorf("onnx: input names/tensors length mismatch: %d vs %d", len(inputNames), len(inputs))
	}
	if len(inputs) == 0 || len(outputNames) == 0 {
		return nil, fmt.Errorf("onnx: no inputs or outputs")
	}
	if s.session == nil {
		return nil, fmt.Errorf("onnx: session closed")
	}

	cInputNames := make([]*C.char, len(inputNames))
	for i, name := range inputNames {
		cInputNames[i] = C.CString(name)
		defer C.free(unsafe.Pointer(cInputNames[i]))
	}

	cInputs := make([]*C.OrtValue, len(inputs))
	for i, t := range inputs {
		cInputs[i] = t.value
	}

	cOutputNames := make([]*C.char, len(outputNames))
	for i, name := range outputNames {
		cOutputNames[i] = C.CString(name)
		defer C.free(unsafe.Pointer(cOutputNames[i]))
	}

	cOutputs := make([]*C.OrtValue, len(outputNames))

	status := C.ort_run(api(), s.session,
		&cInputNames[0], &cInputs[0], C.size_t(len(inputs)),
		&cOutputNames[0], C.size_t(len(outputNames)), &cOutputs[0],
	)
	if err := checkStatus(status); err != nil {
		return nil, err
	}

	outputs := make([]*Tensor, len(outputNames))
	for i, val := range cOutputs {
		outputs[i] = &Tensor{value: val, owned: true}
		runtime.SetFinalizer(outputs[i], (*Tensor).Close)
	}
	return outputs, nil
}

// Close releases the session.
func (s *Session) Close() error {
	if s.session != nil {
		C.ort_release_session(api(), s.session)
		s.session = nil
		runtime.SetFinalizer(s, nil)
	}
	return nil
}

// Tensor is an N-dimensional float32 tensor (OrtValue).
type Tensor struct {
	value  *C.OrtValue
	pinned any  // prevents GC of external data
	owned  bool // if true, Close releases the OrtValue
}

// NewTensor creates a float32 tensor with the given shape and data.
// The data slice must remain valid for the lifetime of the Tensor.
func NewTensor(shape []int64, data []float32) (*Tensor, error) {
	if len(data) == 0 || len(shape) == 0 {
		return nil, fmt.Errorf("onnx: empty tensor")
	}

	total := int64(1)
	for _, d := range shape {
		total *= d
	}
	if int64(len(data)) < total {
		return nil, fmt.Errorf("onnx: tensor data too short: got %d, need %d", len(data), total)
	}

	var memInfo *C.OrtMemoryInfo
	if err := checkStatus(C.ort_create_cpu_memory_info(api(), &memInfo)); err != nil {
		return nil, err
	}
	defer C.ort_release_memory_info(api(), memInfo)

	var value *C.OrtValue
	if err := checkStatus(C.ort_create_tensor_float(
		api(), memInfo,
		(*C.float)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		(*C.int64_t)(unsafe.Pointer(&shape[0])),
		C.size_t(len(shape)),
		&value,
	)); err != nil {
		return nil, err
	}

	t := &Tensor{value: value, pinned: data, owned: true}
	runtime.SetFinalizer(t, (*Tensor).Close)
	return t, nil
}

// FloatData copies the tensor data into a new float32 slice.
func (t *Tensor) FloatData() ([]float32, error) {
	shape, err := t.Shape()
	if err != nil {
		return nil, err
	}
	total := 1
	for _, d := range shape {
		total *= int(d)
	}
	if total <= 0 {
		return nil, nil
	}

	var ptr *C.float
	if err := checkStatus(C.ort_get_tensor_float_data(api(), t.value, &ptr)); err != nil {
		return nil, err
	}
	out := make([]float32, total)
	C.memcpy(unsafe.Pointer(&out[0]), unsafe.Pointer(ptr), C.size_t(total*4))
	return out, nil
}

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() ([]int64, error) {
	var ndim C.size_t
	if err := checkStatus(C.ort_get_tensor_ndim(api(), t.value, &ndim)); err != nil {
		return nil, err
	}
	if ndim == 0 {
		return nil, nil
	}

	shape := make([]int64, int(ndim))
	if err := checkStatus(C.ort_get_tensor_shape(api(), t.value, (*C.int64_t)(unsafe.Pointer(&shape[0])), ndim)); err != nil {
		return nil, err
	}
	return shape, nil
}

// Close releases the tensor.
func (t *Tensor) Close() error {
	if t.value != nil && t.owned {
		C.ort_release_value(api(), t.value)
		t.value = nil
		runtime.SetFinalizer(t, nil)
	}
	return nil
}
