package providers

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/inference"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Session is an inference.Gateway backed by an ONNX Runtime session.
//
// Outputs are allocated by the runtime on every call and copied out before the
// native values are released, so results never alias native memory.
type Session struct {
	runtime *Runtime
	config  Config
	logger  *zap.Logger

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	inputs  []ort.InputOutputInfo
	outputs []ort.InputOutputInfo
}

var _ inference.Gateway = (*Session)(nil)

// NewSession loads a model and prepares it for inference.
//
// Order of operations:
//  1. Artifact check: the model file must exist and be readable.
//  2. Metadata: input and output names are read from the model.
//  3. Session options: threading, graph optimization and the execution provider.
//  4. Session creation: loads the model and binds every declared output.
//
// Arguments:
//   - config: The gateway configuration.
//
// Returns:
//   - *Session: The session. Close it, or close the runtime, when done.
//   - error: A model load error if the artifact is missing or corrupt, or the
//     configuration is invalid.
func (r *Runtime) NewSession(config Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, common.NewError(common.KindModelLoad, errors.Wrap(err, "invalid session config"))
	}
	inputs, outputs, err := r.ModelInfo(config.ModelPath)
	if err != nil {
		return nil, err
	}

	inputNames := make([]string, 0, len(inputs))
	found := false
	for _, in := range inputs {
		inputNames = append(inputNames, in.Name)
		found = found || in.Name == config.InputName
	}
	if !found {
		return nil, common.Errorf(common.KindModelLoad, "model has no input %q (inputs: %v)", config.InputName, inputNames)
	}
	outputNames := make([]string, len(outputs))
	for i, out := range outputs {
		outputNames[i] = out.Name
	}

	provider, err := NewProvider(config)
	if err != nil {
		return nil, common.NewError(common.KindModelLoad, err)
	}
	options, err := OptimizedSessionOptions(config, provider, r.logger)
	if err != nil {
		return nil, common.NewError(common.KindModelLoad, err)
	}
	defer options.Destroy()

	native, err := ort.NewDynamicAdvancedSession(config.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, common.NewError(common.KindModelLoad, errors.Wrap(err, "error creating ORT session"))
	}

	s := &Session{
		runtime: r,
		config:  config,
		logger:  r.logger.With(zap.String("model", config.ModelPath)),
		session: native,
		inputs:  inputs,
		outputs: outputs,
	}
	if err := r.track(s); err != nil {
		native.Destroy()
		return nil, common.NewError(common.KindModelLoad, err)
	}

	s.logger.Info("model loaded",
		zap.String("backend", string(provider.Backend())),
		zap.Strings("inputs", inputNames),
		zap.Strings("outputs", outputNames),
	)
	return s, nil
}

// ModelInfo reads the declared inputs and outputs of a model file.
//
// Returns:
//   - inputs, outputs: The model metadata in declared order.
//   - error: A model load error if the file is missing, unreadable or declares
//     no outputs.
func (r *Runtime) ModelInfo(path string) ([]ort.InputOutputInfo, []ort.InputOutputInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, common.NewError(common.KindModelLoad, errors.Wrapf(err, "model artifact %s", path))
	}
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, nil, common.NewError(common.KindModelLoad, errors.Wrapf(err, "failed to read model metadata from %s", path))
	}
	if len(outputs) == 0 {
		return nil, nil, common.Errorf(common.KindModelLoad, "model %s declares no outputs", path)
	}
	return inputs, outputs, nil
}

// Inputs returns the model's declared inputs.
func (s *Session) Inputs() []ort.InputOutputInfo {
	return s.inputs
}

// OutputsInfo returns the model's declared outputs in order.
func (s *Session) OutputsInfo() []ort.InputOutputInfo {
	return s.outputs
}

// Run executes the model.
//
// Arguments:
//   - ctx: Checked before and after the native call, which cannot be interrupted.
//   - inputs: One tensor per model input, keyed by input name.
//
// Returns:
//   - inference.Outputs: Every model output in declared order.
//   - error: An inference error on missing inputs, shape conflicts, runtime
//     failures or non-float outputs.
func (s *Session) Run(ctx context.Context, inputs map[string]inference.Tensor) (inference.Outputs, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, common.Errorf(common.KindInference, "session is closed")
	}

	values := make([]ort.Value, 0, len(s.inputs))
	defer func() {
		for _, v := range values {
			v.Destroy()
		}
	}()
	for _, info := range s.inputs {
		t, ok := inputs[info.Name]
		if !ok {
			return nil, common.Errorf(common.KindInference, "missing input %q", info.Name)
		}
		if err := checkShape(info, t.Shape); err != nil {
			return nil, err
		}
		if err := checkData(info.Name, t); err != nil {
			return nil, err
		}
		v, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			return nil, common.NewError(common.KindInference, errors.Wrapf(err, "error creating input tensor %q", info.Name))
		}
		values = append(values, v)
	}

	results := make([]ort.Value, len(s.outputs))
	defer func() {
		for _, v := range results {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	start := time.Now()
	if err := s.session.Run(values, results); err != nil {
		return nil, common.NewError(common.KindInference, errors.Wrap(err, "failed to run inference"))
	}
	s.logger.Debug("inference complete", zap.Duration("elapsed", time.Since(start)))

	outs := make(inference.Outputs, len(results))
	for i, v := range results {
		name := s.outputs[i].Name
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, common.Errorf(common.KindInference, "output %q has unsupported type %T", name, v)
		}
		outs[i] = inference.Output{
			Name: name,
			Tensor: inference.Tensor{
				Shape: append([]int64(nil), t.GetShape()...),
				Data:  append([]float32(nil), t.GetData()...),
			},
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outs, nil
}

// checkShape rejects tensors that conflict with the fixed dimensions of a model input.
func checkShape(info ort.InputOutputInfo, shape []int64) error {
	if len(info.Dimensions) == 0 {
		return nil
	}
	if len(info.Dimensions) != len(shape) {
		return common.Errorf(common.KindInference, "input %q has rank %d, model expects %v", info.Name, len(shape), info.Dimensions)
	}
	for i, d := range info.Dimensions {
		if d > 0 && d != shape[i] {
			return common.Errorf(common.KindInference, "input %q has shape %v, model expects %v", info.Name, shape, info.Dimensions)
		}
	}
	return nil
}

// checkData rejects tensors whose shape does not describe their data.
func checkData(name string, t inference.Tensor) error {
	if n := t.Elements(); n < 0 || n != t.Len() {
		return common.Errorf(common.KindInference, "input %q has shape %v but %d values", name, t.Shape, t.Len())
	}
	return nil
}

// Close releases the native session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}

	err := s.session.Destroy()
	s.session = nil
	s.runtime.untrack(s)
	if err != nil {
		return errors.Wrap(err, "error destroying ORT session")
	}
	return nil
}
