package providers

import (
	"fmt"
	"runtime"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Config configures the ONNX Runtime gateway.
type Config struct {
	// ModelPath specifies the path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// InputName is the model input fed with the image tensor.
	InputName string `json:"input_name" yaml:"input_name"`
	// Backend specifies the execution provider to use.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// FallbackToCPU keeps going on the CPU when the backend cannot be enabled.
	FallbackToCPU bool `json:"fallback_to_cpu" yaml:"fallback_to_cpu"`
	// Optimization holds session-level tuning.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`

	CoreML   CoreMLOptions   `json:"coreml"   yaml:"coreml"`
	CUDA     CUDAOptions     `json:"cuda"     yaml:"cuda"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns a CPU configuration with sensible defaults.
//
// Returns:
//   - Config: Production-ready configuration
//
// @example
// config := providers.DefaultConfig()
// config.ModelPath = "path/to/best.onnx"
// session, err := rt.NewSession(config)
func DefaultConfig() Config {
	return Config{
		InputName:     "images",
		Backend:       CPUProviderBackend,
		FallbackToCPU: true,
		Optimization:  DefaultOptimizationConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("model_path is required")
	}
	if strings.TrimSpace(c.InputName) == "" {
		return fmt.Errorf("input_name is required")
	}
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	return c.Optimization.Validate()
}

// OptimizationConfig contains ONNX Runtime session settings.
type OptimizationConfig struct {
	// GraphOptimization is one of disabled, basic, extended or all.
	GraphOptimization string `json:"graph_optimization" yaml:"graph_optimization"`
	// Parallel selects the parallel execution mode.
	Parallel bool `json:"parallel" yaml:"parallel"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero uses the runtime default.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops. Zero uses the runtime default.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`
}

var graphOptimizationLevels = map[string]ort.GraphOptimizationLevel{
	"disabled": ort.GraphOptimizationLevelDisableAll,
	"basic":    ort.GraphOptimizationLevelEnableBasic,
	"extended": ort.GraphOptimizationLevelEnableExtended,
	"all":      ort.GraphOptimizationLevelEnableAll,
}

// DefaultOptimizationConfig returns settings suited to single-image inference.
func DefaultOptimizationConfig() OptimizationConfig {
	numCPU := runtime.NumCPU()
	return OptimizationConfig{
		GraphOptimization: "extended",
		IntraOpNumThreads: max(1, numCPU/2),
		InterOpNumThreads: 1,
	}
}

// Validate checks the optimization settings.
func (o OptimizationConfig) Validate() error {
	if o.GraphOptimization != "" {
		if _, ok := graphOptimizationLevels[o.GraphOptimization]; !ok {
			return fmt.Errorf("unknown graph optimization level %q", o.GraphOptimization)
		}
	}
	if o.IntraOpNumThreads < 0 || o.InterOpNumThreads < 0 {
		return fmt.Errorf("thread counts must not be negative")
	}
	return nil
}

// Level returns the ONNX Runtime graph optimization level.
func (o OptimizationConfig) Level() ort.GraphOptimizationLevel {
	if level, ok := graphOptimizationLevels[o.GraphOptimization]; ok {
		return level
	}
	return ort.GraphOptimizationLevelEnableExtended
}
