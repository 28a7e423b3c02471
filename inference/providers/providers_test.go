package providers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap/zaptest"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderBackend
		wantErr bool
	}{
		{in: "", want: CPUProviderBackend},
		{in: "CoreML", want: CoreMLProviderBackend},
		{in: " cuda ", want: CUDAProviderBackend},
		{in: "openvino", want: OpenVINOProviderBackend},
		{in: "tensorrt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProvider(t *testing.T) {
	cfg := DefaultConfig()
	for _, backend := range Backends {
		cfg.Backend = backend
		p, err := NewProvider(cfg)
		require.NoError(t, err)
		assert.Equal(t, backend, p.Backend())
		assert.NotNil(t, p.Options())
	}

	cfg.Backend = "dnnl"
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "model path is required")

	cfg.ModelPath = "best.onnx"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.InputName = " "
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Optimization.GraphOptimization = "aggressive"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Optimization.IntraOpNumThreads = -1
	assert.Error(t, bad.Validate())

	assert.Equal(t, ort.GraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended), cfg.Optimization.Level())
	cfg.Optimization.GraphOptimization = "disabled"
	assert.Equal(t, ort.GraphOptimizationLevel(ort.GraphOptimizationLevelDisableAll), cfg.Optimization.Level())
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001|0x008|0x010), CoreMLOptions{
		CPUOnly:                  true,
		RequireStaticInputShapes: true,
		MLProgram:                true,
	}.Flags())
}

func TestProviderOptionMaps(t *testing.T) {
	cuda := CUDAOptions{DeviceID: 1, GPUMemLimit: 2 << 30, CudnnConvAlgoSearch: "HEURISTIC", PreferNHWC: true}.Map()
	assert.Equal(t, "1", cuda["device_id"])
	assert.Equal(t, "2147483648", cuda["gpu_mem_limit"])
	assert.Equal(t, "HEURISTIC", cuda["cudnn_conv_algo_search"])
	assert.Equal(t, "1", cuda["prefer_nhwc"])
	assert.NotContains(t, cuda, "arena_extend_strategy")

	assert.Empty(t, OpenVINOOptions{}.Map())
	ov := OpenVINOOptions{DeviceType: "GPU", Precision: "FP16", NumOfThreads: 4}.Map()
	assert.Equal(t, map[string]string{"device_type": "GPU", "precision": "FP16", "num_of_threads": "4"}, ov)
}

func TestGetSharedLibPathEnv(t *testing.T) {
	t.Setenv(SharedLibraryEnv, "/opt/onnxruntime/lib/libonnxruntime.so")
	p, err := GetSharedLibPath()
	require.NoError(t, err)
	assert.Equal(t, "/opt/onnxruntime/lib/libonnxruntime.so", p)
}

func TestNewRuntimeMissingLibrary(t *testing.T) {
	_, err := NewRuntime(RuntimeConfig{
		SharedLibraryPath: filepath.Join(t.TempDir(), "libonnxruntime.so"),
	}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelLoad)
}

func TestCheckShape(t *testing.T) {
	info := ort.InputOutputInfo{Name: "images", Dimensions: ort.NewShape(-1, 3, 640, 640)}
	assert.NoError(t, checkShape(info, []int64{1, 3, 640, 640}))
	assert.ErrorIs(t, checkShape(info, []int64{1, 3, 320, 320}), common.ErrInference)
	assert.ErrorIs(t, checkShape(info, []int64{3, 640, 640}), common.ErrInference)
	assert.NoError(t, checkShape(ort.InputOutputInfo{Name: "x"}, []int64{7}))
}

func TestCheckData(t *testing.T) {
	assert.NoError(t, checkData("images", inference.Tensor{Shape: []int64{1, 3, 2, 2}, Data: make([]float32, 12)}))
	assert.ErrorIs(t, checkData("images", inference.Tensor{Shape: []int64{1, 3, 2, 2}, Data: make([]float32, 11)}), common.ErrInference)
	assert.ErrorIs(t, checkData("images", inference.Tensor{Data: make([]float32, 4)}), common.ErrInference)
	assert.ErrorIs(t, checkData("images", inference.Tensor{Shape: []int64{1, 0}}), common.ErrInference)
}

func TestNativeEnumTypes(t *testing.T) {
	assert.Equal(t, ort.ExecutionMode(ort.ExecutionModeSequential), executionMode(false))
	assert.Equal(t, ort.ExecutionMode(ort.ExecutionModeParallel), executionMode(true))
	assert.Equal(t, ort.LoggingLevel(ort.LoggingLevelWarning), logLevel(false))
	assert.Equal(t, ort.LoggingLevel(ort.LoggingLevelVerbose), logLevel(true))
}

// TestSessionIntegration runs a real model when the runtime and a model are
// available, e.g. ONNXRUNTIME_SHARED_LIBRARY_PATH=... BREWGUARD_TEST_MODEL=best.onnx.
func TestSessionIntegration(t *testing.T) {
	lib := os.Getenv(SharedLibraryEnv)
	model := os.Getenv("BREWGUARD_TEST_MODEL")
	if lib == "" || model == "" {
		t.Skipf("set %s and BREWGUARD_TEST_MODEL to run", SharedLibraryEnv)
	}

	rt, err := NewRuntime(RuntimeConfig{SharedLibraryPath: lib}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer rt.Close()

	_, err = NewRuntime(RuntimeConfig{SharedLibraryPath: lib}, nil)
	assert.ErrorIs(t, err, common.ErrModelLoad, "only one runtime may be live")

	_, err = rt.NewSession(Config{ModelPath: filepath.Join(t.TempDir(), "missing.onnx"), InputName: "images"})
	assert.ErrorIs(t, err, common.ErrModelLoad)

	cfg := DefaultConfig()
	cfg.ModelPath = model
	s, err := rt.NewSession(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, s.OutputsInfo())

	in := inference.Tensor{Shape: []int64{1, 3, 640, 640}, Data: make([]float32, 3*640*640)}
	outs, err := s.Run(context.Background(), map[string]inference.Tensor{"images": in})
	require.NoError(t, err)
	require.Len(t, outs, len(s.OutputsInfo()))
	assert.NotEmpty(t, outs[0].Tensor.Data)

	_, err = s.Run(context.Background(), map[string]inference.Tensor{})
	assert.ErrorIs(t, err, common.ErrInference)

	require.NoError(t, s.Close())
	_, err = s.Run(context.Background(), map[string]inference.Tensor{"images": in})
	assert.ErrorIs(t, err, common.ErrInference)
}
