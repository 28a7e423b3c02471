package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// OptimizedSessionOptions creates session options from the configuration and
// registers the execution provider.
//
// Arguments:
//   - config: The gateway configuration.
//   - provider: The execution provider to register.
//   - logger: Receives a warning when falling back to the CPU.
//
// Returns:
//   - *ort.SessionOptions: Options the caller must destroy.
//   - error: An error if the options cannot be created or the provider cannot
//     be enabled and fallback is disabled.
//
// @example
// options, err := OptimizedSessionOptions(config, provider, logger)
//
//	if err != nil {
//	    return err
//	}
//
// defer options.Destroy()
func OptimizedSessionOptions(config Config, provider ExecutionProvider, logger *zap.Logger) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	opt := config.Optimization
	mode := executionMode(opt.Parallel)
	for _, apply := range []func() error{
		func() error { return options.SetGraphOptimizationLevel(opt.Level()) },
		func() error { return options.SetExecutionMode(mode) },
		func() error { return options.SetIntraOpNumThreads(opt.IntraOpNumThreads) },
		func() error { return options.SetInterOpNumThreads(opt.InterOpNumThreads) },
	} {
		if err := apply(); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to configure session options: %w", err)
		}
	}

	if err := provider.Append(options); err != nil {
		if !config.FallbackToCPU {
			options.Destroy()
			return nil, err
		}
		logger.Warn("execution provider unavailable, using cpu",
			zap.String("backend", string(provider.Backend())),
			zap.Error(err),
		)
	}

	return options, nil
}

func executionMode(parallel bool) ort.ExecutionMode {
	if parallel {
		return ort.ExecutionModeParallel
	}
	return ort.ExecutionModeSequential
}
