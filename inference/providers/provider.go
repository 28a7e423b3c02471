// Package providers - ONNX Runtime execution providers and sessions.
package providers

import (
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	Backend() ProviderBackend
	Options() ProviderOptions
	// Append registers the provider with the session options.
	Append(options *ort.SessionOptions) error
}

// Backends lists the supported backends.
var Backends = []ProviderBackend{
	CPUProviderBackend,
	CoreMLProviderBackend,
	CUDAProviderBackend,
	OpenVINOProviderBackend,
}

// ParseBackend resolves a backend name. The empty string selects the CPU.
func ParseBackend(name string) (ProviderBackend, error) {
	b := ProviderBackend(strings.ToLower(strings.TrimSpace(name)))
	if b == "" {
		return CPUProviderBackend, nil
	}
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("no matching provider backend registered: %s", name)
}

// NewProvider creates a new provider for the configured backend.
//
// Arguments:
//   - config: The provider configuration. The options block matching the backend is used.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the backend is unknown.
func NewProvider(config Config) (ExecutionProvider, error) {
	switch config.Backend {
	case CPUProviderBackend, "":
		return NewCPUProvider(), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(config.CoreML), nil
	case CUDAProviderBackend:
		return NewCUDAProvider(config.CUDA), nil
	case OpenVINOProviderBackend:
		return NewOpenVINOProvider(config.OpenVINO), nil
	default:
		return nil, fmt.Errorf("no matching provider backend registered: %s", config.Backend)
	}
}
