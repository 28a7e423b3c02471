package providers

import (
	"os"
	"sync"

	"github.com/nvr-ai/brewguard/common"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// The ONNX Runtime environment is process wide. envOwner is the Runtime that
// initialized it.
var (
	envMu    sync.Mutex
	envOwner *Runtime
)

// RuntimeConfig configures the ONNX Runtime environment.
type RuntimeConfig struct {
	// SharedLibraryPath locates the onnxruntime shared library. Empty uses GetSharedLibPath.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
	// Verbose enables verbose native logging.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// Runtime owns the ONNX Runtime environment and the sessions created from it.
//
// At most one Runtime is live per process. Closing it closes its sessions and
// tears the environment down, after which a new Runtime may be created.
type Runtime struct {
	libPath string
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// NewRuntime loads the shared library and initializes the environment.
//
// Arguments:
//   - config: The runtime configuration.
//   - logger: The logger, may be nil.
//
// Returns:
//   - *Runtime: The runtime. Close it when done.
//   - error: A model load error if the library is missing or fails to initialize.
func NewRuntime(config RuntimeConfig, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	libPath := config.SharedLibraryPath
	if libPath == "" {
		p, err := GetSharedLibPath()
		if err != nil {
			return nil, common.NewError(common.KindModelLoad, err)
		}
		libPath = p
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, common.NewError(common.KindModelLoad,
			errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath))
	}

	envMu.Lock()
	defer envMu.Unlock()

	if envOwner != nil || ort.IsInitialized() {
		return nil, common.Errorf(common.KindModelLoad, "ONNX Runtime environment is already initialized")
	}

	ort.SetEnvironmentLogLevel(logLevel(config.Verbose))
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, common.NewError(common.KindModelLoad, errors.Wrap(err, "error initializing ORT environment"))
	}

	r := &Runtime{
		libPath:  libPath,
		logger:   logger,
		sessions: make(map[*Session]struct{}),
	}
	envOwner = r
	logger.Info("onnxruntime initialized", zap.String("library", libPath))
	return r, nil
}

// LibraryPath returns the shared library in use.
func (r *Runtime) LibraryPath() string {
	return r.libPath
}

// Close closes every open session and destroys the environment.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.Close())
	}

	envMu.Lock()
	defer envMu.Unlock()
	if envOwner == r {
		err = multierr.Append(err, ort.DestroyEnvironment())
		envOwner = nil
	}
	return err
}

func (r *Runtime) track(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("runtime is closed")
	}
	r.sessions[s] = struct{}{}
	return nil
}

func (r *Runtime) untrack(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

func logLevel(verbose bool) ort.LoggingLevel {
	if verbose {
		return ort.LoggingLevelVerbose
	}
	return ort.LoggingLevelWarning
}
