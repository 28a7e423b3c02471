package detector

import (
	"github.com/nvr-ai/brewguard/inference"
	"github.com/nvr-ai/brewguard/inference/providers"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Builder assembles a Detector with a fluent API.
//
// Errors from every step are collected and reported together by Build.
type Builder struct {
	gateway inference.Gateway
	runtime *providers.Runtime
	session *providers.Config
	config  Config
	logger  *zap.Logger
	err     error
}

// NewBuilder creates a builder seeded with DefaultConfig.
//
// Returns:
//   - *Builder: The builder.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig sets the detector configuration.
//
// Arguments:
//   - config: The detector configuration.
//
// Returns:
//   - *Builder: The builder.
func (b *Builder) WithConfig(config Config) *Builder {
	if err := config.Validate(); err != nil {
		b.err = multierr.Append(b.err, errors.Wrap(err, "detector config"))
		return b
	}
	b.config = config
	return b
}

// WithGateway uses an existing gateway.
func (b *Builder) WithGateway(gateway inference.Gateway) *Builder {
	if gateway == nil {
		b.err = multierr.Append(b.err, errors.New("gateway is nil"))
		return b
	}
	b.gateway = gateway
	return b
}

// WithSession opens an ONNX Runtime session for the configured model when the
// detector is built.
//
// Arguments:
//   - runtime: The initialized runtime.
//   - config: The session configuration. An empty model path is taken from the
//     detector configuration and the input name always is.
//
// Returns:
//   - *Builder: The builder.
func (b *Builder) WithSession(runtime *providers.Runtime, config providers.Config) *Builder {
	if runtime == nil {
		b.err = multierr.Append(b.err, errors.New("runtime is nil"))
		return b
	}
	b.runtime = runtime
	b.session = &config
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// HasError checks if the builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *Builder) HasError() bool {
	return b.err != nil
}

// Build creates the detector.
//
// Returns:
//   - *Detector: The detector.
//   - error: Every error collected while building.
func (b *Builder) Build() (*Detector, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.gateway != nil && b.session != nil {
		return nil, errors.New("both a gateway and a session were configured")
	}

	gateway := b.gateway
	if b.session != nil {
		config := *b.session
		if config.ModelPath == "" {
			config.ModelPath = b.config.Model.Path
		}
		config.InputName = b.config.Model.InputName
		session, err := b.runtime.NewSession(config)
		if err != nil {
			return nil, err
		}
		gateway = session
	}
	if gateway == nil {
		return nil, errors.New("no gateway or session configured")
	}

	d, err := New(gateway, b.config, b.logger)
	if err != nil {
		return nil, multierr.Append(err, gateway.Close())
	}
	return d, nil
}

// MustBuild builds the detector and panics if there is an error.
//
// Returns:
//   - *Detector: The detector.
func (b *Builder) MustBuild() *Detector {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
