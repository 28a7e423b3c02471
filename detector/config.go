// Package detector - Single-image coffee leaf condition detection.
package detector

import (
	"os"

	"github.com/nvr-ai/brewguard/images"
	"github.com/nvr-ai/brewguard/models"
	"github.com/nvr-ai/brewguard/models/model"
	"github.com/nvr-ai/brewguard/models/postprocess"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config configures a Detector.
type Config struct {
	// Model describes the model input and outputs.
	Model model.Config `json:"model" yaml:"model"`
	// Thresholds filter decoded rows.
	Thresholds postprocess.Thresholds `json:"thresholds" yaml:"thresholds"`
	// Resample is the filter used to resize images to the model input.
	Resample images.ResampleFilter `json:"resample" yaml:"resample"`
	// AutoOrient applies EXIF orientation when decoding.
	AutoOrient bool `json:"auto_orient" yaml:"auto_orient"`
}

// DefaultConfig returns a production-ready configuration for the coffee leaf model.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := detector.DefaultConfig()
// config.Thresholds.Confidence = 0.4
// d, err := detector.New(gateway, config, logger)
func DefaultConfig() Config {
	return Config{
		Model:      model.DefaultConfig(),
		Thresholds: postprocess.DefaultThresholds(),
		Resample:   images.BilinearFilter,
		AutoOrient: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return errors.Wrap(err, "invalid model config")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return errors.Wrap(err, "invalid thresholds")
	}
	if _, err := images.ParseFilter(string(c.Resample)); err != nil {
		return err
	}
	return nil
}

// Classes builds the class catalog from the configured names.
func (c Config) Classes() (*models.OutputClassSet, error) {
	return models.NewOutputClassSet(string(c.Model.Name), "config", c.Model.Classes...)
}

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their DefaultConfig values.
//
// Arguments:
//   - path: The YAML file path.
//
// Returns:
//   - Config: The merged, validated configuration.
//   - error: An error if the file cannot be read, parsed or validated.
//
// @example
// # detector.yaml
// model:
//   path: models/best.onnx
//   input_size: 640
// thresholds:
//   confidence_threshold: 0.3
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
