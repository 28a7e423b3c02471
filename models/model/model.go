// Package model - Detection model configuration.
package model

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/brewguard/models"
)

// Name is the unique identifier of a model.
type Name string

// ModelNameCoffeeLeaf is the coffee leaf condition detector.
const ModelNameCoffeeLeaf Name = "coffee-leaf"

// DefaultInputName is the input tensor name exported by the detector.
const DefaultInputName = "images"

// DefaultInputSize is the side of the square input the detector was trained on.
const DefaultInputSize = 640

// DefaultOutputNames are the conventional output tensor names, tried in order.
var DefaultOutputNames = []string{"output", "output0", "detection_output", "detections", "predictions"}

// Config describes how to feed a model and where to find its output.
type Config struct {
	// Name of the model.
	Name Name `json:"name" yaml:"name"`
	// Path of the model artifact, consumed by the runtime only.
	Path string `json:"path" yaml:"path"`
	// InputName is the name of the single image input.
	InputName string `json:"input_name" yaml:"input_name"`
	// InputSize is the side S of the S×S input.
	InputSize int `json:"input_size" yaml:"input_size"`
	// OutputNames are tried in order when picking the detection output.
	OutputNames []string `json:"output_names" yaml:"output_names"`
	// Classes in output slot order.
	Classes []string `json:"classes" yaml:"classes"`
}

// DefaultConfig returns the configuration of the coffee leaf detector.
func DefaultConfig() Config {
	return Config{
		Name:        ModelNameCoffeeLeaf,
		InputName:   DefaultInputName,
		InputSize:   DefaultInputSize,
		OutputNames: append([]string(nil), DefaultOutputNames...),
		Classes:     models.CoffeeLeafClasses.Names(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputName) == "" {
		return fmt.Errorf("model input name is required")
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("model input size must be positive, got %d", c.InputSize)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("model %q has no classes", c.Name)
	}
	return nil
}

// Shape is the input tensor shape [1, 3, S, S].
func (c Config) Shape() []int64 {
	s := int64(c.InputSize)
	return []int64{1, 3, s, s}
}
