package inference

import (
	"context"

	"github.com/nvr-ai/brewguard/common"
)

// Gateway runs a model on named input tensors and returns its named outputs.
//
// Implementations report a missing or corrupt model with common.ErrModelLoad and
// runtime failures with common.ErrInference. Callers must not invoke Run
// concurrently on the same gateway.
type Gateway interface {
	Run(ctx context.Context, inputs map[string]Tensor) (Outputs, error)
	Close() error
}

// Output is a single named model output.
type Output struct {
	Name   string
	Tensor Tensor
}

// Outputs are model outputs in the order the model declares them.
type Outputs []Output

// Lookup returns the output with the given name.
func (o Outputs) Lookup(name string) (Output, bool) {
	for _, out := range o {
		if out.Name == name {
			return out, true
		}
	}
	return Output{}, false
}

// Names returns the output names in order.
func (o Outputs) Names() []string {
	names := make([]string, len(o))
	for i, out := range o {
		names[i] = out.Name
	}
	return names
}

// SelectOutput picks the detection output from a model's outputs.
//
// The candidate names are tried in order. When none is present the first output
// is used, since exporters do not agree on a name.
//
// Arguments:
//   - outputs: The outputs returned by a Gateway.
//   - candidates: Output names to try, in order of preference.
//
// Returns:
//   - Output: The selected output.
//   - error: An output format error if there are no outputs.
//
// @example
// out, err := inference.SelectOutput(outs, model.DefaultOutputNames)
func SelectOutput(outputs Outputs, candidates []string) (Output, error) {
	if len(outputs) == 0 {
		return Output{}, common.Errorf(common.KindOutputFormat, "model returned no outputs")
	}
	for _, name := range candidates {
		if out, ok := outputs.Lookup(name); ok {
			return out, nil
		}
	}
	return outputs[0], nil
}
