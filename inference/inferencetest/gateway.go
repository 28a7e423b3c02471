// Package inferencetest provides a scriptable inference.Gateway for tests.
package inferencetest

import (
	"context"
	"sync"

	"github.com/nvr-ai/brewguard/inference"
)

// Gateway is a fake inference.Gateway that returns canned outputs.
type Gateway struct {
	mu sync.Mutex

	// Outputs are returned by Run when Err is nil.
	Outputs inference.Outputs
	// Err is returned by Run when set.
	Err error
	// RunFunc, when set, replaces the canned behaviour.
	RunFunc func(ctx context.Context, inputs map[string]inference.Tensor) (inference.Outputs, error)

	calls  []map[string]inference.Tensor
	closed bool
}

// NewGateway returns a gateway answering every call with a single output.
func NewGateway(name string, shape []int64, data []float32) *Gateway {
	return &Gateway{
		Outputs: inference.Outputs{{Name: name, Tensor: inference.Tensor{Shape: shape, Data: data}}},
	}
}

// Run records the inputs and returns the canned result.
func (g *Gateway) Run(ctx context.Context, inputs map[string]inference.Tensor) (inference.Outputs, error) {
	g.mu.Lock()
	g.calls = append(g.calls, inputs)
	fn, outs, err := g.RunFunc, g.Outputs, g.Err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, inputs)
	}
	if err != nil {
		return nil, err
	}
	return outs, nil
}

// Close marks the gateway closed.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Calls returns the inputs of every Run call so far.
func (g *Gateway) Calls() []map[string]inference.Tensor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]map[string]inference.Tensor(nil), g.calls...)
}

// Closed reports whether Close was called.
func (g *Gateway) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
