package adapters

import (
	"context"

	"github.com/yairfalse/seppo/pkg/types"
)

// ComponentAdapter is the only boundary the orchestration core sees of a
// component type. Adapters do one deploy attempt and report how it went;
// retries, timeouts and concurrency belong to the executor, never here.
type ComponentAdapter interface {
	// Type returns the component type this adapter drives
	Type() types.ComponentType

	// Deploy performs one deployment attempt for the given component.
	// A nil error means success; the output carries a human-readable
	// message and optional details for the run report.
	Deploy(ctx context.Context, component types.Component) (*types.DeployOutput, error)
}

// AdapterInfo provides metadata about a registered adapter
type AdapterInfo struct {
	Type        types.ComponentType `json:"type"`
	Description string              `json:"description"`
}
