// Package schema holds the contract every sakit tool satisfies.
package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface all LLM-callable tools must satisfy.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	// Execute runs the tool. Failures the caller should see are reported in
	// the returned JSON document; a non-nil error means the result could not
	// be produced at all.
	Execute(ctx context.Context, params map[string]any) (string, error)
}
