package ai

import (
	"context"
	"encoding/json"

	"github.com/mitkury/aiwrapper/internal/jsonschema"
)

// ToolHandler executes one tool call. Arguments are the parsed call
// arguments (never nil once a stream has finished). The returned value is
// serialized into the tool result sent back to the provider.
type ToolHandler func(ctx context.Context, arguments map[string]any) (any, error)

// ToolDefinition describes a tool the model may invoke. A definition with a
// nil Handler is a provider-builtin tool: it is advertised in requests but
// executed server-side, so the local tool loop skips it.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Handler     ToolHandler        `json:"-"`
}

// ToolResult is the standardized tool execution outcome fed back to the
// model. A uniform success/error shape makes outcomes easier for models to
// interpret than raw values mixed with error strings.
type ToolResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`   // Machine-readable error code if success=false
	Message string `json:"message,omitempty"` // Human-readable detail
	Data    any    `json:"data,omitempty"`    // Actual result data if success=true
}

// NewToolResultSuccess creates a successful tool result wrapping data.
func NewToolResultSuccess(data any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

// NewToolResultError creates a failed tool result. errorType is a
// machine-readable code such as "tool_execution_failed".
func NewToolResultError(errorType, message string) ToolResult {
	return ToolResult{Success: false, Error: errorType, Message: message}
}

// SerializeResult renders a tool result payload as the string providers
// expect in tool-result content. Non-string values are JSON-encoded.
func SerializeResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(encoded)
}
