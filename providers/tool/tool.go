// Package tool builds typed tool definitions from plain Go functions. The
// input schema advertised to the model is derived from the function's input
// type via reflection; at call time the model-supplied arguments are parsed
// back into that type, repairing almost-valid JSON along the way.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitkury/aiwrapper/core/parse"
	"github.com/mitkury/aiwrapper/internal/jsonschema"
	"github.com/mitkury/aiwrapper/providers/ai"
)

type options struct {
	description string
}

// Option configures a tool created via [NewTool].
type Option func(*options)

// WithDescription sets a human-readable description. Providers surface it to
// the model to help it decide when to invoke the tool.
func WithDescription(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// NewTool binds a name to a strongly-typed function and returns a tool
// definition ready to register on a conversation. The parameter schema for
// the input type I is derived via reflection.
//
// Example:
//
//	weather := tool.NewTool("get_weather", fetchWeather,
//	    tool.WithDescription("Current weather for a city."),
//	)
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), opts ...Option) ai.ToolDefinition {
	config := &options{}
	for _, opt := range opts {
		opt(config)
	}

	return ai.ToolDefinition{
		Name:        name,
		Description: config.description,
		Parameters:  jsonschema.GenerateJSONSchema[I](),
		Handler: func(ctx context.Context, arguments map[string]any) (any, error) {
			input, err := decodeInput[I](arguments)
			if err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			return function(ctx, input)
		},
	}
}

// Builtin declares a provider-side tool: it is advertised in requests but has
// no local handler, so the tool loop never executes it.
func Builtin(name, description string, parameters *jsonschema.Schema) ai.ToolDefinition {
	return ai.ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  parameters,
	}
}

// decodeInput round-trips the parsed argument map into the typed input. The
// map came from the argument buffer, so it is structurally sound JSON; the
// repair path in ParseStringAs covers the rest.
func decodeInput[I any](arguments map[string]any) (I, error) {
	var zero I
	encoded, err := json.Marshal(arguments)
	if err != nil {
		return zero, err
	}
	return parse.ParseStringAs[I](string(encoded))
}
