package client

import (
	"github.com/mitkury/aiwrapper/internal/jsonschema"
	"github.com/mitkury/aiwrapper/providers/ai"
)

// Option configures a [Client] at construction time.
type Option func(*Client)

// WithTools registers the tools seeded into every conversation that does not
// already carry its own.
func WithTools(tools ...ai.ToolDefinition) Option {
	return func(c *Client) {
		c.tools = tools
	}
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens sets the completion token budget. Zero means provider
// default.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithTemperature sets the default sampling temperature for every call.
func WithTemperature(temperature float32) Option {
	return func(c *Client) {
		c.temperature = &temperature
	}
}

// WithInstructions sets the system instructions seeded into conversations
// that do not already carry their own.
func WithInstructions(instructions string) Option {
	return func(c *Client) {
		c.instructions = instructions
	}
}

// WithMaxToolIterations caps the number of provider calls per Chat invocation.
// Values below one are ignored.
func WithMaxToolIterations(max int) Option {
	return func(c *Client) {
		if max > 0 {
			c.maxToolIterations = max
		}
	}
}

// WithValidator installs the schema validator used by AskForObject. Without
// one, any syntactically valid JSON answer is accepted.
func WithValidator(validator SchemaValidator) Option {
	return func(c *Client) {
		c.validator = validator
	}
}

// WithTokenBudget installs a dynamic token budget. When set it replaces the
// static WithMaxTokens value on every call.
func WithTokenBudget(budget TokenBudgetFunc) Option {
	return func(c *Client) {
		c.tokenBudget = budget
	}
}

type sendOptions struct {
	onResult     ai.ResultObserver
	schema       *jsonschema.Schema
	temperature  *float32
	extraBody    map[string]any
	extraHeaders map[string]string
}

// SendOption configures a single Ask, Chat or AskForObject call.
type SendOption func(*sendOptions)

// WithOnResult registers an observer invoked after every mutation of the
// in-progress assistant message, enabling incremental rendering.
func WithOnResult(observer ai.ResultObserver) SendOption {
	return func(s *sendOptions) {
		s.onResult = observer
	}
}

// WithSchema requests structured output conforming to the schema. Providers
// with native structured output use it directly; others receive it as an
// instruction suffix.
func WithSchema(schema *jsonschema.Schema) SendOption {
	return func(s *sendOptions) {
		s.schema = schema
	}
}

// WithSendTemperature overrides the client's default temperature for this
// call only.
func WithSendTemperature(temperature float32) SendOption {
	return func(s *sendOptions) {
		s.temperature = &temperature
	}
}

// WithExtraBody merges additional fields into the provider request body after
// standard assembly, so it can override anything.
func WithExtraBody(body map[string]any) SendOption {
	return func(s *sendOptions) {
		s.extraBody = body
	}
}

// WithExtraHeaders adds HTTP headers to provider requests.
func WithExtraHeaders(headers map[string]string) SendOption {
	return func(s *sendOptions) {
		s.extraHeaders = headers
	}
}
