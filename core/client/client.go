// Package client exposes the high-level conversational API: Ask for one-shot
// prompts, Chat for ongoing transcripts, AskForObject for schema-validated
// structured answers. The client owns the agentic loop that alternates
// provider calls with local tool execution until a turn requests nothing
// further.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mitkury/aiwrapper/core/parse"
	"github.com/mitkury/aiwrapper/internal/jsonschema"
	"github.com/mitkury/aiwrapper/providers/ai"
)

// defaultMaxToolIterations is the safety valve on the tool loop: termination
// normally relies on the model producing a turn without tool calls, but a
// runaway exchange must not loop forever.
const defaultMaxToolIterations = 16

// SchemaValidator checks a parsed answer against a schema and returns
// human-readable violations, empty when the value conforms. Validation is an
// external collaborator; the client only routes its verdict into the
// conversation.
type SchemaValidator func(value any, schema *jsonschema.Schema) []string

// TokenBudgetFunc computes the effective max-token budget for one call from
// the model, the conversation so far, and the caller's explicit setting.
type TokenBudgetFunc func(model string, conversation *ai.Conversation, explicitMax int) int

// Client is the high-level entry point. Construct with [New]; zero value is
// not usable.
type Client struct {
	provider          ai.Provider
	tools             []ai.ToolDefinition
	model             string
	maxTokens         int
	temperature       *float32
	instructions      string
	maxToolIterations int
	validator         SchemaValidator
	tokenBudget       TokenBudgetFunc
}

// New creates a client bound to a provider.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	client := &Client{
		provider:          provider,
		maxToolIterations: defaultMaxToolIterations,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Ask sends a single prompt as a fresh conversation and runs it to
// completion, tools included.
func (c *Client) Ask(ctx context.Context, prompt string, opts ...SendOption) (*ai.Conversation, error) {
	return c.Chat(ctx, ai.NewConversationWithPrompt(prompt), opts...)
}

// Chat runs the conversation until the model produces a turn with no
// executable tool calls, alternating provider calls with tool execution. The
// conversation is always returned, partially mutated state included, so a
// mid-stream failure or cancellation does not discard progress.
func (c *Client) Chat(ctx context.Context, conversation *ai.Conversation, opts ...SendOption) (*ai.Conversation, error) {
	if conversation == nil {
		conversation = ai.NewConversation()
	}
	if len(conversation.Tools) == 0 {
		conversation.Tools = c.tools
	}
	if conversation.Instructions == "" {
		conversation.Instructions = c.instructions
	}

	send := &sendOptions{}
	for _, opt := range opts {
		opt(send)
	}

	for iteration := 0; ; iteration++ {
		if iteration >= c.maxToolIterations {
			return conversation, fmt.Errorf("tool iteration ceiling reached after %d provider calls", iteration)
		}

		callOptions := c.buildCallOptions(conversation, send)
		slog.Debug("sending conversation to provider",
			"provider", c.provider.Name(),
			"model", callOptions.Model,
			"messages", len(conversation.Messages),
			"iteration", iteration,
		)

		if err := c.provider.StreamConversation(ctx, conversation, callOptions); err != nil {
			return conversation, err
		}

		results := conversation.ExecuteToolCalls(ctx)
		if results == nil {
			conversation.Finished = true
			return conversation, nil
		}
	}
}

// AskForObject sends a prompt requesting structured output, then validates
// the final answer against the schema. A conforming answer sets the
// conversation's object to the parsed value with no validation errors; a
// non-conforming one pins the object to nil and records the violations.
// Validation failure is data, not an error return.
func (c *Client) AskForObject(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...SendOption) (*ai.Conversation, error) {
	opts = append(opts, WithSchema(schema))
	conversation, err := c.Ask(ctx, prompt, opts...)
	if err != nil {
		return conversation, err
	}

	value, parseErr := parse.JSONValue(conversation.Answer())
	if parseErr != nil {
		conversation.SetObject(nil)
		conversation.ValidationErrors = []string{fmt.Sprintf("answer is not valid JSON: %v", parseErr)}
		return conversation, nil
	}

	if c.validator != nil && schema != nil {
		if violations := c.validator(value, schema); len(violations) > 0 {
			conversation.SetObject(nil)
			conversation.ValidationErrors = violations
			return conversation, nil
		}
	}

	conversation.SetObject(value)
	conversation.ValidationErrors = []string{}
	return conversation, nil
}

func (c *Client) buildCallOptions(conversation *ai.Conversation, send *sendOptions) *ai.CallOptions {
	maxTokens := c.maxTokens
	if c.tokenBudget != nil {
		maxTokens = c.tokenBudget(c.model, conversation, c.maxTokens)
	}

	temperature := c.temperature
	if send.temperature != nil {
		temperature = send.temperature
	}

	return &ai.CallOptions{
		Model:        c.model,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		OnResult:     send.onResult,
		OutputSchema: send.schema,
		ExtraBody:    send.extraBody,
		ExtraHeaders: send.extraHeaders,
	}
}
