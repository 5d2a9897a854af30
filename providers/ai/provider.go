package ai

import (
	"context"

	"github.com/mitkury/aiwrapper/internal/jsonschema"
)

// ResultObserver is invoked after each externally observable mutation of the
// in-progress assistant message during streaming. It is called synchronously
// from the decoder, in event order; implementations should return quickly.
type ResultObserver func(message *Message)

// CallOptions carry the per-call parameters an adapter needs to build a
// vendor request. Adapters read, never mutate, this value.
type CallOptions struct {
	// Model is the provider model identifier. Empty means the provider's
	// configured default.
	Model string

	// MaxTokens caps the response length. Zero lets the provider decide
	// (or applies a vendor-required default).
	MaxTokens int

	// Temperature is the sampling temperature. Nil means provider default.
	Temperature *float32

	// OnResult observes the in-progress assistant message after each
	// meaningful streaming mutation.
	OnResult ResultObserver

	// OutputSchema, when set, requests structured output conforming to the
	// schema using the provider's native mechanism.
	OutputSchema *jsonschema.Schema

	// ExtraBody entries are merged over the generated request body, for
	// provider-specific parameters the model does not cover.
	ExtraBody map[string]any

	// ExtraHeaders are added to the HTTP request.
	ExtraHeaders map[string]string
}

// Provider is the contract every vendor adapter implements. One call sends
// the conversation, streams the response, and mutates the conversation in
// place: the in-progress assistant message accumulates text, reasoning,
// images, and tool calls as events arrive. Partial mutations survive an
// error return; callers decide whether to keep or discard them.
type Provider interface {
	// Name returns a short identifier used in logs.
	Name() string

	// StreamConversation issues one provider call for the conversation and
	// applies the streamed response to it. Returns the context error when
	// cancelled mid-stream.
	StreamConversation(ctx context.Context, conversation *Conversation, options *CallOptions) error
}
