// Package ai defines the provider-agnostic conversation model and the
// Provider contract every vendor adapter implements.
//
// A Conversation is an ordered transcript of Messages, each built from typed
// content items (text, reasoning, images, tool calls, tool results). Stream
// decoders in the vendor packages mutate the conversation in place as events
// arrive; the model exposes the mutation primitives they need without any
// knowledge of wire formats.
package ai
