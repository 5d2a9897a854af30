package openai

import (
	"reflect"
	"testing"

	"github.com/mitkury/aiwrapper/providers/ai"
)

// TestChatDecoderAccumulatesText verifies that content deltas build one
// contiguous text run and that the observer fires per mutation.
func TestChatDecoderAccumulatesText(t *testing.T) {
	conversation := ai.NewConversationWithPrompt("hi")
	var notifications int
	decoder := newChatDecoder(conversation, func(*ai.Message) { notifications++ })

	chunks := []string{
		`{"choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	}
	for _, chunk := range chunks {
		if err := decoder.handleEvent(chunk); err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
	}
	decoder.finish()

	if got := conversation.Answer(); got != "Hello" {
		t.Errorf("expected accumulated answer %q, got %q", "Hello", got)
	}
	if notifications != 2 {
		t.Errorf("expected 2 observer notifications, got %d", notifications)
	}
	if got := conversation.LastAssistantMessage().Meta["finish_reason"]; got != "stop" {
		t.Errorf("expected recorded finish reason, got %q", got)
	}
}

// TestChatDecoderToolCallByIndex verifies the index→id correlation: the id
// arrives once, later fragments address the call by position only, and
// argument fragments split across chunks converge to one parsed object.
func TestChatDecoderToolCallByIndex(t *testing.T) {
	conversation := ai.NewConversation()
	decoder := newChatDecoder(conversation, nil)

	chunks := []string{
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_abc","type":"function","function":{"name":"get_weather"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\": \"Os"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"lo\"}"}}]}}]}`,
	}
	for _, chunk := range chunks {
		if err := decoder.handleEvent(chunk); err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
	}
	decoder.finish()

	calls := conversation.LastAssistantMessage().ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].CallID != "call_abc" || calls[0].Name != "get_weather" {
		t.Errorf("unexpected call identity: %+v", calls[0])
	}
	if !reflect.DeepEqual(calls[0].Arguments, map[string]any{"city": "Oslo"}) {
		t.Errorf("expected converged arguments, got %v", calls[0].Arguments)
	}
}

// TestChatDecoderParallelToolCalls verifies that two calls streamed under
// different indices stay distinct and keep their own argument buffers.
func TestChatDecoderParallelToolCalls(t *testing.T) {
	conversation := ai.NewConversation()
	decoder := newChatDecoder(conversation, nil)

	chunks := []string{
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"first","arguments":"{\"a\""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_2","function":{"name":"second","arguments":"{\"b\""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":": 1}"}},{"index":1,"function":{"arguments":": 2}"}}]}}]}`,
	}
	for _, chunk := range chunks {
		if err := decoder.handleEvent(chunk); err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
	}
	decoder.finish()

	calls := conversation.LastAssistantMessage().ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].Arguments["a"] != float64(1) || calls[1].Arguments["b"] != float64(2) {
		t.Errorf("argument buffers leaked across indices: %v / %v", calls[0].Arguments, calls[1].Arguments)
	}
}

// TestChatDecoderMalformedChunkIsIgnored verifies that a broken chunk
// degrades to a no-op instead of failing the stream.
func TestChatDecoderMalformedChunkIsIgnored(t *testing.T) {
	conversation := ai.NewConversation()
	decoder := newChatDecoder(conversation, nil)

	if err := decoder.handleEvent(`{"choices":[{"delta":{"content":"ok"}}]}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := decoder.handleEvent(`{not json at all`); err != nil {
		t.Fatalf("malformed chunk must be absorbed, got %v", err)
	}
	if err := decoder.handleEvent(`{"choices":[{"delta":{"content":"!"}}]}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoder.finish()

	if got := conversation.Answer(); got != "ok!" {
		t.Errorf("expected %q, got %q", "ok!", got)
	}
}

// TestChatDecoderUnparsableArgumentsFallBack verifies the end-of-stream
// guarantee: arguments are never nil, even for garbage payloads.
func TestChatDecoderUnparsableArgumentsFallBack(t *testing.T) {
	conversation := ai.NewConversation()
	decoder := newChatDecoder(conversation, nil)

	_ = decoder.handleEvent(`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_x","function":{"name":"noop","arguments":"<<<"}}]}}]}`)
	decoder.finish()

	calls := conversation.LastAssistantMessage().ToolCalls()
	if len(calls) != 1 || calls[0].Arguments == nil {
		t.Fatalf("expected non-nil arguments after finish, got %+v", calls)
	}
}

// TestChatDecoderUsage verifies usage accounting from the final chunk.
func TestChatDecoderUsage(t *testing.T) {
	conversation := ai.NewConversation()
	decoder := newChatDecoder(conversation, nil)

	_ = decoder.handleEvent(`{"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":8,"total_tokens":20,"completion_tokens_details":{"reasoning_tokens":3}}}`)
	decoder.finish()

	if conversation.Usage.TotalTokens != 20 || conversation.Usage.ReasoningTokens != 3 {
		t.Errorf("unexpected usage: %+v", conversation.Usage)
	}
}

// TestChatRequestFromConversation verifies transcript mapping: instructions
// become a system message, reasoning items are dropped, and each tool result
// becomes its own role=tool message in call order.
func TestChatRequestFromConversation(t *testing.T) {
	conversation := ai.NewConversationWithPrompt("What's the weather?")
	conversation.Instructions = "Be brief."

	assistant := conversation.EnsureAssistantMessage()
	assistant.AppendReasoning("internal chain of thought")
	assistant.UpsertToolCall("call_1", "get_weather", map[string]any{"city": "Oslo"})

	results := ai.NewMessage(ai.RoleToolResults)
	results.Items = append(results.Items, ai.Item{
		Kind: ai.ItemToolResult, CallID: "call_1", Name: "get_weather",
		Result: ai.NewToolResultSuccess("sunny"),
	})
	conversation.AddMessage(results)

	request := chatRequestFromConversation(conversation, &ai.CallOptions{MaxTokens: 100}, "gpt-4o-mini")

	if len(request.Messages) != 4 {
		t.Fatalf("expected system+user+assistant+tool, got %d messages", len(request.Messages))
	}
	if request.Messages[0].Role != "system" || request.Messages[0].Content != "Be brief." {
		t.Errorf("instructions must map to a leading system message: %+v", request.Messages[0])
	}
	if request.Messages[2].Content != "" {
		t.Errorf("reasoning must not be resent as content, got %q", request.Messages[2].Content)
	}
	if len(request.Messages[2].ToolCalls) != 1 || request.Messages[2].ToolCalls[0].Function.Arguments != `{"city":"Oslo"}` {
		t.Errorf("unexpected assistant tool calls: %+v", request.Messages[2].ToolCalls)
	}
	if request.Messages[3].Role != "tool" || request.Messages[3].ToolCallID != "call_1" {
		t.Errorf("unexpected tool message: %+v", request.Messages[3])
	}
	if !request.Stream || request.StreamOptions == nil || !request.StreamOptions.IncludeUsage {
		t.Error("streaming with usage reporting must always be enabled")
	}
}
