package anthropic

import (
	"reflect"
	"testing"

	"github.com/mitkury/aiwrapper/providers/ai"
)

func feed(t *testing.T, d *decoder, payloads ...string) {
	t.Helper()
	for _, payload := range payloads {
		if err := d.handleEvent(payload); err != nil {
			t.Fatalf("unexpected decode error on %q: %v", payload, err)
		}
	}
}

// TestDecoderInterleavedTextAndThinking verifies block demultiplexing: text
// and thinking blocks streamed turn by turn accumulate independently without
// splitting either run.
func TestDecoderInterleavedTextAndThinking(t *testing.T) {
	conversation := ai.NewConversationWithPrompt("hi")
	d := newDecoder(conversation, nil)

	feed(t, d,
		`{"type":"message_start","message":{"id":"msg_1","usage":{"input_tokens":9}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"thinking"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Let me "}}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"The answer"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"think."}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":" is 4."}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_stop","index":1}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":6}}`,
		`{"type":"message_stop"}`,
	)
	d.finish()

	message := conversation.LastAssistantMessage()
	if got := message.Text(); got != "The answer is 4." {
		t.Errorf("unexpected text: %q", got)
	}
	if got := message.Reasoning(); got != "Let me think." {
		t.Errorf("unexpected reasoning: %q", got)
	}
	if got := message.Meta["stop_reason"]; got != "end_turn" {
		t.Errorf("expected recorded stop reason, got %q", got)
	}
	if conversation.Usage.PromptTokens != 9 || conversation.Usage.CompletionTokens != 6 {
		t.Errorf("unexpected usage: %+v", conversation.Usage)
	}
}

// TestDecoderToolUse verifies tool_use block decoding: identity from the
// start event, argument fragments via input_json_delta, parse on block stop.
func TestDecoderToolUse(t *testing.T) {
	conversation := ai.NewConversation()
	d := newDecoder(conversation, nil)

	feed(t, d,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"city\""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":": \"Oslo\"}"}}`,
		`{"type":"content_block_stop","index":0}`,
	)
	d.finish()

	calls := conversation.LastAssistantMessage().ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].CallID != "toolu_1" || calls[0].Name != "get_weather" {
		t.Errorf("unexpected identity: %+v", calls[0])
	}
	if !reflect.DeepEqual(calls[0].Arguments, map[string]any{"city": "Oslo"}) {
		t.Errorf("unexpected arguments: %v", calls[0].Arguments)
	}
}

// TestDecoderDeltaBeforeStart verifies implicit block creation: a delta for
// an index whose start event never arrived still lands, under a provisional
// id that the late start event rebinds.
func TestDecoderDeltaBeforeStart(t *testing.T) {
	conversation := ai.NewConversation()
	d := newDecoder(conversation, nil)

	feed(t, d,
		`{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"{\"x\": 1"}}`,
		`{"type":"content_block_start","index":2,"content_block":{"type":"tool_use","id":"toolu_late","name":"calc"}}`,
		`{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"}"}}`,
		`{"type":"content_block_stop","index":2}`,
	)
	d.finish()

	calls := conversation.LastAssistantMessage().ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call after rebinding, got %d", len(calls))
	}
	if calls[0].CallID != "toolu_late" || calls[0].Arguments["x"] != float64(1) {
		t.Errorf("fragments lost across the rebind: %+v", calls[0])
	}
}

// TestDecoderSummaryIndexParagraphBreak verifies that a summary index
// increase mid-block inserts a blank-line separator in the thinking run.
func TestDecoderSummaryIndexParagraphBreak(t *testing.T) {
	conversation := ai.NewConversation()
	d := newDecoder(conversation, nil)

	feed(t, d,
		`{"type":"content_block_start","index":0,"content_block":{"type":"thinking"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"First.","summary_index":0}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Second.","summary_index":1}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":" More.","summary_index":1}}`,
	)
	d.finish()

	want := "First.\n\nSecond. More."
	if got := conversation.LastAssistantMessage().Reasoning(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// TestDecoderErrorEvent verifies that explicit error events surface while
// malformed and unknown payloads are absorbed.
func TestDecoderErrorEvent(t *testing.T) {
	conversation := ai.NewConversation()
	d := newDecoder(conversation, nil)

	if err := d.handleEvent(`garbage`); err != nil {
		t.Errorf("malformed events must be absorbed, got %v", err)
	}
	if err := d.handleEvent(`{"type":"content_block_delta","index":0,"delta":{"type":"mystery_delta"}}`); err != nil {
		t.Errorf("unknown delta types must be absorbed, got %v", err)
	}
	if err := d.handleEvent(`{"type":"error","error":{"type":"overloaded_error","message":"try later"}}`); err == nil {
		t.Error("error events must surface as stream errors")
	}
}

// TestMessagesRequestFromConversation verifies the request mapping: system
// field, required max_tokens default, tool_use replay, and tool results as a
// user message of tool_result blocks.
func TestMessagesRequestFromConversation(t *testing.T) {
	conversation := ai.NewConversationWithPrompt("weather?")
	conversation.Instructions = "Be helpful."
	conversation.Tools = []ai.ToolDefinition{
		{Name: "get_weather", Description: "Current weather for a city"},
	}

	assistant := conversation.EnsureAssistantMessage()
	assistant.AppendReasoning("secret thoughts")
	assistant.UpsertToolCall("toolu_1", "get_weather", map[string]any{"city": "Oslo"})

	results := ai.NewMessage(ai.RoleToolResults)
	results.Items = append(results.Items, ai.Item{
		Kind: ai.ItemToolResult, CallID: "toolu_1", Name: "get_weather", Result: "sunny",
	})
	conversation.AddMessage(results)

	request := messagesRequestFromConversation(conversation, &ai.CallOptions{}, "claude-sonnet-4-5")

	if request.MaxTokens != defaultMaxTokens {
		t.Errorf("expected required max_tokens default, got %d", request.MaxTokens)
	}
	if request.System != "Be helpful." {
		t.Errorf("unexpected system: %q", request.System)
	}
	if len(request.Messages) != 3 {
		t.Fatalf("expected user + assistant + tool results, got %d", len(request.Messages))
	}

	assistantMsg := request.Messages[1]
	if len(assistantMsg.Content) != 1 || assistantMsg.Content[0].Type != "tool_use" {
		t.Errorf("reasoning must be dropped and tool_use kept: %+v", assistantMsg.Content)
	}

	resultMsg := request.Messages[2]
	if resultMsg.Role != "user" || resultMsg.Content[0].Type != "tool_result" || resultMsg.Content[0].ToolUseID != "toolu_1" {
		t.Errorf("tool results must ride in a user message of tool_result blocks: %+v", resultMsg)
	}
}
