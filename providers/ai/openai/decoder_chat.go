package openai

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mitkury/aiwrapper/providers/ai"
)

// chatDecoder turns chat-completions streaming chunks into conversation
// mutations. Tool call deltas are correlated across chunks through an
// index→call-id table: the id arrives once, on the first chunk for a call,
// and later fragments address the call by position only. All argument
// buffering is keyed by the resolved call id, never by position, because the
// protocol may reuse indices across turns.
type chatDecoder struct {
	conversation *ai.Conversation
	onResult     ai.ResultObserver

	indexToCallID map[int]string
	arguments     map[string]*ai.ArgumentBuffer
}

func newChatDecoder(conversation *ai.Conversation, onResult ai.ResultObserver) *chatDecoder {
	return &chatDecoder{
		conversation:  conversation,
		onResult:      onResult,
		indexToCallID: map[int]string{},
		arguments:     map[string]*ai.ArgumentBuffer{},
	}
}

func (d *chatDecoder) handleEvent(payload string) error {
	var chunk chatStreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// Losing one malformed chunk must not abort the generation.
		slog.Debug("ignoring malformed chat completions chunk", "error", err)
		return nil
	}

	if chunk.Usage != nil {
		d.conversation.Usage.Add(ai.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
			ReasoningTokens:  reasoningTokens(chunk.Usage),
			CachedTokens:     cachedTokens(chunk.Usage),
		})
	}

	for _, choice := range chunk.Choices {
		d.applyDelta(choice.Delta)

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			d.conversation.EnsureAssistantMessage().SetMeta("finish_reason", *choice.FinishReason)
		}
	}

	return nil
}

func (d *chatDecoder) applyDelta(delta streamDelta) {
	message := d.conversation.EnsureAssistantMessage()

	if delta.Content != nil && *delta.Content != "" {
		message.AppendText(*delta.Content)
		d.notify(message)
	}

	if delta.Reasoning != nil && *delta.Reasoning != "" {
		message.AppendReasoning(*delta.Reasoning)
		d.notify(message)
	}

	for _, part := range delta.ToolCalls {
		callID := d.resolveCallID(part)

		// nil when the buffer has not parsed yet; UpsertToolCall keeps the
		// prior value in that case.
		var parsed map[string]any
		if part.Function.Arguments != "" {
			parsed = d.buffer(callID).Append(part.Function.Arguments)
		}

		message.UpsertToolCall(callID, part.Function.Name, parsed)
		d.notify(message)
	}
}

// resolveCallID maps a delta onto its stable call id. The first chunk for an
// index seeds the table; later id-less chunks consult it. A stream that never
// delivers an id for an index degrades to a synthetic positional id.
func (d *chatDecoder) resolveCallID(part streamToolCallPart) string {
	if part.ID != "" {
		d.indexToCallID[part.Index] = part.ID
		return part.ID
	}
	if callID, seen := d.indexToCallID[part.Index]; seen {
		return callID
	}
	callID := fmt.Sprintf("call_index_%d", part.Index)
	d.indexToCallID[part.Index] = callID
	return callID
}

func (d *chatDecoder) buffer(callID string) *ai.ArgumentBuffer {
	if buffer, ok := d.arguments[callID]; ok {
		return buffer
	}
	buffer := &ai.ArgumentBuffer{}
	d.arguments[callID] = buffer
	return buffer
}

// finish makes the terminal parse attempt over every still-buffered argument
// payload so no tool call is left with nil arguments.
func (d *chatDecoder) finish() {
	message := d.conversation.LastAssistantMessage()
	if message == nil {
		return
	}
	for callID, buffer := range d.arguments {
		message.UpsertToolCall(callID, "", buffer.Finalize())
	}
	if len(d.arguments) > 0 {
		d.notify(message)
	}
}

func (d *chatDecoder) notify(message *ai.Message) {
	if d.onResult != nil {
		d.onResult(message)
	}
}

func reasoningTokens(usage *chatUsage) int {
	if usage.CompletionTokensDetails == nil {
		return 0
	}
	return usage.CompletionTokensDetails.ReasoningTokens
}

func cachedTokens(usage *chatUsage) int {
	if usage.PromptTokensDetails == nil {
		return 0
	}
	return usage.PromptTokensDetails.CachedTokens
}
