package anthropic

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mitkury/aiwrapper/providers/ai"
)

// decoder turns content-block streaming events into conversation mutations.
// Blocks open with a type discriminator, stream block-scoped deltas addressed
// by index, and close; the decoder demultiplexes them through a per-stream
// index table. Argument buffering is keyed by the tool-use id, not the block
// index, since indices are a per-stream addressing detail.
type decoder struct {
	conversation *ai.Conversation
	onResult     ai.ResultObserver

	blocks    map[int]*blockState
	arguments map[string]*ai.ArgumentBuffer // keyed by tool-use id
}

// blockState tracks one open content block.
type blockState struct {
	kind         string // "text", "thinking", "tool_use"
	callID       string // tool_use only
	summaryIndex int    // thinking only; last seen summary index
	sawSummary   bool
}

func newDecoder(conversation *ai.Conversation, onResult ai.ResultObserver) *decoder {
	return &decoder{
		conversation: conversation,
		onResult:     onResult,
		blocks:       map[int]*blockState{},
		arguments:    map[string]*ai.ArgumentBuffer{},
	}
}

func (d *decoder) handleEvent(payload string) error {
	var event streamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Debug("ignoring malformed stream event", "error", err)
		return nil
	}

	switch event.Type {
	case "message_start":
		d.handleMessageStart(event.Message)

	case "content_block_start":
		d.handleBlockStart(event.Index, event.ContentBlock)

	case "content_block_delta":
		d.handleBlockDelta(event.Index, event.Delta)

	case "content_block_stop":
		d.handleBlockStop(event.Index)

	case "message_delta":
		d.handleMessageDelta(event)

	case "error":
		if event.Error != nil {
			return fmt.Errorf("provider stream error: %s (%s)", event.Error.Message, event.Error.Type)
		}
		return fmt.Errorf("provider stream error without detail")

	case "message_stop", "ping":
		// Nothing to apply.

	default:
		// Unknown event types are cosmetic until proven otherwise.
	}

	return nil
}

func (d *decoder) handleMessageStart(start *messageStart) {
	if start == nil {
		return
	}
	message := d.conversation.EnsureAssistantMessage()
	if start.ID != "" {
		message.SetMeta("message_id", start.ID)
	}
	if start.Usage != nil {
		d.conversation.Usage.Add(ai.Usage{
			PromptTokens: start.Usage.InputTokens,
			TotalTokens:  start.Usage.InputTokens,
			CachedTokens: start.Usage.CacheReadInputTokens,
		})
	}
}

func (d *decoder) handleBlockStart(index int, block *wireBlock) {
	if block == nil {
		return
	}

	state := d.ensureBlock(index, block.Type)
	state.kind = block.Type

	if block.Type == "tool_use" {
		message := d.conversation.EnsureAssistantMessage()
		callID := block.ID
		if callID == "" {
			callID = provisionalCallID(index)
		}

		// Deltas that outran this start event were filed under the
		// provisional id; rebind them.
		if state.callID != "" && state.callID != callID {
			message.RenameToolCall(state.callID, callID)
			if buffer, ok := d.arguments[state.callID]; ok {
				d.arguments[callID] = buffer
				delete(d.arguments, state.callID)
			}
		}
		state.callID = callID

		var parsed map[string]any
		if len(block.Input) > 0 {
			parsed = d.buffer(callID).SetParsed(block.Input)
		}
		message.UpsertToolCall(callID, block.Name, parsed)
		d.notify(message)
	}
}

func (d *decoder) handleBlockDelta(index int, delta *blockDelta) {
	if delta == nil {
		return
	}
	message := d.conversation.EnsureAssistantMessage()

	switch delta.Type {
	case "text_delta":
		if delta.Text == "" {
			return
		}
		d.ensureBlock(index, "text")
		message.AppendText(delta.Text)
		d.notify(message)

	case "thinking_delta":
		if delta.Thinking == "" {
			return
		}
		state := d.ensureBlock(index, "thinking")

		// A summary index increase mid-block is a paragraph boundary.
		if state.sawSummary && delta.SummaryIndex > state.summaryIndex {
			message.AppendReasoning("\n\n")
		}
		state.summaryIndex = delta.SummaryIndex
		state.sawSummary = true

		message.AppendReasoning(delta.Thinking)
		d.notify(message)

	case "input_json_delta":
		if delta.PartialJSON == "" {
			return
		}
		state := d.ensureBlock(index, "tool_use")
		if state.callID == "" {
			state.callID = provisionalCallID(index)
		}
		message.UpsertToolCall(state.callID, "", d.buffer(state.callID).Append(delta.PartialJSON))
		d.notify(message)

	case "signature_delta":
		// Thinking signatures are not carried in the model.

	default:
		slog.Debug("ignoring unknown content block delta", "delta_type", delta.Type)
	}
}

// handleBlockStop finalizes a closing tool_use block so its arguments are
// parsed as soon as the block is complete, not only at stream end.
func (d *decoder) handleBlockStop(index int) {
	state, seen := d.blocks[index]
	if !seen || state.kind != "tool_use" || state.callID == "" {
		return
	}
	message := d.conversation.EnsureAssistantMessage()
	message.UpsertToolCall(state.callID, "", d.buffer(state.callID).Finalize())
	d.notify(message)
}

func (d *decoder) handleMessageDelta(event streamEvent) {
	message := d.conversation.EnsureAssistantMessage()
	if event.Delta != nil && event.Delta.StopReason != "" {
		message.SetMeta("stop_reason", event.Delta.StopReason)
	}
	if event.Usage != nil {
		d.conversation.Usage.Add(ai.Usage{
			CompletionTokens: event.Usage.OutputTokens,
			TotalTokens:      event.Usage.OutputTokens,
		})
	}
}

// ensureBlock returns the state for a block index, creating it when a delta
// arrives before (or without) its start event.
func (d *decoder) ensureBlock(index int, kind string) *blockState {
	if state, seen := d.blocks[index]; seen {
		return state
	}
	state := &blockState{kind: kind}
	d.blocks[index] = state
	return state
}

func (d *decoder) buffer(callID string) *ai.ArgumentBuffer {
	if buffer, ok := d.arguments[callID]; ok {
		return buffer
	}
	buffer := &ai.ArgumentBuffer{}
	d.arguments[callID] = buffer
	return buffer
}

func provisionalCallID(index int) string {
	return fmt.Sprintf("block_%d", index)
}

// finish makes the terminal parse pass over every argument buffer so no tool
// call ends the stream with nil arguments.
func (d *decoder) finish() {
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

func (d *decoder) notify(message *ai.Message) {
	if d.onResult != nil {
		d.onResult(message)
	}
}
