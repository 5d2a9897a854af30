package openai

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mitkury/aiwrapper/providers/ai"
)

// responsesDecoder turns responses-API streaming events into conversation
// mutations. Items are announced ("output_item.added"), updated through typed
// deltas addressed by item id, and closed ("output_item.done"); the decoder
// keeps an item-id table for the lifetime of the stream.
//
// Ordering between "added" and the first delta is not guaranteed by every
// host, so a delta for an unseen item id creates the item implicitly. For
// function calls created that way the item id doubles as a provisional call
// id until the added event delivers the real one.
type responsesDecoder struct {
	conversation *ai.Conversation
	onResult     ai.ResultObserver

	items     map[string]*responsesItemState
	arguments map[string]*ai.ArgumentBuffer // keyed by call id
}

// responsesItemState tracks one in-flight output item.
type responsesItemState struct {
	kind         string // "message", "reasoning", "function_call", "image_generation_call"
	callID       string // function_call only
	imageIndex   int    // image_generation_call only; -1 until the image item exists
	summaryIndex int    // reasoning only; last seen summary index
	sawSummary   bool
}

func newResponsesDecoder(conversation *ai.Conversation, onResult ai.ResultObserver) *responsesDecoder {
	return &responsesDecoder{
		conversation: conversation,
		onResult:     onResult,
		items:        map[string]*responsesItemState{},
		arguments:    map[string]*ai.ArgumentBuffer{},
	}
}

func (d *responsesDecoder) handleEvent(payload string) error {
	var event responsesEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Debug("ignoring malformed responses event", "error", err)
		return nil
	}

	switch event.Type {
	case "response.created", "response.in_progress":
		if event.Response != nil && event.Response.ID != "" {
			d.conversation.EnsureAssistantMessage().SetMeta(ai.MetaResponseID, event.Response.ID)
		}

	case "response.output_item.added":
		d.handleItemAdded(event.Item)

	case "response.output_text.delta":
		d.handleTextDelta(event)

	case "response.reasoning_summary_text.delta":
		d.handleReasoningDelta(event)

	case "response.function_call_arguments.delta":
		d.handleArgumentsDelta(event)

	case "response.function_call_arguments.done":
		d.handleArgumentsDone(event)

	case "response.image_generation_call.partial_image":
		d.handlePartialImage(event)

	case "response.output_item.done":
		d.handleItemDone(event.Item)

	case "response.completed":
		d.handleCompleted(event.Response)

	case "response.failed":
		return d.failure(event.Response)

	case "error":
		return fmt.Errorf("provider stream error: %s (%s)", event.Message, event.Code)

	default:
		// Cosmetic and unknown event types (content_part boundaries, text
		// done echoes) carry nothing the model needs.
	}

	return nil
}

func (d *responsesDecoder) handleItemAdded(item *responsesOutputItem) {
	if item == nil || item.ID == "" {
		return
	}

	state, seen := d.items[item.ID]
	if !seen {
		state = &responsesItemState{kind: item.Type, imageIndex: -1}
		d.items[item.ID] = state
	}
	if state.kind == "" {
		state.kind = item.Type
	}

	if item.Type == "function_call" {
		message := d.conversation.EnsureAssistantMessage()
		callID := item.CallID
		if callID == "" {
			callID = item.ID
		}

		// Deltas may have arrived before this event under the provisional
		// item-id key; rebind them to the real call id.
		if state.callID != "" && state.callID != callID {
			message.RenameToolCall(state.callID, callID)
			if buffer, ok := d.arguments[state.callID]; ok {
				d.arguments[callID] = buffer
				delete(d.arguments, state.callID)
			}
		}
		state.callID = callID

		message.UpsertToolCall(callID, item.Name, nil)
		if item.Arguments != "" {
			message.UpsertToolCall(callID, "", d.buffer(callID).Append(item.Arguments))
		}
		d.notify(message)
	}

	if item.Type == "image_generation_call" && state.imageIndex < 0 {
		message := d.conversation.EnsureAssistantMessage()
		state.imageIndex = message.AddImage(ai.Image{})
		d.notify(message)
	}
}

func (d *responsesDecoder) handleTextDelta(event responsesEvent) {
	if event.Delta == "" {
		return
	}
	d.ensureItem(event.ItemID, "message")
	message := d.conversation.EnsureAssistantMessage()
	message.AppendText(event.Delta)
	d.notify(message)
}

// handleReasoningDelta accumulates reasoning summaries. A summary index
// increase mid-item marks a new summary paragraph; the decoder joins them
// with a blank line.
func (d *responsesDecoder) handleReasoningDelta(event responsesEvent) {
	if event.Delta == "" {
		return
	}
	state := d.ensureItem(event.ItemID, "reasoning")
	message := d.conversation.EnsureAssistantMessage()

	if state.sawSummary && event.SummaryIndex > state.summaryIndex {
		message.AppendReasoning("\n\n")
	}
	state.summaryIndex = event.SummaryIndex
	state.sawSummary = true

	message.AppendReasoning(event.Delta)
	d.notify(message)
}

func (d *responsesDecoder) handleArgumentsDelta(event responsesEvent) {
	if event.Delta == "" {
		return
	}
	state := d.ensureItem(event.ItemID, "function_call")
	if state.callID == "" {
		// Provisional identity until output_item.added names the call.
		state.callID = event.ItemID
	}

	message := d.conversation.EnsureAssistantMessage()
	message.UpsertToolCall(state.callID, "", d.buffer(state.callID).Append(event.Delta))
	d.notify(message)
}

func (d *responsesDecoder) handleArgumentsDone(event responsesEvent) {
	state := d.ensureItem(event.ItemID, "function_call")
	if state.callID == "" {
		state.callID = event.ItemID
	}

	buffer := d.buffer(state.callID)
	if event.Arguments != "" && buffer.Raw() == "" {
		// Some hosts skip deltas and deliver arguments only here.
		buffer.Append(event.Arguments)
	}

	message := d.conversation.EnsureAssistantMessage()
	message.UpsertToolCall(state.callID, "", buffer.Finalize())
	d.notify(message)
}

func (d *responsesDecoder) handlePartialImage(event responsesEvent) {
	if event.PartialImageB64 == "" {
		return
	}
	state := d.ensureItem(event.ItemID, "image_generation_call")
	message := d.conversation.EnsureAssistantMessage()

	// Implicitly created item: the added event has not arrived yet.
	if state.imageIndex < 0 {
		state.imageIndex = message.AddImage(ai.Image{})
	}
	message.MergeImage(state.imageIndex, ai.Image{Base64: event.PartialImageB64})
	d.notify(message)
}

func (d *responsesDecoder) handleItemDone(item *responsesOutputItem) {
	if item == nil {
		return
	}
	state, seen := d.items[item.ID]
	if !seen {
		return
	}

	message := d.conversation.EnsureAssistantMessage()
	switch state.kind {
	case "function_call":
		// Final refinement: the done item carries the complete call.
		if item.CallID != "" && item.CallID != state.callID {
			message.RenameToolCall(state.callID, item.CallID)
			if buffer, ok := d.arguments[state.callID]; ok {
				d.arguments[item.CallID] = buffer
				delete(d.arguments, state.callID)
			}
			state.callID = item.CallID
		}
		buffer := d.buffer(state.callID)
		if item.Arguments != "" && buffer.Raw() == "" {
			buffer.Append(item.Arguments)
		}
		message.UpsertToolCall(state.callID, item.Name, buffer.Finalize())
		d.notify(message)

	case "image_generation_call":
		if item.Result != "" {
			if state.imageIndex < 0 {
				state.imageIndex = message.AddImage(ai.Image{})
			}
			mimeType := ""
			if item.OutputFormat != "" {
				mimeType = "image/" + item.OutputFormat
			}
			message.MergeImage(state.imageIndex, ai.Image{Base64: item.Result, MimeType: mimeType})
			d.notify(message)
		}
	}
}

func (d *responsesDecoder) handleCompleted(snapshot *responsesSnapshot) {
	if snapshot == nil {
		return
	}
	message := d.conversation.EnsureAssistantMessage()
	if snapshot.ID != "" {
		message.SetMeta(ai.MetaResponseID, snapshot.ID)
	}
	if snapshot.Usage != nil {
		usage := ai.Usage{
			PromptTokens:     snapshot.Usage.InputTokens,
			CompletionTokens: snapshot.Usage.OutputTokens,
			TotalTokens:      snapshot.Usage.TotalTokens,
		}
		if snapshot.Usage.OutputTokensDetails != nil {
			usage.ReasoningTokens = snapshot.Usage.OutputTokensDetails.ReasoningTokens
		}
		if snapshot.Usage.InputTokensDetails != nil {
			usage.CachedTokens = snapshot.Usage.InputTokensDetails.CachedTokens
		}
		d.conversation.Usage.Add(usage)
	}
}

func (d *responsesDecoder) failure(snapshot *responsesSnapshot) error {
	if snapshot != nil && snapshot.Error != nil {
		return fmt.Errorf("provider reported failure: %s (%s)", snapshot.Error.Message, snapshot.Error.Code)
	}
	return fmt.Errorf("provider reported failure without detail")
}

// ensureItem returns the state for an item id, creating it with the given
// kind when the id has not been seen (an update arriving before its "added"
// event).
func (d *responsesDecoder) ensureItem(itemID, kind string) *responsesItemState {
	if state, seen := d.items[itemID]; seen {
		return state
	}
	state := &responsesItemState{kind: kind, imageIndex: -1}
	d.items[itemID] = state
	return state
}

func (d *responsesDecoder) buffer(callID string) *ai.ArgumentBuffer {
	if buffer, ok := d.arguments[callID]; ok {
		return buffer
	}
	buffer := &ai.ArgumentBuffer{}
	d.arguments[callID] = buffer
	return buffer
}

// finish finalizes any still-unparsed argument buffers so tool calls never
// end the stream with nil arguments.
func (d *responsesDecoder) finish() {
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

func (d *responsesDecoder) notify(message *ai.Message) {
	if d.onResult != nil {
		d.onResult(message)
	}
}
