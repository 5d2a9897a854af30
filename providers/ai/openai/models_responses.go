package openai

import (
	"github.com/mitkury/aiwrapper/internal/jsonschema"
	"github.com/mitkury/aiwrapper/providers/ai"
)

/*
	RESPONSES API - REQUEST TYPES
*/

type responsesRequest struct {
	Model              string               `json:"model"`
	Input              []responsesInputItem `json:"input"`
	Instructions       string               `json:"instructions,omitempty"`
	PreviousResponseID string               `json:"previous_response_id,omitempty"`
	MaxOutputTokens    int                  `json:"max_output_tokens,omitempty"`
	Temperature        *float32             `json:"temperature,omitempty"`
	Stream             bool                 `json:"stream"`
	Tools              []responsesTool      `json:"tools,omitempty"`
	Text               *responsesTextConfig `json:"text,omitempty"`
}

// responsesInputItem is one element of the input array. The API accepts
// role/content messages alongside typed function_call and
// function_call_output items in the same list.
type responsesInputItem struct {
	Type    string `json:"type,omitempty"` // "message", "function_call", "function_call_output"
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// function_call / function_call_output fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"` // JSON string
	Output    string `json:"output,omitempty"`
}

type responsesTool struct {
	Type        string             `json:"type"` // "function"
	Name        string             `json:"name,omitempty"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Strict      bool               `json:"strict,omitempty"`
}

type responsesTextConfig struct {
	Format *responsesTextFormat `json:"format,omitempty"`
}

type responsesTextFormat struct {
	Type   string             `json:"type"` // "json_schema"
	Name   string             `json:"name,omitempty"`
	Schema *jsonschema.Schema `json:"schema,omitempty"`
	Strict bool               `json:"strict,omitempty"`
}

/*
	RESPONSES API - STREAMING EVENT TYPES

	Every SSE payload is a JSON object with a `type` discriminator. The event
	struct is the union of the fields used across event types; the decoder
	switches on Type and reads only the fields that type defines.
*/

type responsesEvent struct {
	Type string `json:"type"`

	// response.* lifecycle events
	Response *responsesSnapshot `json:"response,omitempty"`

	// Item-scoped events
	ItemID      string               `json:"item_id,omitempty"`
	OutputIndex int                  `json:"output_index,omitempty"`
	Item        *responsesOutputItem `json:"item,omitempty"`

	// Delta payloads
	Delta        string `json:"delta,omitempty"`
	Arguments    string `json:"arguments,omitempty"`     // function_call_arguments.done
	SummaryIndex int    `json:"summary_index,omitempty"` // reasoning summary demux

	// image_generation_call.partial_image
	PartialImageB64   string `json:"partial_image_b64,omitempty"`
	PartialImageIndex int    `json:"partial_image_index,omitempty"`

	// Top-level error events
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type responsesSnapshot struct {
	ID     string                `json:"id"`
	Status string                `json:"status,omitempty"`
	Usage  *responsesUsage       `json:"usage,omitempty"`
	Error  *responsesErrorDetail `json:"error,omitempty"`
}

type responsesOutputItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // "message", "reasoning", "function_call", "image_generation_call", ...
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// image_generation_call fields on the done event
	Result       string `json:"result,omitempty"` // base64 image data
	OutputFormat string `json:"output_format,omitempty"`
}

type responsesUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	TotalTokens         int `json:"total_tokens"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
	InputTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details,omitempty"`
}

type responsesErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

/*
	CONVERSION
*/

// responsesRequestFromConversation maps the conversation onto the responses
// wire format. When the last assistant message carries a server-side
// continuation token, the request sends previous_response_id and only the
// messages after that point, letting the server resume its own state instead
// of replaying the transcript.
func responsesRequestFromConversation(conversation *ai.Conversation, options *ai.CallOptions, model string) responsesRequest {
	request := responsesRequest{
		Model:           model,
		Instructions:    conversation.Instructions,
		MaxOutputTokens: options.MaxTokens,
		Temperature:     options.Temperature,
		Stream:          true,
	}

	messages := conversation.Messages
	if previousID, after := continuationPoint(conversation); previousID != "" {
		request.PreviousResponseID = previousID
		messages = after
	}

	for _, message := range messages {
		switch message.Role {
		case ai.RoleUser:
			request.Input = append(request.Input, responsesInputItem{
				Type:    "message",
				Role:    "user",
				Content: message.Text(),
			})

		case ai.RoleAssistant:
			if text := message.Text(); text != "" {
				request.Input = append(request.Input, responsesInputItem{
					Type:    "message",
					Role:    "assistant",
					Content: text,
				})
			}
			for _, call := range message.ToolCalls() {
				request.Input = append(request.Input, responsesInputItem{
					Type:      "function_call",
					CallID:    call.CallID,
					Name:      call.Name,
					Arguments: marshalArguments(call.Arguments),
				})
			}

		case ai.RoleToolResults:
			for _, item := range message.Items {
				if item.Kind != ai.ItemToolResult {
					continue
				}
				request.Input = append(request.Input, responsesInputItem{
					Type:   "function_call_output",
					CallID: item.CallID,
					Output: ai.SerializeResult(item.Result),
				})
			}
		}
	}

	for _, tool := range conversation.Tools {
		request.Tools = append(request.Tools, responsesTool{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}

	if options.OutputSchema != nil {
		request.Text = &responsesTextConfig{
			Format: &responsesTextFormat{
				Type:   "json_schema",
				Name:   "structured_output",
				Schema: options.OutputSchema,
				Strict: true,
			},
		}
	}

	return request
}

// continuationPoint finds the most recent assistant message carrying a
// response id and returns that id plus the messages after it.
func continuationPoint(conversation *ai.Conversation) (string, []*ai.Message) {
	for i := len(conversation.Messages) - 1; i >= 0; i-- {
		message := conversation.Messages[i]
		if message.Role != ai.RoleAssistant {
			continue
		}
		if id := message.Meta[ai.MetaResponseID]; id != "" {
			return id, conversation.Messages[i+1:]
		}
	}
	return "", nil
}
