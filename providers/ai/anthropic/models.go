package anthropic

import (
	"encoding/json"

	"github.com/mitkury/aiwrapper/internal/jsonschema"
	"github.com/mitkury/aiwrapper/providers/ai"
)

/*
	MESSAGES API - REQUEST TYPES
*/

type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"` // Required by the API
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Temperature *float32           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string         `json:"role"`    // "user" or "assistant"
	Content []contentBlock `json:"content"` // Ordered content blocks
}

// contentBlock is the union of request content block shapes, discriminated
// by Type.
type contentBlock struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result"
	Text string `json:"text,omitempty"`

	// tool_use fields
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"input_schema,omitempty"`
}

/*
	CONVERSION
*/

// messagesRequestFromConversation maps the conversation onto the Messages
// wire format. Instructions become the system field, reasoning items are
// never resent, and tool results ride in a user-role message of tool_result
// blocks, as the API requires.
func messagesRequestFromConversation(conversation *ai.Conversation, options *ai.CallOptions, model string) messagesRequest {
	maxTokens := options.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	request := messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      conversation.Instructions,
		Temperature: options.Temperature,
		Stream:      true,
	}

	for _, message := range conversation.Messages {
		switch message.Role {
		case ai.RoleUser:
			request.Messages = append(request.Messages, anthropicMessage{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: message.Text()}},
			})

		case ai.RoleAssistant:
			var blocks []contentBlock
			for _, item := range message.Items {
				switch item.Kind {
				case ai.ItemText:
					if item.Text != "" {
						blocks = append(blocks, contentBlock{Type: "text", Text: item.Text})
					}
				case ai.ItemToolCall:
					input := item.Arguments
					if input == nil {
						input = map[string]any{}
					}
					blocks = append(blocks, contentBlock{
						Type:  "tool_use",
						ID:    item.CallID,
						Name:  item.Name,
						Input: input,
					})
				}
			}
			if len(blocks) > 0 {
				request.Messages = append(request.Messages, anthropicMessage{
					Role:    "assistant",
					Content: blocks,
				})
			}

		case ai.RoleToolResults:
			var blocks []contentBlock
			for _, item := range message.Items {
				if item.Kind != ai.ItemToolResult {
					continue
				}
				blocks = append(blocks, contentBlock{
					Type:      "tool_result",
					ToolUseID: item.CallID,
					Content:   ai.SerializeResult(item.Result),
				})
			}
			if len(blocks) > 0 {
				request.Messages = append(request.Messages, anthropicMessage{
					Role:    "user",
					Content: blocks,
				})
			}
		}
	}

	for _, tool := range conversation.Tools {
		request.Tools = append(request.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}

	// The Messages API has no response_format; a schema rides as an
	// instruction amendment through ExtraBody if the caller needs more.
	if options.OutputSchema != nil {
		if schemaJSON, err := json.Marshal(options.OutputSchema); err == nil {
			suffix := "\n\nRespond only with JSON matching this schema: " + string(schemaJSON)
			request.System += suffix
		}
	}

	return request
}
