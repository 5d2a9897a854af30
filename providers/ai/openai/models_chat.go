package openai

import (
	"encoding/json"

	"github.com/mitkury/aiwrapper/internal/jsonschema"
	"github.com/mitkury/aiwrapper/providers/ai"
)

/*
	CHAT COMPLETIONS API - REQUEST TYPES
*/

type chatRequest struct {
	Model         string          `json:"model"`
	Messages      []chatMessage   `json:"messages"`
	Tools         []chatTool      `json:"tools,omitempty"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	Temperature   *float32        `json:"temperature,omitempty"`
	Stream        bool            `json:"stream"`
	StreamOptions *streamOptions  `json:"stream_options,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`

	// Assistant messages requesting tools
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`

	// role=tool messages answering a call
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

type chatTool struct {
	Type     string              `json:"type"` // "function"
	Function chatToolDefinition  `json:"function"`
}

type chatToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type responseFormat struct {
	Type       string          `json:"type"` // "json_object" or "json_schema"
	JSONSchema *namedSchema    `json:"json_schema,omitempty"`
}

type namedSchema struct {
	Name   string             `json:"name"`
	Schema *jsonschema.Schema `json:"schema"`
	Strict bool               `json:"strict,omitempty"`
}

/*
	CHAT COMPLETIONS STREAMING API - RESPONSE TYPES

	These types model the SSE chunks returned with stream=true. Each chunk
	carries incremental deltas for content, reasoning, and tool calls, plus
	usage metadata in the final chunk when include_usage is set.
*/

type chatStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"` // Final chunk only, with include_usage
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // Nullable; set on the final chunk for this choice
}

// streamDelta carries the incremental content of one chunk. All fields are
// optional; a chunk may carry only content, only tool calls, only a role.
type streamDelta struct {
	Role      string               `json:"role,omitempty"`
	Content   *string              `json:"content,omitempty"`
	Reasoning *string              `json:"reasoning,omitempty"`
	ToolCalls []streamToolCallPart `json:"tool_calls,omitempty"`
}

// streamToolCallPart is one incremental tool call delta. The first chunk for
// a call carries the id and function name; later chunks address the same call
// by index only and carry argument fragments.
type streamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type chatUsage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	TotalTokens             int `json:"total_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
}

/*
	CONVERSION
*/

// chatRequestFromConversation maps the conversation onto the chat completions
// wire format. Reasoning items are never resent; tool results become one
// role=tool message per executed call, preserving order.
func chatRequestFromConversation(conversation *ai.Conversation, options *ai.CallOptions, model string) chatRequest {
	request := chatRequest{
		Model:         model,
		MaxTokens:     options.MaxTokens,
		Temperature:   options.Temperature,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	if conversation.Instructions != "" {
		request.Messages = append(request.Messages, chatMessage{
			Role:    "system",
			Content: conversation.Instructions,
		})
	}

	for _, message := range conversation.Messages {
		switch message.Role {
		case ai.RoleUser:
			request.Messages = append(request.Messages, chatMessage{
				Role:    "user",
				Content: message.Text(),
			})

		case ai.RoleAssistant:
			chatMsg := chatMessage{Role: "assistant", Content: message.Text()}
			for _, call := range message.ToolCalls() {
				chatMsg.ToolCalls = append(chatMsg.ToolCalls, chatToolCall{
					ID:   call.CallID,
					Type: "function",
					Function: chatToolFunction{
						Name:      call.Name,
						Arguments: marshalArguments(call.Arguments),
					},
				})
			}
			request.Messages = append(request.Messages, chatMsg)

		case ai.RoleToolResults:
			for _, item := range message.Items {
				if item.Kind != ai.ItemToolResult {
					continue
				}
				request.Messages = append(request.Messages, chatMessage{
					Role:       "tool",
					ToolCallID: item.CallID,
					Name:       item.Name,
					Content:    ai.SerializeResult(item.Result),
				})
			}
		}
	}

	for _, tool := range conversation.Tools {
		request.Tools = append(request.Tools, chatTool{
			Type: "function",
			Function: chatToolDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if options.OutputSchema != nil {
		request.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &namedSchema{
				Name:   "structured_output",
				Schema: options.OutputSchema,
				Strict: true,
			},
		}
	}

	return request
}

func marshalArguments(arguments map[string]any) string {
	if arguments == nil {
		return "{}"
	}
	encoded, err := json.Marshal(arguments)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
