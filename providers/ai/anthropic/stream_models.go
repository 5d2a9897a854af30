package anthropic

/*
	MESSAGES API - SSE STREAMING WIRE TYPES

	Event lifecycle:
	  message_start → content_block_start → content_block_delta* →
	  content_block_stop → message_delta → message_stop

	Blocks are addressed by index between start and stop. The payload's
	"type" field discriminates events; the SSE "event:" lines are redundant
	with it and ignored by the scanner.
*/

// streamEvent is the top-level envelope for all streaming events.
type streamEvent struct {
	Type         string          `json:"type"`
	Message      *messageStart   `json:"message,omitempty"`       // message_start
	Index        int             `json:"index,omitempty"`         // content_block_start/delta/stop
	ContentBlock *wireBlock      `json:"content_block,omitempty"` // content_block_start
	Delta        *blockDelta     `json:"delta,omitempty"`         // content_block_delta, message_delta
	Usage        *usagePayload   `json:"usage,omitempty"`         // message_delta
	Error        *streamingError `json:"error,omitempty"`         // error events
}

type messageStart struct {
	ID    string        `json:"id"`
	Model string        `json:"model,omitempty"`
	Usage *usagePayload `json:"usage,omitempty"`
}

// wireBlock announces a new content block and its discriminator.
type wireBlock struct {
	Type string `json:"type"` // "text", "thinking", "tool_use", "redacted_thinking"

	// tool_use fields
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"` // Occasionally pre-populated
}

// blockDelta carries incremental content. Its own Type field discriminates:
// text_delta, thinking_delta, input_json_delta, signature_delta, or (for
// message_delta events) no type with StopReason set.
type blockDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`         // text_delta
	Thinking    string `json:"thinking,omitempty"`     // thinking_delta
	PartialJSON string `json:"partial_json,omitempty"` // input_json_delta

	// SummaryIndex partitions thinking content into summaries; an increase
	// mid-block marks a paragraph boundary.
	SummaryIndex int `json:"summary_index,omitempty"`

	// message_delta fields
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

type usagePayload struct {
	InputTokens              int `json:"input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}

type streamingError struct {
	Type    string `json:"type"`    // "overloaded_error", "api_error", ...
	Message string `json:"message"` // Human-readable description
}
