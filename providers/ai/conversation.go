package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mitkury/aiwrapper/core/parse"
)

// Conversation is an ordered transcript plus the tool registry and derived
// state accumulated across provider calls. It is owned by a single goroutine
// for the duration of a logical conversation; nothing here is safe for
// concurrent mutation.
type Conversation struct {
	Messages []*Message `json:"messages"`

	// Tools available to the model. Definitions without a handler are
	// provider-builtin tools executed server-side.
	Tools []ToolDefinition `json:"-"`

	// Instructions are system/developer instructions, kept out of the
	// transcript and mapped to each provider's native mechanism.
	Instructions string `json:"instructions,omitempty"`

	// Finished is set when the agentic loop reaches a turn with no further
	// tool calls to execute.
	Finished bool `json:"finished"`

	// ValidationErrors is populated by structured-output validation. Empty
	// means the last answer conformed (or was never validated).
	ValidationErrors []string `json:"validation_errors,omitempty"`

	// Usage accumulates token counts across every provider call in this
	// conversation.
	Usage Usage `json:"usage,omitzero"`

	object    any
	objectSet bool
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// NewConversationWithPrompt creates a conversation seeded with one user message.
func NewConversationWithPrompt(prompt string) *Conversation {
	return &Conversation{Messages: []*Message{NewUserMessage(prompt)}}
}

// AddMessage appends a message to the transcript.
func (c *Conversation) AddMessage(message *Message) {
	c.Messages = append(c.Messages, message)
}

// LastMessage returns the trailing message, or nil for an empty transcript.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastAssistantMessage returns the trailing message when it is an assistant
// turn, or nil.
func (c *Conversation) LastAssistantMessage() *Message {
	last := c.LastMessage()
	if last == nil || last.Role != RoleAssistant {
		return nil
	}
	return last
}

// EnsureAssistantMessage returns the trailing assistant message, pushing a
// new one when the transcript ends with any other role. Decoders call this
// before every mutation so that all streaming writes target exactly one
// in-progress message.
func (c *Conversation) EnsureAssistantMessage() *Message {
	if last := c.LastAssistantMessage(); last != nil {
		return last
	}
	message := NewMessage(RoleAssistant)
	c.Messages = append(c.Messages, message)
	return message
}

// Answer returns the concatenated text items of the last assistant message.
func (c *Conversation) Answer() string {
	if last := c.lastByRole(RoleAssistant); last != nil {
		return last.Text()
	}
	return ""
}

// Object returns the structured form of the answer. When a validator has
// stored a value via SetObject that value is returned as-is (including nil
// for a failed validation); otherwise it is a best-effort JSON parse of
// Answer, nil when the answer is not JSON.
func (c *Conversation) Object() any {
	if c.objectSet {
		return c.object
	}
	answer := c.Answer()
	if answer == "" {
		return nil
	}
	value, err := parse.JSONValue(answer)
	if err != nil {
		return nil
	}
	return value
}

// SetObject stores the validated structured answer. Passing nil records that
// validation ran and failed, which pins Object to nil instead of the derived
// parse.
func (c *Conversation) SetObject(value any) {
	c.object = value
	c.objectSet = true
}

func (c *Conversation) lastByRole(role Role) *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == role {
			return c.Messages[i]
		}
	}
	return nil
}

// FindTool looks a tool definition up by name.
func (c *Conversation) FindTool(name string) *ToolDefinition {
	for i := range c.Tools {
		if c.Tools[i].Name == name {
			return &c.Tools[i]
		}
	}
	return nil
}

// ExecuteToolCalls runs the handlers for every executable tool call in the
// last assistant message and appends one tool_results message containing one
// result per executed call, preserving call order. It returns the appended
// message, or nil when the turn requested nothing executable, which is the signal
// that the agentic loop is done.
//
// Handlers run concurrently (they are independent of the conversation) but
// results are written back in call order. A call whose tool has no local
// handler is skipped and logged, not an error. A handler failure or panic is
// captured into the result payload; it never aborts the turn.
func (c *Conversation) ExecuteToolCalls(ctx context.Context) *Message {
	assistant := c.LastAssistantMessage()
	if assistant == nil {
		return nil
	}

	var executable []*Item
	for _, call := range assistant.ToolCalls() {
		tool := c.FindTool(call.Name)
		switch {
		case tool == nil:
			slog.Warn("skipping tool call with no registered tool", "tool", call.Name, "call_id", call.CallID)
		case tool.Handler == nil:
			// Provider-builtin tools execute server-side.
			slog.Debug("skipping builtin tool call", "tool", call.Name, "call_id", call.CallID)
		default:
			executable = append(executable, call)
		}
	}
	if len(executable) == 0 {
		return nil
	}

	results := make([]ToolResult, len(executable))
	var group sync.WaitGroup
	for i, call := range executable {
		group.Add(1)
		go func() {
			defer group.Done()
			results[i] = c.runToolHandler(ctx, call)
		}()
	}
	group.Wait()

	message := NewMessage(RoleToolResults)
	for i, call := range executable {
		message.Items = append(message.Items, Item{
			Kind:   ItemToolResult,
			CallID: call.CallID,
			Name:   call.Name,
			Result: results[i],
		})
	}
	c.AddMessage(message)
	return message
}

func (c *Conversation) runToolHandler(ctx context.Context, call *Item) (result ToolResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("tool handler panicked", "tool", call.Name, "call_id", call.CallID, "panic", recovered)
			result = NewToolResultError("tool_execution_failed", fmt.Sprintf("handler panicked: %v", recovered))
		}
	}()

	handler := c.FindTool(call.Name).Handler
	output, err := handler(ctx, call.Arguments)
	if err != nil {
		return NewToolResultError("tool_execution_failed", err.Error())
	}
	return NewToolResultSuccess(output)
}
