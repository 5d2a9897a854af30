package ai

// Role identifies who produced a Message.
type Role string

const (
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleToolResults Role = "tool_results" // Carries ToolResult items fed back to the provider
)

// MetaResponseID is the Meta key under which a provider's server-side
// continuation token is stored on an assistant message. When present on the
// last assistant message, only messages after it need to be resent.
const MetaResponseID = "response_id"

// Message is one turn in a conversation. Item order is arrival order and is
// meaningful: providers that interleave text and tool calls rely on the
// relative positions being preserved.
type Message struct {
	Role  Role   `json:"role"`
	Items []Item `json:"items"`

	// Meta carries opaque provider-specific values (continuation tokens,
	// stop reasons). Decoders write it; adapters read it back.
	Meta map[string]string `json:"meta,omitempty"`
}

// NewMessage creates an empty message with the given role.
func NewMessage(role Role) *Message {
	return &Message{Role: role}
}

// NewUserMessage creates a user message with a single text item.
func NewUserMessage(text string) *Message {
	return &Message{Role: RoleUser, Items: []Item{NewTextItem(text)}}
}

// SetMeta records a provider-specific key on the message.
func (m *Message) SetMeta(key, value string) {
	if m.Meta == nil {
		m.Meta = map[string]string{}
	}
	m.Meta[key] = value
}

// Text returns the concatenation of the message's text items.
func (m *Message) Text() string {
	return joinTexts(m.Items, ItemText)
}

// Reasoning returns the concatenation of the message's reasoning items.
func (m *Message) Reasoning() string {
	return joinTexts(m.Items, ItemReasoning)
}

// ToolCalls returns pointers to the message's tool_call items, in order.
// The pointers reference the message's own items, so callers may refine
// partially streamed calls in place.
func (m *Message) ToolCalls() []*Item {
	var calls []*Item
	for i := range m.Items {
		if m.Items[i].Kind == ItemToolCall {
			calls = append(calls, &m.Items[i])
		}
	}
	return calls
}

// AppendText appends delta to the message's trailing text run, or opens a new
// text item when none is active. One logical run of text is never split
// across items: reasoning chunks interleaved with text do not interrupt the
// run, but tool calls, images, and tool results do.
func (m *Message) AppendText(delta string) {
	m.appendRun(ItemText, delta)
}

// AppendReasoning appends delta to the trailing reasoning run, mirroring
// AppendText. Text and reasoning accumulate independently even when their
// chunks interleave.
func (m *Message) AppendReasoning(delta string) {
	m.appendRun(ItemReasoning, delta)
}

// appendRun finds the trailing item of the given kind, scanning back over
// items of the sibling streaming kind (text vs reasoning are transparent to
// each other). Any other item kind is a run boundary.
func (m *Message) appendRun(kind ItemKind, delta string) {
	for i := len(m.Items) - 1; i >= 0; i-- {
		itemKind := m.Items[i].Kind
		if itemKind == kind {
			m.Items[i].Text += delta
			return
		}
		if itemKind != ItemText && itemKind != ItemReasoning {
			break // run boundary
		}
	}
	m.Items = append(m.Items, Item{Kind: kind, Text: delta})
}

// UpsertToolCall creates or refines a tool_call item identified by callID.
// callID is the only correlation key across chunks; positional indices are
// protocol details the decoders resolve before calling this. Empty name and
// nil arguments leave the existing values untouched. Returns the item.
func (m *Message) UpsertToolCall(callID, name string, arguments map[string]any) *Item {
	for i := range m.Items {
		if m.Items[i].Kind == ItemToolCall && m.Items[i].CallID == callID {
			if name != "" {
				m.Items[i].Name = name
			}
			if arguments != nil {
				m.Items[i].Arguments = arguments
			}
			return &m.Items[i]
		}
	}

	m.Items = append(m.Items, Item{
		Kind:      ItemToolCall,
		CallID:    callID,
		Name:      name,
		Arguments: arguments,
	})
	return &m.Items[len(m.Items)-1]
}

// RenameToolCall rebinds a tool call created under a provisional id to its
// real call id. Some protocols deliver argument deltas before the event that
// carries the definitive id; the decoder seeds the item with a placeholder
// and fixes it up here.
func (m *Message) RenameToolCall(oldID, newID string) {
	if oldID == newID {
		return
	}
	for i := range m.Items {
		if m.Items[i].Kind == ItemToolCall && m.Items[i].CallID == oldID {
			m.Items[i].CallID = newID
			return
		}
	}
}

// AddImage appends an image item with whatever fields are currently known and
// returns its index. Later fragments are applied through MergeImage; indexes
// stay valid because items are append-only.
func (m *Message) AddImage(image Image) int {
	img := image
	m.Items = append(m.Items, Item{Kind: ItemImage, Image: &img})
	return len(m.Items) - 1
}

// MergeImage folds incoming fields into the image item at index. Populated
// fields are never overwritten by empty incoming values. Out-of-range indexes
// and non-image items are ignored.
func (m *Message) MergeImage(index int, incoming Image) {
	if index < 0 || index >= len(m.Items) || m.Items[index].Kind != ItemImage {
		return
	}
	if m.Items[index].Image == nil {
		m.Items[index].Image = &Image{}
	}
	m.Items[index].Image.merge(incoming)
}
