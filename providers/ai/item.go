package ai

import "strings"

// ItemKind identifies the content type of an Item.
type ItemKind string

const (
	ItemText       ItemKind = "text"        // Plain assistant or user text
	ItemReasoning  ItemKind = "reasoning"   // Model thinking content, never resent to providers
	ItemImage      ItemKind = "image"       // Generated or supplied image
	ItemToolCall   ItemKind = "tool_call"   // Model-initiated function invocation
	ItemToolResult ItemKind = "tool_result" // Output of an executed tool call
)

// Item is one typed unit of content within a Message. Which fields are
// meaningful depends on Kind; the rest stay zero.
type Item struct {
	Kind ItemKind `json:"kind"`

	// Text carries the accumulated content for text and reasoning items.
	Text string `json:"text,omitempty"`

	// Image is set for image items. It may be partial while the provider is
	// still generating.
	Image *Image `json:"image,omitempty"`

	// Tool correlation fields. CallID is the stable cross-chunk identity of
	// a tool call and links a tool_result back to its tool_call.
	CallID string `json:"call_id,omitempty"`
	Name   string `json:"name,omitempty"`

	// Arguments holds the parsed tool call arguments. While streaming it
	// reflects the best parse so far; after stream end it is never nil for a
	// tool_call item.
	Arguments map[string]any `json:"arguments,omitempty"`

	// Result holds the tool execution outcome for tool_result items.
	Result any `json:"result,omitempty"`
}

// Image describes image content. During streamed generation the provider may
// fill fields progressively; merge logic never overwrites a populated field
// with an empty one.
type Image struct {
	URL      string         `json:"url,omitempty"`
	Base64   string         `json:"base64,omitempty"`
	MimeType string         `json:"mime_type,omitempty"`
	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// merge copies incoming non-empty fields over img, leaving populated fields
// untouched when the incoming value is empty.
func (img *Image) merge(incoming Image) {
	if incoming.URL != "" {
		img.URL = incoming.URL
	}
	if incoming.Base64 != "" {
		img.Base64 = incoming.Base64
	}
	if incoming.MimeType != "" {
		img.MimeType = incoming.MimeType
	}
	if incoming.Width != 0 {
		img.Width = incoming.Width
	}
	if incoming.Height != 0 {
		img.Height = incoming.Height
	}
	for key, value := range incoming.Metadata {
		if img.Metadata == nil {
			img.Metadata = map[string]any{}
		}
		img.Metadata[key] = value
	}
}

// NewTextItem builds a text item.
func NewTextItem(text string) Item {
	return Item{Kind: ItemText, Text: text}
}

// joinTexts concatenates the Text of all items matching kind, in order.
func joinTexts(items []Item, kind ItemKind) string {
	var builder strings.Builder
	for _, item := range items {
		if item.Kind == kind {
			builder.WriteString(item.Text)
		}
	}
	return builder.String()
}
