package ai

import (
	"encoding/json"
	"strings"

	"github.com/mitkury/aiwrapper/core/parse"
)

// ArgumentBuffer accumulates the raw argument text of one in-flight tool
// call. Protocols deliver arguments as incremental string fragments, full
// object snapshots, or already-parsed partial objects; the buffer normalizes
// all three into a single rule: parse after every chunk, keep the previous
// parsed value when the parse fails.
//
// Decoders key one buffer per tool call id. After stream end, Finalize makes
// the last parse attempt (with JSON repair) so that arguments are never nil.
type ArgumentBuffer struct {
	raw    strings.Builder
	parsed map[string]any
}

// Append adds a raw JSON fragment to the buffer and returns the best parsed
// value so far. An unparsable intermediate buffer keeps the previous value.
func (b *ArgumentBuffer) Append(fragment string) map[string]any {
	b.raw.WriteString(fragment)

	// Intermediate attempts are strict: repair is reserved for Finalize,
	// where the buffer is known to be complete.
	var attempt map[string]any
	if err := json.Unmarshal([]byte(b.raw.String()), &attempt); err == nil {
		b.parsed = attempt
	}
	return b.parsed
}

// SetParsed replaces the parsed value directly, for protocols that deliver
// arguments as already-parsed partial objects instead of text fragments.
func (b *ArgumentBuffer) SetParsed(arguments map[string]any) map[string]any {
	b.parsed = arguments
	return b.parsed
}

// Raw returns the accumulated raw argument text.
func (b *ArgumentBuffer) Raw() string {
	return b.raw.String()
}

// Finalize makes the terminal parse attempt over the buffered text, falling
// back to JSON repair for almost-valid payloads and to an empty map when the
// text is beyond repair. The result is never nil.
func (b *ArgumentBuffer) Finalize() map[string]any {
	raw := b.raw.String()
	if raw != "" {
		if arguments, err := parse.ParseStringAs[map[string]any](raw); err == nil && arguments != nil {
			b.parsed = arguments
		}
	}
	if b.parsed == nil {
		b.parsed = map[string]any{}
	}
	return b.parsed
}
