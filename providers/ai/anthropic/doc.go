// Package anthropic implements the ai.Provider contract for Anthropic's
// Messages API. Streaming uses the content-block protocol: blocks open with a
// type discriminator, accumulate block-scoped deltas addressed by index, and
// close; the decoder demultiplexes them into the shared conversation model.
package anthropic
