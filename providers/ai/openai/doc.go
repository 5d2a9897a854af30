// Package openai implements the ai.Provider contract for OpenAI and
// OpenAI-compatible endpoints. Real OpenAI traffic uses the stateful
// /v1/responses API; compatible hosts (Azure, OpenRouter, local runtimes)
// fall back to the /v1/chat/completions delta protocol. Both paths stream
// over SSE and decode into the shared conversation model.
package openai
