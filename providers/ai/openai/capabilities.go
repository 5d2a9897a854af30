package openai

import "strings"

// Capabilities describes what a given OpenAI-compatible endpoint supports.
// They drive endpoint selection and request-shaping; detection is heuristic
// by base URL and can be overridden via [Provider.WithCapabilities] for
// non-standard hosts.
type Capabilities struct {
	// SupportsResponses selects the stateful /v1/responses endpoint.
	// True only for the real OpenAI API.
	SupportsResponses bool

	SupportsStructuredOutputs bool // Strict JSON schema response format
	SupportsReasoning         bool // Reasoning deltas / summaries
	SupportsImageGeneration   bool // image_generation builtin tool
}

// detectCapabilities guesses endpoint capabilities from the base URL.
func detectCapabilities(baseURL string) Capabilities {
	baseURL = strings.ToLower(baseURL)

	// Real OpenAI API
	if strings.Contains(baseURL, "api.openai.com") {
		return Capabilities{
			SupportsResponses:         true,
			SupportsStructuredOutputs: true,
			SupportsReasoning:         true,
			SupportsImageGeneration:   true,
		}
	}

	// Azure OpenAI deployments speak chat completions
	if strings.Contains(baseURL, "azure.com") || strings.Contains(baseURL, "openai.azure") {
		return Capabilities{
			SupportsStructuredOutputs: true,
		}
	}

	// OpenRouter
	if strings.Contains(baseURL, "openrouter.ai") {
		return Capabilities{
			SupportsStructuredOutputs: true,
			SupportsReasoning:         true,
		}
	}

	// Conservative defaults for unknown hosts (local runtimes, proxies)
	return Capabilities{}
}
