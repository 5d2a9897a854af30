package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mitkury/aiwrapper/core/retry"
	"github.com/mitkury/aiwrapper/internal/utils"
	"github.com/mitkury/aiwrapper/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	responsesEndpoint       = "/responses"
	chatCompletionsEndpoint = "/chat/completions"
	defaultModel            = "gpt-4o-mini"
)

// Provider implements ai.Provider for OpenAI and compatible endpoints.
type Provider struct {
	apiKey       string
	baseURL      string
	model        string
	client       *http.Client
	retryConfig  retry.Config
	capabilities Capabilities
}

// New creates a provider configured from the environment: OPENAI_API_KEY and
// optionally OPENAI_API_BASE_URL for compatible hosts.
func New() *Provider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:       os.Getenv("OPENAI_API_KEY"),
		baseURL:      baseURL,
		model:        defaultModel,
		client:       &http.Client{},
		capabilities: detectCapabilities(baseURL),
	}
}

// WithAPIKey sets the API key for the provider.
func (p *Provider) WithAPIKey(apiKey string) *Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and re-detects capabilities.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	p.baseURL = baseURL
	p.capabilities = detectCapabilities(baseURL)
	return p
}

// WithModel sets the default model used when a call does not name one.
func (p *Provider) WithModel(model string) *Provider {
	p.model = model
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *Provider) WithHttpClient(httpClient *http.Client) *Provider {
	p.client = httpClient
	return p
}

// WithRetryConfig overrides the default retry policy.
func (p *Provider) WithRetryConfig(config retry.Config) *Provider {
	p.retryConfig = config
	return p
}

// WithCapabilities overrides detected capabilities, for compatible hosts the
// URL heuristic misjudges.
func (p *Provider) WithCapabilities(capabilities Capabilities) *Provider {
	p.capabilities = capabilities
	return p
}

// Name implements ai.Provider.
func (p *Provider) Name() string {
	return "openai"
}

// StreamConversation implements ai.Provider. Real OpenAI endpoints stream
// through the responses API; everything else uses chat completions.
func (p *Provider) StreamConversation(ctx context.Context, conversation *ai.Conversation, options *ai.CallOptions) error {
	if p.apiKey == "" {
		return fmt.Errorf("API key is not set")
	}
	if options == nil {
		options = &ai.CallOptions{}
	}

	model := options.Model
	if model == "" {
		model = p.model
	}

	if p.capabilities.SupportsResponses {
		return p.streamResponses(ctx, conversation, options, model)
	}
	return p.streamChatCompletions(ctx, conversation, options, model)
}

func (p *Provider) streamChatCompletions(ctx context.Context, conversation *ai.Conversation, options *ai.CallOptions, model string) error {
	body, err := utils.MergeBody(chatRequestFromConversation(conversation, options, model), options.ExtraBody)
	if err != nil {
		return fmt.Errorf("failed to build request body: %w", err)
	}

	response, err := retry.Do(ctx, p.client, p.retryConfig, &retry.Request{
		URL:     p.baseURL + chatCompletionsEndpoint,
		APIKey:  p.apiKey,
		Headers: options.ExtraHeaders,
		Body:    body,
	})
	if err != nil {
		return err
	}

	decoder := newChatDecoder(conversation, options.OnResult)
	return p.consumeStream(ctx, response, decoder)
}

func (p *Provider) streamResponses(ctx context.Context, conversation *ai.Conversation, options *ai.CallOptions, model string) error {
	body, err := utils.MergeBody(responsesRequestFromConversation(conversation, options, model), options.ExtraBody)
	if err != nil {
		return fmt.Errorf("failed to build request body: %w", err)
	}

	response, err := retry.Do(ctx, p.client, p.retryConfig, &retry.Request{
		URL:     p.baseURL + responsesEndpoint,
		APIKey:  p.apiKey,
		Headers: options.ExtraHeaders,
		Body:    body,
	})
	if err != nil {
		return err
	}

	decoder := newResponsesDecoder(conversation, options.OnResult)
	return p.consumeStream(ctx, response, decoder)
}

// streamDecoder is the event-loop contract both wire decoders satisfy.
type streamDecoder interface {
	// handleEvent applies one SSE payload to the conversation. Malformed
	// events degrade to no-ops; only explicit provider error events return
	// an error.
	handleEvent(payload string) error

	// finish runs end-of-stream finalization (terminal argument parses).
	finish()
}

// consumeStream drives a decoder over the SSE response body, event by event,
// in wire order. Partial mutations stay applied when the stream dies early.
func (p *Provider) consumeStream(ctx context.Context, response *http.Response, decoder streamDecoder) error {
	defer utils.CloseWithLog(response.Body)

	scanner := utils.NewSSEScanner(response.Body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("SSE read error: %w", err)
		}

		if err := decoder.handleEvent(payload); err != nil {
			decoder.finish()
			return err
		}
	}

	decoder.finish()
	return nil
}
