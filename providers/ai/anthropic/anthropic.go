package anthropic

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
	defaultBaseURL   = "https://api.anthropic.com/v1"
	messagesEndpoint = "/messages"

	// anthropicVersion pins the wire format independently of the URL.
	anthropicVersion = "2023-06-01"

	// defaultMaxTokens is applied when the caller sets none; the Messages
	// API rejects requests without max_tokens.
	defaultMaxTokens = 4096

	defaultModel = "claude-sonnet-4-5"
)

// Provider implements ai.Provider for Anthropic's Messages API.
type Provider struct {
	apiKey      string
	baseURL     string
	model       string
	client      *http.Client
	retryConfig retry.Config
}

// New returns a provider initialized from the environment: ANTHROPIC_API_KEY
// for authentication and optionally ANTHROPIC_API_BASE_URL for proxies.
func New() *Provider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		model:   defaultModel,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (p *Provider) WithAPIKey(apiKey string) *Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	p.baseURL = baseURL
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

// Name implements ai.Provider.
func (p *Provider) Name() string {
	return "anthropic"
}

// StreamConversation implements ai.Provider over the streaming Messages API.
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

	body, err := utils.MergeBody(messagesRequestFromConversation(conversation, options, model), options.ExtraBody)
	if err != nil {
		return fmt.Errorf("failed to build request body: %w", err)
	}

	// Anthropic authenticates with x-api-key, not a Bearer token.
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
	for key, value := range options.ExtraHeaders {
		headers[key] = value
	}

	response, err := retry.Do(ctx, p.client, p.retryConfig, &retry.Request{
		URL:     p.baseURL + messagesEndpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return err
	}
	defer utils.CloseWithLog(response.Body)

	decoder := newDecoder(conversation, options.OnResult)
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
