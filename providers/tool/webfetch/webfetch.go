// Package webfetch provides a tool that fetches web pages and hands them to
// the model as Markdown.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mitkury/aiwrapper/internal/utils"
	"github.com/mitkury/aiwrapper/providers/ai"
	"github.com/mitkury/aiwrapper/providers/tool"
)

const (
	// DefaultTimeout bounds one fetch including redirects and body read.
	DefaultTimeout = 30 * time.Second

	// MaxBodySize caps the response body (10MB).
	MaxBodySize = 10 * 1024 * 1024

	defaultUserAgent = "aiwrapper-webfetch/1.0"
	maxRedirects     = 10
)

// Input holds the parameters the language model passes to the tool.
type Input struct {
	// URL may be partial ("example.com") or full; https:// is assumed.
	URL string `json:"url" jsonschema:"description=The URL of the web page to fetch,required"`

	// TimeoutSeconds overrides the default request timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" jsonschema:"description=Request timeout in seconds (default 30)"`
}

// Output is returned to the model. URL reflects the final destination after
// redirects.
type Output struct {
	URL      string `json:"url" jsonschema:"description=The final URL after redirects"`
	Markdown string `json:"markdown" jsonschema:"description=The page content converted to Markdown"`
}

// New returns the web fetch tool definition, ready to register on a
// conversation.
func New() ai.ToolDefinition {
	return tool.NewTool("web_fetch", Fetch,
		tool.WithDescription("Fetches a web page and converts its HTML content to Markdown. Partial URLs get an https:// prefix; redirects are followed."),
	)
}

// Fetch retrieves the page at input.URL and converts it to Markdown. The body
// is capped at [MaxBodySize]; more than that is an error, not a truncation,
// so the model never sees a silently incomplete page.
func Fetch(ctx context.Context, input Input) (Output, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return Output{}, fmt.Errorf("URL cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	timeout := DefaultTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", defaultUserAgent)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return nil
		},
	}

	response, err := client.Do(request)
	if err != nil {
		return Output{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("unexpected status code: %d %s", response.StatusCode, response.Status)
	}

	htmlBytes, err := io.ReadAll(io.LimitReader(response.Body, MaxBodySize))
	if err != nil {
		return Output{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(htmlBytes) == MaxBodySize {
		return Output{}, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxBodySize)
	}

	markdown, err := htmltomarkdown.ConvertString(string(htmlBytes))
	if err != nil {
		return Output{}, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	return Output{
		URL:      response.Request.URL.String(),
		Markdown: markdown,
	}, nil
}
