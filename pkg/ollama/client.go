// Package ollama locates image subjects through an Ollama server
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/frame-compositor/pkg/client"
	"github.com/menta2k/frame-compositor/pkg/types"
)

// DefaultURL is the local Ollama endpoint
const DefaultURL = "http://localhost:11434"

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates a client for the server at ollamaURL. Any path on the URL
// (e.g. /api/chat) is ignored.
func NewClient(ollamaURL string) (*Client, error) {
	return NewClientWithHTTP(ollamaURL, http.DefaultClient)
}

// NewClientWithHTTP creates a client that uses the given http client
func NewClientWithHTTP(ollamaURL string, httpClient *http.Client) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs a scheme and host", ollamaURL)
	}

	baseURL := &url.URL{Scheme: parsedURL.Scheme, Host: parsedURL.Host}
	return &Client{client: api.NewClient(baseURL, httpClient)}, nil
}

// LocateSubject sends the image and prompt to model and parses the reply
func (c *Client) LocateSubject(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	ctx, cancel := client.WithDefaultTimeout(ctx)
	defer cancel()

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	streamFalse := false
	options := map[string]any{"temperature": 0.2}

	// MiniCPM-V 4.x needs a larger context for high resolution images
	modelLower := strings.ToLower(model)
	if strings.Contains(modelLower, "minicpm-v4") || strings.Contains(modelLower, "minicpm-v-4") {
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}

	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &streamFalse,
		Options: options,
	}

	var content strings.Builder
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return client.ParseReply(content.String()), nil
}
