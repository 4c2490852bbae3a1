package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

const maxErrorBody = 512

// openAIClient talks to an OpenAI-compatible chat completions endpoint,
// typically a proxy that holds the real API key.
type openAIClient struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newOpenAIClient creates a new chat completions client.
func newOpenAIClient(cfg Config) (*openAIClient, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("%w: vision endpoint must be an http(s) URL: %q", common.ErrInvalidConfig, endpoint)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	return &openAIClient{
		endpoint:    endpoint,
		apiKey:      cfg.APIKey,
		model:       modelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type chatContentPart struct {
	ImageURL *chatImageURL `json:"image_url,omitempty"`
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

// buildRequestBody bundles the instruction prompt and every image inline.
func (c *openAIClient) buildRequestBody(images [][]byte) ([]byte, error) {
	content := make([]chatContentPart, 0, len(images)+1)
	content = append(content, chatContentPart{Type: "text", Text: userPrompt})
	for _, img := range images {
		content = append(content, chatContentPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)},
		})
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": content,
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	return json.Marshal(requestBody)
}

// Identify sends one request carrying all images and parses the reply.
func (c *openAIClient) Identify(ctx context.Context, images [][]byte) ([]model.Match, error) {
	jsonBody, err := c.buildRequestBody(images)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.NewNetworkError(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewNetworkError(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, common.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := truncate(string(body), maxErrorBody)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, common.NewNetworkError(resp.StatusCode, errors.New(msg))
	}

	content, err := extractMessageContent(body)
	if err != nil {
		return nil, err
	}

	return ParseMatches(content)
}

// chatResponse represents the chat completions response envelope.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// extractMessageContent pulls the assistant's textual payload out of the envelope.
func extractMessageContent(body []byte) (string, error) {
	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: bad envelope: %v", common.ErrMalformedResponse, err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", common.ErrMalformedResponse)
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", common.ErrMalformedResponse)
	}
	return content, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
