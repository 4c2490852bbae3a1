package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

// geminiClient identifies photos with a Gemini multimodal model.
type geminiClient struct {
	apiKey      string
	model       string
	cfg         Config
	temperature float32
	maxTokens   int32
}

func newGeminiClient(cfg Config) (*geminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", common.ErrMissingConfig)
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	return &geminiClient{
		apiKey:      apiKey,
		model:       modelName,
		cfg:         cfg,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Identify sends the prompt plus every image inline in one GenerateContent call.
func (c *geminiClient) Identify(ctx context.Context, images [][]byte) ([]model.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, common.NewNetworkError(0, fmt.Errorf("gemini: create client: %w", err))
	}
	defer func() { _ = cl.Close() }()

	m := cl.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      &c.temperature,
		MaxOutputTokens:  &c.maxTokens,
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(userPrompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData("jpeg", img))
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	txt := firstText(resp)
	if txt == "" {
		return nil, fmt.Errorf("%w: gemini returned no text", common.ErrMalformedResponse)
	}
	return ParseMatches(txt)
}

// classifyGeminiError maps RPC failures onto the identification error taxonomy.
func classifyGeminiError(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return common.ErrRateLimited
	default:
		return common.NewNetworkError(0, fmt.Errorf("gemini: %w", err))
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
