package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

// MaxImages is the largest number of photos bundled into one request.
const MaxImages = 3

// Identifier identifies wood species from compressed JPEG photos.
type Identifier interface {
	Identify(ctx context.Context, images [][]byte) ([]model.Match, error)
}

// Config holds configuration for the remote identifier.
type Config struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RateLimit   int
	// Temperature is passed through as is, so 0 requests deterministic output.
	// Negative values select DefaultTemperature.
	Temperature float64
	MaxTokens   int
}

// Defaults applied by NewIdentifier.
const (
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel = "gpt-4o"
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1500
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// NewIdentifier creates a rate-limited remote identifier for the configured provider.
func NewIdentifier(cfg Config, logger *slog.Logger) (*LimitedIdentifier, error) {
	cfg = cfg.withDefaults()

	var (
		client Identifier
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		client, err = newOpenAIClient(cfg)
	case "gemini":
		client, err = newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported vision provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	return &LimitedIdentifier{
		client:      client,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      common.LoggerOrDefault(logger),
		provider:    strings.ToLower(cfg.Provider),
	}, nil
}

// LimitedIdentifier throttles outbound requests and validates the image count.
type LimitedIdentifier struct {
	client      Identifier
	rateLimiter *rateLimiter
	logger      *slog.Logger
	provider    string
}

// Identify implements Identifier.
func (l *LimitedIdentifier) Identify(ctx context.Context, images [][]byte) ([]model.Match, error) {
	if err := validateImages(images); err != nil {
		return nil, err
	}

	if err := l.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	matches, err := l.client.Identify(ctx, images)
	if err != nil {
		l.logger.Warn("remote identification failed",
			"provider", l.provider,
			"images", len(images),
			"elapsed", time.Since(start),
			"error", err)
		return nil, err
	}

	l.logger.Debug("remote identification succeeded",
		"provider", l.provider,
		"images", len(images),
		"matches", len(matches),
		"elapsed", time.Since(start))
	return matches, nil
}

// Close stops the rate limiter's refill goroutine.
func (l *LimitedIdentifier) Close() {
	l.rateLimiter.Close()
}

func validateImages(images [][]byte) error {
	if len(images) == 0 || len(images) > MaxImages {
		return fmt.Errorf("%w: expected 1-%d images, got %d", common.ErrImageProcessingFailed, MaxImages, len(images))
	}
	for i, img := range images {
		if len(img) == 0 {
			return fmt.Errorf("%w: image %d is empty", common.ErrImageProcessingFailed, i+1)
		}
	}
	return nil
}
