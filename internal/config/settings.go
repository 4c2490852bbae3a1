package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/identify"
	"github.com/Veraticus/woodsnap/internal/imaging"
	"github.com/Veraticus/woodsnap/internal/vision"
)

// Defaults for keys not present in the config file or environment.
const (
	DefaultProbeInterval = 15 * time.Second
	DefaultRateLimit     = 30
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Vision            vision.Config
	DatabasePath      string
	FallbackModelPath string
	ProbeAddress      string
	LogLevel          string
	LogFormat         string
	ProbeInterval     time.Duration
	CacheCapacity     int
	TargetBytes       int
	MaxDimension      int
	Unlimited         bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("vision.provider", "openai")
	v.SetDefault("vision.timeout", vision.DefaultTimeout)
	v.SetDefault("vision.rate_limit", DefaultRateLimit)
	v.SetDefault("vision.max_tokens", vision.DefaultMaxTokens)
	v.SetDefault("vision.temperature", vision.DefaultTemperature)
	v.SetDefault("fallback.model_path", DefaultModelPath())
	v.SetDefault("connectivity.interval", DefaultProbeInterval)
	v.SetDefault("cache.capacity", identify.DefaultCacheCapacity)
	v.SetDefault("entitlement.unlimited", false)
	v.SetDefault("imaging.target_bytes", imaging.DefaultTargetBytes)
	v.SetDefault("imaging.max_dimension", imaging.DefaultMaxDimension)
}

// Load resolves Settings from v. It follows this precedence:
// 1. Viper configuration (config file or WOODSNAP_ env vars)
// 2. Provider environment variables (OPENAI_API_KEY, GEMINI_API_KEY)
// 3. Default values
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	s := &Settings{
		Vision: vision.Config{
			Provider:    strings.ToLower(strings.TrimSpace(v.GetString("vision.provider"))),
			Endpoint:    v.GetString("vision.endpoint"),
			APIKey:      v.GetString("vision.api_key"),
			Model:       v.GetString("vision.model"),
			Timeout:     v.GetDuration("vision.timeout"),
			RateLimit:   v.GetInt("vision.rate_limit"),
			Temperature: v.GetFloat64("vision.temperature"),
			MaxTokens:   v.GetInt("vision.max_tokens"),
		},
		DatabasePath:      ExpandPath(v.GetString("database.path")),
		FallbackModelPath: ExpandPath(v.GetString("fallback.model_path")),
		ProbeAddress:      v.GetString("connectivity.probe_address"),
		ProbeInterval:     v.GetDuration("connectivity.interval"),
		CacheCapacity:     v.GetInt("cache.capacity"),
		Unlimited:         v.GetBool("entitlement.unlimited"),
		TargetBytes:       v.GetInt("imaging.target_bytes"),
		MaxDimension:      v.GetInt("imaging.max_dimension"),
		LogLevel:          v.GetString("logging.level"),
		LogFormat:         v.GetString("logging.format"),
	}

	if s.Vision.APIKey == "" {
		switch s.Vision.Provider {
		case "gemini":
			s.Vision.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			s.Vision.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if s.ProbeAddress == "" {
		s.ProbeAddress = probeAddress(s.Vision)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values no component can work with.
func (s *Settings) Validate() error {
	switch s.Vision.Provider {
	case "", "openai":
	case "gemini":
		if s.Vision.APIKey == "" {
			return fmt.Errorf("%w: vision.api_key (or GEMINI_API_KEY) is required for gemini", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vision.provider %q", common.ErrInvalidConfig, s.Vision.Provider)
	}

	if s.DatabasePath == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if s.CacheCapacity <= 0 {
		return fmt.Errorf("%w: cache.capacity must be positive", common.ErrInvalidConfig)
	}
	if s.TargetBytes <= 0 {
		return fmt.Errorf("%w: imaging.target_bytes must be positive", common.ErrInvalidConfig)
	}
	if s.MaxDimension <= 0 {
		return fmt.Errorf("%w: imaging.max_dimension must be positive", common.ErrInvalidConfig)
	}
	if s.ProbeInterval <= 0 {
		return fmt.Errorf("%w: connectivity.interval must be positive", common.ErrInvalidConfig)
	}
	if s.Vision.RateLimit < 0 {
		return fmt.Errorf("%w: vision.rate_limit cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// geminiHost serves the Gemini API used by the gemini provider.
const geminiHost = "generativelanguage.googleapis.com"

// probeAddress returns the host:port the connectivity monitor dials when
// connectivity.probe_address is unset: the host the remote identifier talks to.
func probeAddress(cfg vision.Config) string {
	if cfg.Provider == "gemini" {
		return net.JoinHostPort(geminiHost, "443")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = vision.DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		u, _ = url.Parse(vision.DefaultEndpoint)
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}
