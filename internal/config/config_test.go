package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/vision"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("WOODSNAP_TEST_DIR", "/data")

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "~", want: home},
		{input: "~/models/oak.json", want: filepath.Join(home, "models/oak.json")},
		{input: "$WOODSNAP_TEST_DIR/db", want: "/data/db"},
		{input: "/abs/path", want: "/abs/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}

func TestDefaultPaths(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultDatabasePath(), filepath.Join(AppName, "woodsnap.db")))
	assert.True(t, strings.HasSuffix(DefaultModelPath(), "offline-model.json"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("WOODSNAP_DOTENV_A=from-file\nWOODSNAP_DOTENV_B=from-file\n"), 0o600))

	t.Setenv("WOODSNAP_DOTENV_B", "from-env")
	// Registers cleanup for a variable the .env file will set.
	t.Setenv("WOODSNAP_DOTENV_A", "")
	require.NoError(t, os.Unsetenv("WOODSNAP_DOTENV_A"))

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath)
	require.NoError(t, err)
	assert.Equal(t, envPath, loaded)
	assert.Equal(t, "from-file", os.Getenv("WOODSNAP_DOTENV_A"))
	assert.Equal(t, "from-env", os.Getenv("WOODSNAP_DOTENV_B"))

	loaded, err = LoadDotEnv(filepath.Join(dir, "nothing-here"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	s, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "openai", s.Vision.Provider)
	assert.Equal(t, "sk-test", s.Vision.APIKey)
	assert.Equal(t, 30*time.Second, s.Vision.Timeout)
	assert.Equal(t, DefaultRateLimit, s.Vision.RateLimit)
	assert.Equal(t, 50, s.CacheCapacity)
	assert.Equal(t, 500_000, s.TargetBytes)
	assert.Equal(t, 1024, s.MaxDimension)
	assert.Equal(t, "api.openai.com:443", s.ProbeAddress)
	assert.Equal(t, DefaultProbeInterval, s.ProbeInterval)
	assert.False(t, s.Unlimited)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, DefaultDatabasePath(), s.DatabasePath)
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
database:
  path: `+filepath.Join(dir, "scans.db")+`
vision:
  provider: Gemini
  api_key: g-key
  timeout: 5s
  model: gemini-1.5-pro
cache:
  capacity: 10
entitlement:
  unlimited: true
connectivity:
  interval: 1m
`), 0o600))

	v := viper.New()
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "gemini", s.Vision.Provider)
	assert.Equal(t, "g-key", s.Vision.APIKey)
	assert.Equal(t, "gemini-1.5-pro", s.Vision.Model)
	assert.Equal(t, 5*time.Second, s.Vision.Timeout)
	assert.Equal(t, 10, s.CacheCapacity)
	assert.True(t, s.Unlimited)
	assert.Equal(t, time.Minute, s.ProbeInterval)
	assert.Equal(t, filepath.Join(dir, "scans.db"), s.DatabasePath)
	assert.Equal(t, "generativelanguage.googleapis.com:443", s.ProbeAddress)
}

func TestLoadProbeAddress(t *testing.T) {
	v := viper.New()
	v.Set("vision.endpoint", "http://proxy.local:8080/v1/chat/completions")
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:8080", s.ProbeAddress)

	v = viper.New()
	v.Set("vision.endpoint", "http://proxy.local:8080/v1/chat/completions")
	v.Set("connectivity.probe_address", "1.1.1.1:53")
	s, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1:53", s.ProbeAddress)
}

func TestProbeAddressFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  vision.Config
		want string
	}{
		{"default openai", vision.Config{}, "api.openai.com:443"},
		{"https proxy", vision.Config{Endpoint: "https://wood.example.com/api/identify"}, "wood.example.com:443"},
		{"http proxy", vision.Config{Endpoint: "http://10.0.0.5/identify"}, "10.0.0.5:80"},
		{"explicit port", vision.Config{Endpoint: "https://wood.example.com:8443/x"}, "wood.example.com:8443"},
		{"gemini ignores endpoint", vision.Config{Provider: "gemini", Endpoint: "https://wood.example.com"}, "generativelanguage.googleapis.com:443"},
		{"unparseable endpoint", vision.Config{Endpoint: "::nope"}, "api.openai.com:443"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, probeAddress(tt.cfg))
		})
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("WOODSNAP_CACHE_CAPACITY", "7")
	t.Setenv("GEMINI_API_KEY", "env-gemini")

	v := viper.New()
	v.SetEnvPrefix("WOODSNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.Set("vision.provider", "gemini")

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, s.CacheCapacity)
	assert.Equal(t, "env-gemini", s.Vision.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() Settings {
		return Settings{
			DatabasePath:  "/tmp/x.db",
			CacheCapacity: 1,
			TargetBytes:   1,
			MaxDimension:  1,
			ProbeInterval: time.Second,
		}
	}

	tests := []struct {
		mutate func(s *Settings)
		want   error
		name   string
	}{
		{name: "unknown provider", mutate: func(s *Settings) { s.Vision.Provider = "clippy" }, want: common.ErrInvalidConfig},
		{name: "gemini without key", mutate: func(s *Settings) { s.Vision.Provider = "gemini" }, want: common.ErrMissingConfig},
		{name: "no database", mutate: func(s *Settings) { s.DatabasePath = "" }, want: common.ErrMissingConfig},
		{name: "zero cache", mutate: func(s *Settings) { s.CacheCapacity = 0 }, want: common.ErrInvalidConfig},
		{name: "zero target", mutate: func(s *Settings) { s.TargetBytes = 0 }, want: common.ErrInvalidConfig},
		{name: "zero dimension", mutate: func(s *Settings) { s.MaxDimension = 0 }, want: common.ErrInvalidConfig},
		{name: "zero interval", mutate: func(s *Settings) { s.ProbeInterval = 0 }, want: common.ErrInvalidConfig},
		{name: "negative rate", mutate: func(s *Settings) { s.Vision.RateLimit = -1 }, want: common.ErrInvalidConfig},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}
