package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/woodsnap/internal/common"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return string(body)
}

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *openAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newOpenAIClient(Config{
		Endpoint:    server.URL,
		APIKey:      "test-key",
		Timeout:     timeout,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	})
	require.NoError(t, err)
	return client
}

func TestOpenAIClientIdentify(t *testing.T) {
	images := [][]byte{[]byte("front"), []byte("end-grain")}

	var captured map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion("```json\n["+whiteOak+","+redOak+"]\n```"))
	}, 5*time.Second)

	matches, err := client.Identify(context.Background(), images)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "quercus-alba", matches[0].SpeciesID)
	assert.Equal(t, "quercus-rubra", matches[1].SpeciesID)

	require.NotNil(t, captured)
	assert.Equal(t, DefaultOpenAIModel, captured["model"])
	assert.InDelta(t, DefaultMaxTokens, captured["max_tokens"], 0)

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, systemPrompt, system["content"])

	user := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])

	for i, img := range images {
		part := parts[i+1].(map[string]any)
		assert.Equal(t, "image_url", part["type"])
		url := part["image_url"].(map[string]any)["url"]
		assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(img), url)
	}
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
		name    string
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrRateLimited)
				assert.NotErrorIs(t, err, common.ErrNetworkFailure)
			},
		},
		{
			name: "server error keeps status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, "upstream unavailable")
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrNetworkFailure)
				var netErr *common.NetworkError
				require.True(t, errors.As(err, &netErr))
				assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)
				assert.Contains(t, err.Error(), "upstream unavailable")
			},
		},
		{
			name: "empty error body uses status text",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrNetworkFailure)
				assert.Contains(t, err.Error(), http.StatusText(http.StatusUnauthorized))
			},
		},
		{
			name: "malformed envelope",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "<html>not json</html>")
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[]}`)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
			},
		},
		{
			name: "unusable content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, completion("Looks like oak to me."))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAIClient(t, tt.handler, 5*time.Second)
			matches, err := client.Identify(context.Background(), [][]byte{[]byte("img")})
			require.Error(t, err)
			assert.Nil(t, matches)
			tt.check(t, err)
		})
	}
}

func TestOpenAIClientTimeout(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = io.WriteString(w, completion("["+whiteOak+"]"))
	}, 50*time.Millisecond)

	_, err := client.Identify(context.Background(), [][]byte{[]byte("img")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := newOpenAIClient(Config{Endpoint: "ftp://example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	client, err := newOpenAIClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, client.endpoint)
	assert.Equal(t, DefaultOpenAIModel, client.model)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("  short  ", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
