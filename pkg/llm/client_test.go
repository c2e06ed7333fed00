package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sara-smart-go/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderStreamsAndJoinsChunks(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Olá", ", tudo", " bem?"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.LLMProviderConfig{Name: "deepseek", BaseURL: srv.URL + "/", APIKey: "secret", Model: "deepseek-chat"},
		config.LLMGenerationConfig{Temperature: 0.7, MaxTokens: 256}, srv.Client())

	out, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "oi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Olá, tudo bem?", out)
	assert.Equal(t, "deepseek-chat", got.Model)
	assert.True(t, got.Stream)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 256, *got.MaxTokens)
	assert.Nil(t, got.TopP)
}

func TestHTTPProviderNon200IsRateLimitAware(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"slow down"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.LLMProviderConfig{Name: "deepseek", BaseURL: srv.URL}, config.LLMGenerationConfig{}, srv.Client())
	_, err := p.Complete(context.Background(), nil, &GenerationParams{MaxTokens: Int(10)})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}
