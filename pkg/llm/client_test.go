package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/config"
)

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.1, *req.Temperature)
		assert.Nil(t, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  jawaban  "}}]}`))
	}))
	defer server.Close()

	c := NewClient(config.LLMConfig{
		BaseURL:    server.URL,
		Model:      "test-model",
		Generation: config.LLMGenerationConfig{Temperature: 0.1},
	})
	out, err := c.Chat(t.Context(), []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "  jawaban  ", out)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusInternalServerError, `boom`},
		{"api error", http.StatusOK, `{"error":{"message":"bad key"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(config.LLMConfig{BaseURL: server.URL})
			_, err := c.Chat(t.Context(), []Message{{Role: "user", Content: "u"}}, nil)
			assert.Error(t, err)
		})
	}
}

func TestDefaultGenerationParams(t *testing.T) {
	assert.Nil(t, DefaultGenerationParams(config.LLMGenerationConfig{}))

	gp := DefaultGenerationParams(config.LLMGenerationConfig{TopP: 0.9, MaxTokens: 512})
	require.NotNil(t, gp)
	assert.Nil(t, gp.Temperature)
	assert.Equal(t, 0.9, *gp.TopP)
	assert.Equal(t, 512, *gp.MaxTokens)
}
