package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"questbot/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatGPT_Generate(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  The dragon of dishes awaits.  "}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", APIURL: srv.URL})

	story, err := c.Generate(context.Background(), "wash the dishes", model.ThemeVenture)
	require.NoError(t, err)
	assert.Equal(t, "The dragon of dishes awaits.", story)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "wash the dishes")
	assert.NotContains(t, got.Messages[1].Content, taskPlaceholder)
	assert.Contains(t, got.Messages[0].Content, "startup")
}

func TestChatGPT_GenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "api error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "garbage",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(Config{APIKey: "k", APIURL: srv.URL, Timeout: 50 * time.Millisecond})
			_, err := c.Generate(context.Background(), "task", model.ThemeBlack)
			assert.Error(t, err)
		})
	}
}

func TestChatGPT_NotConfigured(t *testing.T) {
	c := New(Config{})
	_, err := c.Generate(context.Background(), "task", model.ThemeLight)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPromptFor_UnknownThemeUsesDefault(t *testing.T) {
	p := promptFor(model.Theme("neon"))
	assert.Equal(t, prompts[model.ThemeBlack], p)
	for _, theme := range model.Themes {
		assert.True(t, strings.Contains(promptFor(theme).user, taskPlaceholder), theme)
	}
}
