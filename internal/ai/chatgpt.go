package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"questbot/internal/model"

	"github.com/goccy/go-json"
)

const (
	DefaultAPIURL  = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = 10 * time.Second

	taskPlaceholder = "{TASK}"
)

var ErrNotConfigured = errors.New("story generator is not configured")

type Config struct {
	APIKey  string        `yaml:"apiKey"`
	APIURL  string        `yaml:"apiURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ChatGPT turns task descriptions into quest stories through the chat
// completions API. One attempt per call, bounded by the client timeout.
type ChatGPT struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func New(cfg Config) *ChatGPT {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ChatGPT{
		apiKey:      cfg.APIKey,
		apiURL:      cfg.APIURL,
		model:       cfg.Model,
		maxTokens:   300,
		temperature: 0.8,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ChatGPT) Generate(ctx context.Context, taskText string, theme model.Theme) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	p := promptFor(theme)
	request := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: p.system},
			{Role: "user", Content: strings.ReplaceAll(p.user, taskPlaceholder, taskText)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}

	story := strings.TrimSpace(response.Choices[0].Message.Content)
	if story == "" {
		return "", errors.New("empty story returned")
	}

	return story, nil
}
