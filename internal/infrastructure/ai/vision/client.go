// Package vision provides the nutrition analyzer adapter over an
// OpenAI-compatible multimodal chat completions API.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/ports/outbound"
)

// Config configures the vision client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns the stock client settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.1,
		Timeout:     30 * time.Second,
	}
}

// Client calls the model and parses its reply. It is the raw adapter; the
// analysis pipeline wraps it with retry, breaker, and rate limiting.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a vision client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("vision"),
	}
}

var _ outbound.NutritionAnalyzer = (*Client)(nil)

// Chat completions API structures.

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Analyze sends one multimodal analysis request and parses the structured
// reply. Failures are classified into the adapter error taxonomy.
func (c *Client) Analyze(ctx context.Context, req outbound.AnalysisRequest) (*outbound.AnalysisResult, error) {
	prompt := buildPrompt(promptContext{
		Description: req.Description,
		LocationTag: req.LocationTag,
		TimeBucket:  req.TimeBucket,
		HasImage:    req.ImageHandle != "",
	})

	content := []contentPart{{Type: "text", Text: prompt}}
	if req.ImageHandle != "" {
		content = append(content, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: req.ImageHandle},
		})
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, &outbound.AnalysisError{Kind: outbound.AnalysisTransportError, Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &outbound.AnalysisError{Kind: outbound.AnalysisTransportError, Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		kind := outbound.AnalysisTransportError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = outbound.AnalysisTimeout
		}
		return nil, &outbound.AnalysisError{Kind: kind, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &outbound.AnalysisError{Kind: outbound.AnalysisTransportError, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &outbound.AnalysisError{
			Kind:  outbound.AnalysisRateLimited,
			Cause: fmt.Errorf("model API rate limited"),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &outbound.AnalysisError{
			Kind:  outbound.AnalysisTransportError,
			Cause: fmt.Errorf("model API status %d: %s", resp.StatusCode, truncate(string(raw), 200)),
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, &outbound.AnalysisError{
			Kind:       outbound.AnalysisParseError,
			RawPayload: string(raw),
			Cause:      err,
		}
	}
	if len(completion.Choices) == 0 {
		return nil, &outbound.AnalysisError{
			Kind:       outbound.AnalysisParseError,
			RawPayload: string(raw),
			Cause:      fmt.Errorf("model returned no choices"),
		}
	}

	reply := completion.Choices[0].Message.Content
	result, err := parseReply(reply)
	if err != nil {
		c.logger.Warn("unparseable model reply",
			zap.String("reply", truncate(reply, 300)),
			zap.Error(err))
		return nil, &outbound.AnalysisError{
			Kind:       outbound.AnalysisParseError,
			RawPayload: reply,
			Cause:      err,
		}
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
