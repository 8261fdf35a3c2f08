package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to a local LM Studio (or any OpenAI-compatible) chat
// completions endpoint.
type Client struct {
	BaseURL     string
	Model       string
	Temperature float64
	// MaxTokens caps the completion length. 0 means use the server default.
	MaxTokens int
	// Logger is used for request tracing. nil means no logging.
	Logger *logrus.Logger

	HTTPClient *http.Client
}

// NewClient builds a Client for the given host ("localhost:1234") and model.
func NewClient(host, model string, temperature float64, maxTokens int) *Client {
	base := host
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL:     strings.TrimRight(base, "/"),
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		HTTPClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Translate requests a sentence translation.
func (c *Client) Translate(ctx context.Context, text string, target Lang) (string, error) {
	return c.complete(ctx, SentencePrompt(target, text))
}

// TranslateWord requests semicolon-separated candidate translations for one word.
func (c *Client) TranslateWord(ctx context.Context, word string, target Lang) (string, error) {
	return c.complete(ctx, WordPrompt(target, word))
}

// Ask sends a free-form question.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, question)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrRejected, err)
	}

	url := c.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: timeout after %s", ErrUnavailable, time.Since(start).Round(time.Millisecond))
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRejected, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrRejected, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrRejected)
	}

	out := CleanResponse(parsed.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", ErrRejected)
	}

	if c.Logger != nil {
		c.Logger.WithFields(logrus.Fields{
			"model":    c.Model,
			"duration": time.Since(start).Round(time.Millisecond),
			"chars":    len(out),
		}).Debug("completion finished")
	}
	return out, nil
}
