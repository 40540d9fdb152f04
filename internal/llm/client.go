// Package llm is a small client for OpenAI-compatible chat completion APIs,
// used by the advisory flows to generate structured text.
package llm

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
	"golang.org/x/time/rate"

	"github.com/spec-kit/garage-service/internal/config"
)

// Generator produces text for a prompt. Implementations must honour ctx.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is a single-turn request; System may be empty.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// ProviderError is returned when the API responds with a non-200 status.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether retrying the same request may succeed.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrEmptyResponse is returned when the provider answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Client calls POST {BaseURL}/v1/chat/completions.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	limiter     *rate.Limiter
	retry       RetryPolicy
	logger      *zap.Logger
}

// NewClient builds a client from configuration. Calls share one token-bucket limiter.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		retry:       DefaultRetryPolicy(cfg.MaxRetries),
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt, retrying transient failures per the retry policy.
func (c *Client) Generate(ctx context.Context, prompt Prompt) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if prompt.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: prompt.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt.User})
	if prompt.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshaling request: %w", err)
	}

	var text string
	err = c.retry.Do(ctx, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return Permanent(err)
		}
		var callErr error
		text, callErr = c.complete(ctx, body)
		if callErr != nil && attempt < c.retry.MaxRetries && IsTransient(callErr) {
			c.logger.Warn("text generation failed, retrying",
				zap.Int("attempt", attempt+1), zap.Error(callErr))
		}
		return callErr
	})
	return text, err
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", Permanent(fmt.Errorf("llm: creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readProviderError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", Permanent(fmt.Errorf("llm: decoding response: %w", err))
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", Permanent(ErrEmptyResponse)
	}
	return decoded.Choices[0].Message.Content, nil
}

func readProviderError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Error.Message != "" {
		return &ProviderError{StatusCode: resp.StatusCode, Type: wire.Error.Type, Message: wire.Error.Message}
	}
	return &ProviderError{StatusCode: resp.StatusCode, Message: string(body)}
}

// RetryPolicy retries transient failures with exponential backoff.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy starts at 200ms and caps at 2s.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Do runs fn until it succeeds, returns a non-transient error, or retries are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := p.BaseDelay
	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !IsTransient(err) {
			return unwrapPermanent(err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}

// IsTransient classifies errors: provider 429/5xx and transport failures retry,
// context cancellation and anything marked Permanent do not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	return true
}
