package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/metrics"
)

// DefaultAttemptTimeout bounds a single generation attempt.
const DefaultAttemptTimeout = 20 * time.Second

// CompletionRequest is one call to a text generator.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	TopP        float64
}

// TextGenerator produces raw text for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DeepSeekClient is a TextGenerator backed by the DeepSeek chat completions API.
type DeepSeekClient struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewDeepSeekClient creates a DeepSeek client. Per-call deadlines come from
// the request context.
func NewDeepSeekClient(apiKey, apiURL, model string) (*DeepSeekClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY or DEEPSEEK_API_KEY_FILE must be set")
	}
	return &DeepSeekClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
		httpClient: &http.Client{},
	}, nil
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a request to the DeepSeek API
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
	TopP           float64           `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete implements TextGenerator.
func (c *DeepSeekClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body, err := json.Marshal(Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    req.Temperature,
		TopP:           req.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// generationState is a step of the bounded attempt sequence.
type generationState int

const (
	stateNotStarted generationState = iota
	stateAttempt1
	stateAttempt2
	stateExhausted
)

func (s generationState) String() string {
	switch s {
	case stateNotStarted:
		return "not_started"
	case stateAttempt1:
		return "attempt_1"
	case stateAttempt2:
		return "attempt_2"
	default:
		return "exhausted"
	}
}

// SamplingSetting is the sampling configuration of one attempt.
type SamplingSetting struct {
	Temperature float64
	TopP        float64
}

// Attempt 1 is conservative, attempt 2 exploratory.
var attemptSettings = map[generationState]SamplingSetting{
	stateAttempt1: {Temperature: 0.2, TopP: 0.8},
	stateAttempt2: {Temperature: 0.9, TopP: 0.95},
}

// Attempt failure causes.
var (
	ErrUnparseable     = errors.New("no valid JSON payload in generator output")
	ErrEmptyCandidates = errors.New("generator returned no recipe candidates")
)

// GenerationOutcome is what GenerationClient.Generate reports. Either
// Candidates is non-empty or Exhausted is true.
type GenerationOutcome struct {
	Candidates []Candidate
	Attempts   int
	Exhausted  bool
	Errors     []error
}

// GenerationClient runs up to two generation attempts against a TextGenerator.
type GenerationClient struct {
	generator      TextGenerator
	attemptTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// NewGenerationClient creates a client. A non-positive attemptTimeout uses
// DefaultAttemptTimeout.
func NewGenerationClient(generator TextGenerator, attemptTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *GenerationClient {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationClient{
		generator:      generator,
		attemptTimeout: attemptTimeout,
		logger:         logger,
		metrics:        m,
	}
}

// Generate walks NotStarted -> Attempt1 -> Attempt2 -> Exhausted, stopping at
// the first attempt that yields parseable, non-empty candidates. It never
// returns an error; failures are reported in the outcome.
func (c *GenerationClient) Generate(ctx context.Context, spec PromptSpec) GenerationOutcome {
	var out GenerationOutcome
	state := stateNotStarted

	for {
		switch state {
		case stateNotStarted:
			state = stateAttempt1

		case stateAttempt1, stateAttempt2:
			if err := ctx.Err(); err != nil {
				out.Errors = append(out.Errors, err)
				state = stateExhausted
				continue
			}

			out.Attempts++
			candidates, err := c.attempt(ctx, spec, attemptSettings[state])
			if err == nil {
				c.record(out.Attempts, "ok")
				out.Candidates = candidates
				return out
			}

			c.record(out.Attempts, attemptOutcome(err))
			c.logger.Warn("generation attempt failed",
				zap.String("state", state.String()),
				zap.Error(err),
			)
			out.Errors = append(out.Errors, fmt.Errorf("%s: %w", state, err))
			if state == stateAttempt1 {
				state = stateAttempt2
			} else {
				state = stateExhausted
			}

		case stateExhausted:
			out.Exhausted = true
			return out
		}
	}
}

// attempt runs one bounded call. A panicking generator counts as a failed attempt.
func (c *GenerationClient) attempt(ctx context.Context, spec PromptSpec, s SamplingSetting) (candidates []Candidate, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			candidates = nil
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()

	text, err := c.generator.Complete(ctx, CompletionRequest{
		System:      spec.System,
		User:        spec.User,
		Temperature: s.Temperature,
		TopP:        s.TopP,
	})
	if err != nil {
		return nil, err
	}

	candidates, err = ParseCandidates(text)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}
	return candidates, nil
}

func (c *GenerationClient) record(attempt int, outcome string) {
	if c.metrics != nil {
		c.metrics.GenerationAttempts.WithLabelValues(strconv.Itoa(attempt), outcome).Inc()
	}
}

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, ErrUnparseable):
		return "unparseable"
	case errors.Is(err, ErrEmptyCandidates):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "upstream_error"
	}
}
