// Package generator asks an external text-generation service for a question set.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logger"
	"mcq-quiz-service/internal/questionset"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 4 << 20
)

// Config points the client at a generation endpoint.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client performs one POST per Generate call. It never retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        logger.Component(log, "generator"),
	}
}

type request struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

// response covers the shapes we accept: {"text": ...} and OpenAI-style choices.
type response struct {
	Text    string `json:"text"`
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate builds the prompt for req, sends it and returns the validated questions found in
// the reply. Every failure is a *domain.GenerationError.
func (c *Client) Generate(ctx context.Context, req questionset.PromptRequest) ([]domain.Question, error) {
	if strings.TrimSpace(c.cfg.URL) == "" {
		return nil, &domain.GenerationError{Reason: "no endpoint configured"}
	}
	prompt, err := questionset.BuildPrompt(req)
	if err != nil {
		return nil, &domain.GenerationError{Reason: "invalid request", Err: err}
	}

	body, err := json.Marshal(request{Model: c.cfg.Model, Prompt: prompt})
	if err != nil {
		return nil, &domain.GenerationError{Reason: "encode request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.GenerationError{Reason: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.GenerationError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.GenerationError{Reason: "read response", Err: err}
	}
	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Str("topic", req.Topic).
		Int("count", req.Count).
		Msg("generation response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.GenerationError{Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	jsonText, err := questionset.Extract(replyText(raw))
	if err != nil {
		return nil, &domain.GenerationError{Reason: "no question array in reply", Err: err}
	}
	questions, err := questionset.Parse(jsonText)
	if err != nil {
		return nil, &domain.GenerationError{Reason: "reply failed validation", Err: err}
	}
	return questions, nil
}

// replyText picks the generated text out of the response body, falling back to the body itself.
func replyText(raw []byte) string {
	var r response
	if err := json.Unmarshal(raw, &r); err == nil {
		if r.Text != "" {
			return r.Text
		}
		if len(r.Choices) > 0 {
			if content := r.Choices[0].Message.Content; content != "" {
				return content
			}
			if r.Choices[0].Text != "" {
				return r.Choices[0].Text
			}
		}
	}
	return string(raw)
}
