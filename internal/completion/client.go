// Package completion sends persona prompts to an OpenAI-compatible
// chat-completions endpoint and returns the generated reply.
//
// Every failure, whether transport, HTTP status, or body shape, is reported
// as an [errors.RequestFailedError] that names the endpoint attempted.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Iron-Ham/duet/internal/errors"
	"github.com/Iron-Ham/duet/internal/history"
	"github.com/Iron-Ham/duet/internal/logging"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/util"
)

// UnboundedTokens is the max_tokens value that asks the server for no limit.
const UnboundedTokens = -1

// maxErrorBody caps how much of a failed response body is quoted in errors.
const maxErrorBody = 240

// Options configures a Client.
type Options struct {
	Endpoint string
	APIKey   string
	// Models maps each agent to its model identifier.
	Models      map[persona.AgentID]string
	Temperature float64
	// MaxTokens < 0 requests an unbounded reply; 0 omits the field.
	MaxTokens int
	Timeout   time.Duration
}

// Client talks to a single chat-completions endpoint.
type Client struct {
	opts   Options
	http   *http.Client
	logger *logging.Logger
}

// New creates a Client. A nil httpClient gets one with opts.Timeout.
func New(opts Options, httpClient *http.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Client{
		opts:   opts,
		http:   httpClient,
		logger: logger.WithComponent("completion"),
	}
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.opts.Endpoint
}

// Model returns the configured model for agent.
func (c *Client) Model(agent persona.AgentID) string {
	return c.opts.Models[agent]
}

// Request is the JSON body posted to the endpoint.
type Request struct {
	Model       string            `json:"model"`
	Messages    []history.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Stream      bool              `json:"stream"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// BuildRequest assembles the request body for p with its history.
func (c *Client) BuildRequest(p persona.Persona, msgs []history.Message) Request {
	all := make([]history.Message, 0, len(msgs)+1)
	all = append(all, history.Message{Role: history.RoleSystem, Content: p.SystemPrompt})
	all = append(all, msgs...)

	req := Request{
		Model:       c.opts.Models[p.ID],
		Messages:    all,
		Temperature: c.opts.Temperature,
		Stream:      false,
	}
	switch {
	case c.opts.MaxTokens < 0:
		n := UnboundedTokens
		req.MaxTokens = &n
	case c.opts.MaxTokens > 0:
		n := c.opts.MaxTokens
		req.MaxTokens = &n
	}
	return req
}

// Complete sends p's system prompt plus msgs and returns the reply text.
func (c *Client) Complete(ctx context.Context, p persona.Persona, msgs []history.Message) (string, error) {
	body, err := json.Marshal(c.BuildRequest(p, msgs))
	if err != nil {
		return "", c.fail("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", c.fail("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.fail("could not reach endpoint", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.fail("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("API error: %s", resp.Status)
		if snippet := compact(string(payload), maxErrorBody); snippet != "" {
			msg += ": " + snippet
		}
		return "", errors.NewRequestFailedError(c.opts.Endpoint, msg).WithStatusCode(resp.StatusCode)
	}

	var parsed response
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", c.fail("response is not valid JSON", err).WithStatusCode(resp.StatusCode)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", errors.NewRequestFailedError(c.opts.Endpoint, "response has no choices[0].message.content").
			WithStatusCode(resp.StatusCode)
	}

	c.logger.Debug("completion received",
		"agent", p.ID.String(),
		"model", c.opts.Models[p.ID],
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(*parsed.Choices[0].Message.Content),
	)

	return *parsed.Choices[0].Message.Content, nil
}

func (c *Client) fail(message string, cause error) *errors.RequestFailedError {
	return errors.NewRequestFailedError(c.opts.Endpoint, message).WithCause(cause)
}

// compact collapses whitespace and truncates s to max runes.
func compact(s string, max int) string {
	s = util.OneLine(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
