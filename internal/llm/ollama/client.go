// Package ollama implements triage.Provider against an Ollama server's
// /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/argus/internal/triage"
)

const (
	// DefaultURL is the Ollama address inside the Wazuh docker-compose network.
	DefaultURL = "http://ollama:11434"

	// DefaultModel is used when no model is configured.
	DefaultModel = "deepseek-r1"

	// NoAnalysis is returned as the analysis when the server omits the response field.
	NoAnalysis = "No analysis provided by Ollama."

	maxResponseSize = 8 << 20
)

// Client is a non-streaming Ollama generate client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL. timeout bounds the whole
// request including reading the body; zero means triage.DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = triage.DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name implements triage.Provider.
func (c *Client) Name() string { return "ollama" }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model           string  `json:"model"`
	Response        *string `json:"response"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Generate sends one blocking generate request.
func (c *Client) Generate(ctx context.Context, req *triage.GenerateRequest) (*triage.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: req.Prompt, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: %w: create request: %w", triage.ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // G704: base URL is from trusted config
	if err != nil {
		return nil, classify("post generate", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classify("read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama: %w: server returned %d: %s", triage.ErrTransport, resp.StatusCode, truncate(string(respBody), 512))
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("ollama: %w: %w", triage.ErrMalformedResponse, err)
	}

	text := NoAnalysis
	if out.Response != nil {
		text = *out.Response
	}
	if out.Model != "" {
		model = out.Model
	}

	return &triage.GenerateResponse{
		Text:         text,
		Model:        model,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
	}, nil
}

// classify maps a net/http failure to timeout or transport.
func classify(op string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("ollama: %s: %w: %w", op, triage.ErrTimeout, err)
	}
	return fmt.Errorf("ollama: %s: %w: %w", op, triage.ErrTransport, err)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
