// Package claude implements triage.Provider on the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/argus/internal/triage"
)

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "claude-sonnet-4-5"

	defaultMaxTokens = 2048
)

// Options configures a Client.
type Options struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string
}

// Client implements triage.Provider for Claude.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Claude provider. The SDK's own retries are disabled; a failed
// call is terminal for the alert.
func New(opts Options) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = triage.DefaultTimeout
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Client{
		sdk:       anthropic.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

// Name implements triage.Provider.
func (c *Client) Name() string { return "claude" }

// Generate sends the prompt as a single user message.
func (c *Client) Generate(ctx context.Context, req *triage.GenerateRequest) (*triage.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, classify(err)
	}

	resp, err := fromSDKMessage(msg)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

// fromSDKMessage joins the text blocks of a reply. A reply with no text is
// malformed for triage purposes.
func fromSDKMessage(msg *anthropic.Message) (*triage.GenerateResponse, error) {
	if msg == nil {
		return nil, fmt.Errorf("claude: %w: empty message", triage.ErrMalformedResponse)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("claude: %w: no text content (stop_reason=%s)", triage.ErrMalformedResponse, msg.StopReason)
	}

	return &triage.GenerateResponse{
		Text:         strings.Join(parts, "\n"),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func classify(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("claude: %w: %w", triage.ErrTimeout, err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout {
			return fmt.Errorf("claude: %w: api returned %d: %w", triage.ErrTimeout, apiErr.StatusCode, err)
		}
		return fmt.Errorf("claude: %w: api returned %d: %w", triage.ErrTransport, apiErr.StatusCode, err)
	}
	return fmt.Errorf("claude: %w: %w", triage.ErrTransport, err)
}
