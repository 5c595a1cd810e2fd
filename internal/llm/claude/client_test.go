package claude

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/linnemanlabs/argus/internal/triage"
)

func TestFromSDKMessage_TextContent(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Model: anthropic.Model("claude-sonnet-4-5-20250929"),
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Summary: brute force"},
			{Type: "text", Text: "CRITICAL ALERT"},
		},
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 100, OutputTokens: 50},
	}

	resp, err := fromSDKMessage(msg)
	if err != nil {
		t.Fatalf("fromSDKMessage: %v", err)
	}
	if resp.Text != "Summary: brute force\nCRITICAL ALERT" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.InputTokens != 100 || resp.OutputTokens != 50 {
		t.Errorf("tokens = %d/%d, want 100/50", resp.InputTokens, resp.OutputTokens)
	}
}

func TestFromSDKMessage_SkipsNonText(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking"},
			{Type: "text", Text: "LOW SEVERITY"},
		},
		StopReason: anthropic.StopReasonEndTurn,
	}

	resp, err := fromSDKMessage(msg)
	if err != nil {
		t.Fatalf("fromSDKMessage: %v", err)
	}
	if resp.Text != "LOW SEVERITY" {
		t.Errorf("text = %q, want %q", resp.Text, "LOW SEVERITY")
	}
}

func TestFromSDKMessage_NoText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  *anthropic.Message
	}{
		{"nil", nil},
		{"empty content", &anthropic.Message{StopReason: anthropic.StopReasonMaxTokens}},
		{"only thinking", &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "thinking"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := fromSDKMessage(tt.msg)
			if !errors.Is(err, triage.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, triage.ErrTimeout},
		{"api 500", apiError(http.StatusInternalServerError), triage.ErrTransport},
		{"api 401", apiError(http.StatusUnauthorized), triage.ErrTransport},
		{"api 504", apiError(http.StatusGatewayTimeout), triage.ErrTimeout},
		{"other", errors.New("connection reset"), triage.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classify(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func apiError(code int) *anthropic.Error {
	return &anthropic.Error{
		StatusCode: code,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
		Response:   &http.Response{StatusCode: code},
	}
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("api key = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"msg_01","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"CRITICAL ALERT: isolate host"}],
			"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":7}
		}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second})
	resp, err := c.Generate(context.Background(), &triage.GenerateRequest{Prompt: "analyze"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if body["model"] != DefaultModel {
		t.Errorf("request model = %v, want %s", body["model"], DefaultModel)
	}
	if body["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
	if resp.Text != "CRITICAL ALERT: isolate host" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 7 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGenerate_APIErrorIsTransport(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := c.Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
	if !errors.Is(err, triage.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", calls)
	}
}
