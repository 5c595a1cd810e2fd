package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linnemanlabs/argus/internal/triage"
)

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"deepseek-r1:latest","response":"CRITICAL ALERT: disable account","done":true,"prompt_eval_count":310,"eval_count":42}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	resp, err := c.Generate(context.Background(), &triage.GenerateRequest{Model: "deepseek-r1", Prompt: "analyze this"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got.Model != "deepseek-r1" || got.Prompt != "analyze this" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if resp.Text != "CRITICAL ALERT: disable account" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Model != "deepseek-r1:latest" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.InputTokens != 310 || resp.OutputTokens != 42 {
		t.Errorf("tokens = %d/%d, want 310/42", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGenerate_DefaultModel(t *testing.T) {
	t.Parallel()

	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, time.Second).Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Model != DefaultModel {
		t.Errorf("request model = %q, want %q", got.Model, DefaultModel)
	}
	if resp.Model != DefaultModel {
		t.Errorf("response model = %q, want %q", resp.Model, DefaultModel)
	}
}

func TestGenerate_MissingResponseField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, time.Second).Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != NoAnalysis {
		t.Errorf("text = %q, want %q", resp.Text, NoAnalysis)
	}
}

func TestGenerate_EmptyResponseIsKept(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, time.Second).Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "" {
		t.Errorf("text = %q, want empty", resp.Text)
	}
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"model crashed"}`, triage.ErrTransport},
		{"model not found", http.StatusNotFound, `{"error":"model 'x' not found"}`, triage.ErrTransport},
		{"not json", http.StatusOK, `<html>gateway</html>`, triage.ErrMalformedResponse},
		{"truncated json", http.StatusOK, `{"response":"CRIT`, triage.ErrMalformedResponse},
		{"json array", http.StatusOK, `["CRITICAL ALERT"]`, triage.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := New(srv.URL, time.Second).Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if resp != nil {
				t.Errorf("resp = %+v, want nil", resp)
			}
		})
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr, time.Second).Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
	if !errors.Is(err, triage.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if triage.KindOf(err) != triage.KindTransport {
		t.Errorf("kind = %q, want %q", triage.KindOf(err), triage.KindTransport)
	}
}

func TestGenerate_ClientTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := New(srv.URL, 50*time.Millisecond).Generate(context.Background(), &triage.GenerateRequest{Prompt: "p"})
	if !errors.Is(err, triage.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("took %v, timeout not enforced", elapsed)
	}
}

func TestGenerate_ContextDeadline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, time.Minute).Generate(ctx, &triage.GenerateRequest{Prompt: "p"})
	if triage.KindOf(err) != triage.KindTimeout {
		t.Fatalf("kind = %q, want %q (err=%v)", triage.KindOf(err), triage.KindTimeout, err)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New("", 0)
	if c.baseURL != DefaultURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultURL)
	}
	if c.httpClient.Timeout != triage.DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, triage.DefaultTimeout)
	}
	if c.Name() != "ollama" {
		t.Errorf("Name() = %q", c.Name())
	}
}
