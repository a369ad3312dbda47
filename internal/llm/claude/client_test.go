package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/scribe/internal/extract"
)

func TestSend(t *testing.T) {
	t.Parallel()

	var gotBody request
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{
			ID:    "msg_01",
			Model: "claude-sonnet-4-20250514",
			Content: []contentBlock{
				{Type: "text", Text: `{"actionable":true,`},
				{Type: "text", Text: `"title":"Fix login bug"}`},
			},
			StopReason: "end_turn",
			Usage:      extract.Usage{InputTokens: 120, OutputTokens: 40},
		})
	}))
	defer srv.Close()

	c := New("test-key", "claude-sonnet-4-20250514")
	c.baseURL = srv.URL

	resp, err := c.Send(context.Background(), &extract.LLMRequest{
		MaxTokens: 256,
		System:    "extract tasks",
		Messages:  []extract.Message{{Role: "user", Content: "fix the login bug"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotHeaders.Get("x-api-key") != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", gotHeaders.Get("x-api-key"))
	}
	if gotHeaders.Get("anthropic-version") == "" {
		t.Error("missing anthropic-version header")
	}
	if gotBody.Model != "claude-sonnet-4-20250514" {
		t.Errorf("request model = %q", gotBody.Model)
	}
	if gotBody.MaxTokens != 256 {
		t.Errorf("request max_tokens = %d, want 256", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "fix the login bug" {
		t.Errorf("request messages = %+v", gotBody.Messages)
	}

	want := `{"actionable":true,"title":"Fix login bug"}`
	if resp.Text != want {
		t.Errorf("text = %q, want concatenated blocks %q", resp.Text, want)
	}
	if resp.StopReason != extract.StopEnd {
		t.Errorf("stop reason = %q, want %q", resp.StopReason, extract.StopEnd)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 40 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestSend_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"type":"authentication_error"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("bad-key", "claude-sonnet-4-20250514")
	c.baseURL = srv.URL

	_, err := c.Send(context.Background(), &extract.LLMRequest{
		MaxTokens: 256,
		Messages:  []extract.Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want status code in message", err)
	}
}

func TestSend_IgnoresNonTextBlocks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{
			Content: []contentBlock{
				{Type: "thinking"},
				{Type: "text", Text: "payload"},
			},
			StopReason: "end_turn",
		})
	}))
	defer srv.Close()

	c := New("k", "m")
	c.baseURL = srv.URL

	resp, err := c.Send(context.Background(), &extract.LLMRequest{
		MaxTokens: 16,
		Messages:  []extract.Message{{Role: "user", Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Text != "payload" {
		t.Errorf("text = %q, want payload", resp.Text)
	}
}
