package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

func solverRequest() domain.AgentRequest {
	return domain.AgentRequest{
		Role:    domain.RoleSolver,
		Problem: "2 + 3 * 4",
		Transcript: []domain.Turn{
			{Role: domain.RoleSolver, Raw: "It is 14."},
			{Role: domain.RoleReviewer, Raw: "<AGREE>false</AGREE> Prove it."},
		},
	}
}

func TestOpenAIClientSend(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key-1" {
			t.Errorf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  The answer is 14. "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key-1", "", 300)
	c.url = srv.URL

	text, err := c.Send(context.Background(), solverRequest())
	if err != nil {
		t.Fatal(err)
	}
	if text != "The answer is 14." {
		t.Errorf("text = %q", text)
	}
	if got.Model != openAIDefaultModel {
		t.Errorf("model = %q, want default", got.Model)
	}
	if got.MaxTokens != 300 {
		t.Errorf("max_tokens = %d, want 300", got.MaxTokens)
	}
	if len(got.Messages) == 0 || got.Messages[0].Role != "system" {
		t.Fatalf("first message should be system, got %+v", got.Messages)
	}
}

func TestOpenAIClientClassifiesStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  domain.AgentErrorKind
		retryable bool
	}{
		{http.StatusUnauthorized, domain.AgentErrUnauthorized, false},
		{http.StatusForbidden, domain.AgentErrUnauthorized, false},
		{http.StatusTooManyRequests, domain.AgentErrRateLimited, true},
		{http.StatusInternalServerError, domain.AgentErrTransport, true},
		{http.StatusBadGateway, domain.AgentErrTransport, true},
		{http.StatusBadRequest, domain.AgentErrOther, false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		c := NewOpenAIClient("key-1", "", 0)
		c.url = srv.URL
		_, err := c.Send(context.Background(), solverRequest())
		srv.Close()

		var agentErr *domain.AgentError
		if !errors.As(err, &agentErr) {
			t.Fatalf("status %d: err = %v, want *AgentError", tt.status, err)
		}
		if agentErr.Kind != tt.wantKind {
			t.Errorf("status %d: kind = %v, want %v", tt.status, agentErr.Kind, tt.wantKind)
		}
		if agentErr.Retryable() != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, agentErr.Retryable(), tt.retryable)
		}
		if agentErr.Status != tt.status {
			t.Errorf("status recorded = %d, want %d", agentErr.Status, tt.status)
		}
	}
}

func TestOpenAIClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewOpenAIClient("key-1", "", 0)
	c.url = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Send(ctx, solverRequest())
	var agentErr *domain.AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("err = %v, want *AgentError", err)
	}
	if agentErr.Kind != domain.AgentErrTimeout {
		t.Errorf("kind = %v, want timeout", agentErr.Kind)
	}
}

func TestOpenAIClientMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key-1", "", 0)
	c.url = srv.URL

	_, err := c.Send(context.Background(), solverRequest())
	var agentErr *domain.AgentError
	if !errors.As(err, &agentErr) || agentErr.Kind != domain.AgentErrTransport {
		t.Errorf("err = %v, want transport AgentError", err)
	}
}

func TestAnthropicClientSend(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-api-key"); key != "key-2" {
			t.Errorf("x-api-key = %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v != anthropicVersion {
			t.Errorf("anthropic-version = %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"<AGREE>false</AGREE> Weak step two."}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key-2", "", 300)
	c.url = srv.URL

	req := solverRequest()
	req.Role = domain.RoleReviewer
	text, err := c.Send(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if text != "<AGREE>false</AGREE> Weak step two." {
		t.Errorf("text = %q", text)
	}
	if got.System == "" {
		t.Error("system prompt should be top-level")
	}
	if got.MaxTokens != 300 {
		t.Errorf("max_tokens = %d, want 300", got.MaxTokens)
	}
	for i := 1; i < len(got.Messages); i++ {
		if got.Messages[i].Role == got.Messages[i-1].Role {
			t.Errorf("messages %d and %d share role %q", i-1, i, got.Messages[i].Role)
		}
	}
}

func TestAnthropicClientNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key-2", "", 0)
	c.url = srv.URL

	_, err := c.Send(context.Background(), solverRequest())
	var agentErr *domain.AgentError
	if !errors.As(err, &agentErr) || agentErr.Kind != domain.AgentErrOther {
		t.Errorf("err = %v, want other AgentError", err)
	}
}

func TestGeminiClientSend(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.URL.Query().Get("key"); key != "key-3" {
			t.Errorf("key query param = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"14"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-3", "", 250)
	c.url = srv.URL

	text, err := c.Send(context.Background(), solverRequest())
	if err != nil {
		t.Fatal(err)
	}
	if text != "14" {
		t.Errorf("text = %q", text)
	}
	if got.SystemInstruction == nil {
		t.Fatal("systemInstruction missing")
	}
	// Own turns map to gemini's "model" role.
	foundModel := false
	for _, content := range got.Contents {
		if content.Role == "model" {
			foundModel = true
		}
	}
	if !foundModel {
		t.Error("no content with model role")
	}
}

func TestCerebrasClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer key-4" {
			t.Errorf("auth header = %q", auth)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"14"}}]}`))
	}))
	defer srv.Close()

	c := NewCerebrasClient("key-4", "", 0)
	c.url = srv.URL

	text, err := c.Send(context.Background(), solverRequest())
	if err != nil {
		t.Fatal(err)
	}
	if text != "14" {
		t.Errorf("text = %q", text)
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	if _, err := NewClient("delphi", "key", "", 0); err == nil {
		t.Error("unknown provider should error")
	}
	if _, err := NewClient(ProviderOpenAI, "", "", 0); err == nil {
		t.Error("missing api key should error")
	}
}
