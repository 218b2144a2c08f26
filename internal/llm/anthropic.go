package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

const (
	anthropicMessagesURL  = "https://api.anthropic.com/v1/messages"
	anthropicDefaultModel = "claude-3-5-haiku-20241022"
	anthropicVersion      = "2023-06-01"
)

type AnthropicClient struct {
	apiKey     string
	model      string
	maxTokens  int
	url        string
	httpClient *http.Client
}

func NewAnthropicClient(apiKey, model string, maxTokens int) *AnthropicClient {
	if model == "" {
		model = anthropicDefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		url:        anthropicMessagesURL,
		httpClient: &http.Client{},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Send(ctx context.Context, agentReq domain.AgentRequest) (string, error) {
	system, msgs := BuildMessages(agentReq)

	messages := make([]anthropicMessage, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(ProviderAnthropic, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", requestError(ProviderAnthropic, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(ProviderAnthropic, resp.StatusCode, respBody)
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", decodeError(ProviderAnthropic, err)
	}

	if result.Error != nil {
		return "", &domain.AgentError{
			Kind: domain.AgentErrOther,
			Err:  fmt.Errorf("anthropic API error: %s", result.Error.Message),
		}
	}

	if len(result.Content) == 0 {
		return "", emptyError(ProviderAnthropic)
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}

var _ domain.AgentClient = (*AnthropicClient)(nil)
