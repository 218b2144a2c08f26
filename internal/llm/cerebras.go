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
	cerebrasAPIURL       = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasDefaultModel = "llama-3.3-70b"
)

type CerebrasClient struct {
	apiKey     string
	model      string
	maxTokens  int
	url        string
	httpClient *http.Client
}

func NewCerebrasClient(apiKey, model string, maxTokens int) *CerebrasClient {
	if model == "" {
		model = cerebrasDefaultModel
	}
	return &CerebrasClient{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		url:        cerebrasAPIURL,
		httpClient: &http.Client{},
	}
}

// Cerebras uses OpenAI-compatible request/response format
type cerebrasMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cerebrasRequest struct {
	Model       string            `json:"model"`
	Messages    []cerebrasMessage `json:"messages"`
	Temperature float32           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type cerebrasResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *CerebrasClient) Send(ctx context.Context, agentReq domain.AgentRequest) (string, error) {
	system, msgs := BuildMessages(agentReq)

	messages := make([]cerebrasMessage, 0, len(msgs)+1)
	messages = append(messages, cerebrasMessage{Role: "system", Content: system})
	for _, m := range msgs {
		messages = append(messages, cerebrasMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(cerebrasRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal cerebras request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create cerebras request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(ProviderCerebras, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", requestError(ProviderCerebras, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(ProviderCerebras, resp.StatusCode, respBody)
	}

	var result cerebrasResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", decodeError(ProviderCerebras, err)
	}

	if result.Error != nil {
		return "", &domain.AgentError{
			Kind: domain.AgentErrOther,
			Err:  fmt.Errorf("cerebras API error: %s", result.Error.Message),
		}
	}

	if len(result.Choices) == 0 {
		return "", emptyError(ProviderCerebras)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

var _ domain.AgentClient = (*CerebrasClient)(nil)
