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
	openAIChatURL      = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o-mini"
)

type OpenAIClient struct {
	apiKey     string
	model      string
	maxTokens  int
	url        string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, model string, maxTokens int) *OpenAIClient {
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		url:        openAIChatURL,
		httpClient: &http.Client{},
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Send(ctx context.Context, agentReq domain.AgentRequest) (string, error) {
	system, msgs := BuildMessages(agentReq)

	messages := make([]chatMessage, 0, len(msgs)+1)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, m := range msgs {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(ProviderOpenAI, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", requestError(ProviderOpenAI, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(ProviderOpenAI, resp.StatusCode, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", decodeError(ProviderOpenAI, err)
	}

	if result.Error != nil {
		return "", &domain.AgentError{
			Kind: domain.AgentErrOther,
			Err:  fmt.Errorf("openai API error: %s", result.Error.Message),
		}
	}

	if len(result.Choices) == 0 {
		return "", emptyError(ProviderOpenAI)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

var _ domain.AgentClient = (*OpenAIClient)(nil)
