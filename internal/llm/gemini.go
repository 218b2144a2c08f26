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
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiDefaultModel = "gemini-2.0-flash"
)

type GeminiClient struct {
	apiKey     string
	model      string
	maxTokens  int
	url        string
	httpClient *http.Client
}

func NewGeminiClient(apiKey, model string, maxTokens int) *GeminiClient {
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		url:        fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, model),
		httpClient: &http.Client{},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float32 `json:"temperature"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Send(ctx context.Context, agentReq domain.AgentRequest) (string, error) {
	system, msgs := BuildMessages(agentReq)

	// Gemini names the assistant role "model".
	contents := make([]geminiContent, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		if role == roleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Parts: []geminiPart{{Text: m.Content}},
			Role:  role,
		})
	}

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          contents,
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: c.maxTokens,
			Temperature:     defaultTemperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.url, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(ProviderGemini, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", requestError(ProviderGemini, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(ProviderGemini, resp.StatusCode, respBody)
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", decodeError(ProviderGemini, err)
	}

	if result.Error != nil {
		return "", &domain.AgentError{
			Kind: domain.AgentErrOther,
			Err:  fmt.Errorf("gemini API error: %s", result.Error.Message),
		}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", emptyError(ProviderGemini)
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

var _ domain.AgentClient = (*GeminiClient)(nil)
