package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
)

const defaultTemperature = 0.3

// NewClient creates an agent client for the provider name. Model may be
// empty to use the provider's default; maxTokens caps each turn.
func NewClient(provider, apiKey, model string, maxTokens int) (domain.AgentClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(apiKey, model, maxTokens), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewAnthropicClient(apiKey, model, maxTokens), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiClient(apiKey, model, maxTokens), nil

	case ProviderCerebras:
		if apiKey == "" {
			return nil, fmt.Errorf("CEREBRAS_API_KEY is required for Cerebras provider")
		}
		return NewCerebrasClient(apiKey, model, maxTokens), nil

	default:
		return nil, fmt.Errorf("unknown agent provider: %s (valid options: openai, anthropic, gemini, cerebras)", provider)
	}
}

// apiError classifies a non-200 response into the agent error taxonomy.
func apiError(provider string, status int, body []byte) error {
	return &domain.AgentError{
		Kind:   kindFromStatus(status),
		Status: status,
		Err:    fmt.Errorf("%s API returned status %d: %s", provider, status, truncateBody(body)),
	}
}

// requestError classifies a failed round trip (DNS, TLS, timeout, cancel).
func requestError(provider string, err error) error {
	kind := domain.AgentErrTransport
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = domain.AgentErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = domain.AgentErrTimeout
	}
	return &domain.AgentError{
		Kind: kind,
		Err:  fmt.Errorf("%s request failed: %w", provider, err),
	}
}

// decodeError covers a 200 response whose body cannot be parsed.
func decodeError(provider string, err error) error {
	return &domain.AgentError{
		Kind: domain.AgentErrTransport,
		Err:  fmt.Errorf("unmarshal %s response: %w", provider, err),
	}
}

// emptyError covers a well-formed response with nothing in it.
func emptyError(provider string) error {
	return &domain.AgentError{
		Kind: domain.AgentErrOther,
		Err:  fmt.Errorf("%s API returned no content", provider),
	}
}

func kindFromStatus(status int) domain.AgentErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.AgentErrUnauthorized
	case status == http.StatusRequestTimeout:
		return domain.AgentErrTimeout
	case status == http.StatusTooManyRequests:
		return domain.AgentErrRateLimited
	case status >= 500:
		return domain.AgentErrTransport
	default:
		return domain.AgentErrOther
	}
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
