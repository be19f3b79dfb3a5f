package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults for the OpenAI completer.
const (
	DefaultModel       = openai.GPT4oMini
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.3
)

const quotaCode = "insufficient_quota"

// OpenAIConfig configures the OpenAI completer.
type OpenAIConfig struct {
	APIKey string
	// Model defaults to DefaultModel.
	Model string
	// BaseURL overrides the API endpoint (e.g. a proxy or compatible server).
	BaseURL   string
	MaxTokens int
	// Temperature defaults to DefaultTemperature when nil.
	Temperature *float32
	// HTTPClient is used for requests when set.
	HTTPClient *http.Client
}

// OpenAI is a Completer backed by the chat completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAI creates an OpenAI completer. Panics if APIKey is empty.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIKey == "" {
		panic("summarize: OpenAI API key must not be empty")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
	}
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := o.temperature
	if temperature == 0 {
		// The request field is omitempty; a zero would fall back to the API default.
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   o.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Classify maps a completion failure onto ErrRateLimited, ErrQuotaExceeded or
// *UnknownError. Quota is checked first: OpenAI reports it with the same 429 status
// as throttling. Already classified errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var unknown *UnknownError
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrNotConfigured) || errors.As(err, &unknown) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := strings.ToLower(fmt.Sprint(apiErr.Code))
		errType := strings.ToLower(apiErr.Type)
		switch {
		case code == quotaCode || errType == quotaCode:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			strings.Contains(code, "rate_limit"), strings.Contains(errType, "rate_limit"):
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
		return &UnknownError{Message: err.Error()}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, quotaCode):
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return &UnknownError{Message: err.Error()}
}
