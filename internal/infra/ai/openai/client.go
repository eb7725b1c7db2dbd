package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domainai "github.com/bryanwahyu/seo-aio-audit/internal/domain/ai"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	defaultModel = "gpt-4o-mini"
)

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithBaseURL points the client at an OpenAI-compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// AnalyzeContent asks the model to score page content for AI readability.
func (c *Client) AnalyzeContent(ctx context.Context, page *audit.PageContent) (*audit.AIOReport, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(page)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %v", domainai.ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, domainai.ErrEmptyResponse
	}

	rep, err := prompt.ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	rep.LogoURL = page.LogoURL
	return rep, nil
}

func isQuotaError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// Fallback tries the primary client and, when it runs out of quota,
// scores the page with the secondary one instead.
type Fallback struct {
	Primary   domainai.Client
	Secondary domainai.Client
}

func (f Fallback) AnalyzeContent(ctx context.Context, page *audit.PageContent) (*audit.AIOReport, error) {
	rep, err := f.Primary.AnalyzeContent(ctx, page)
	if err == nil || f.Secondary == nil || !errors.Is(err, domainai.ErrQuotaExceeded) {
		return rep, err
	}
	return f.Secondary.AnalyzeContent(ctx, page)
}
