package ai

import (
	"context"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

// Client scores page content for AI/LLM readability.
type Client interface {
	AnalyzeContent(ctx context.Context, page *audit.PageContent) (*audit.AIOReport, error)
}
