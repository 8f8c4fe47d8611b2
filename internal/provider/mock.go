package provider

import (
	"context"
	"strings"

	"github.com/openpress/openpress/internal/topic"
)

// MockProvider is a local placeholder that never calls an external model.
// Useful for dry runs and wiring tests.
type MockProvider struct{}

func (MockProvider) Name() string { return "mock" }

func (MockProvider) DraftArticle(_ context.Context, model string, cand topic.Candidate) (*Draft, error) {
	var sb strings.Builder
	sb.WriteString("This is a placeholder article body.\n\n")
	sb.WriteString("## Background\n\n")
	if cand.SummarySnippet != "" {
		sb.WriteString(cand.SummarySnippet)
		sb.WriteString("\n")
	} else {
		sb.WriteString("No context was supplied for this topic.\n")
	}

	return &Draft{
		Title:            cand.RawTitle,
		Markdown:         sb.String(),
		Model:            model,
		PromptTokens:     len(cand.RawTitle+cand.SummarySnippet) / 4,
		CompletionTokens: len(sb.String()) / 4,
	}, nil
}
