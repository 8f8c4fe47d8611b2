package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/openpress/openpress/internal/topic"
)

// GeminiProvider drafts articles through the Google generative AI API.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *GeminiProvider) DraftArticle(ctx context.Context, model string, cand topic.Candidate) (*Draft, error) {
	m := g.client.GenerativeModel(model)

	resp, err := m.GenerateContent(ctx, genai.Text(draftPrompt(cand)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	raw := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	title, body, err := parseDraftResponse(raw, cand.RawTitle)
	if err != nil {
		return nil, err
	}

	draft := &Draft{Title: title, Markdown: body, Model: model}
	if resp.UsageMetadata != nil {
		draft.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		draft.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return draft, nil
}

// draftPrompt asks for a labeled headline plus a markdown body so parsing
// stays trivial. Sanitizes and truncates the snippet first.
func draftPrompt(cand topic.Candidate) string {
	snippet := strings.Join(strings.Fields(cand.SummarySnippet), " ")
	if len(snippet) > 4000 {
		snippet = snippet[:4000]
	}

	var b strings.Builder
	b.WriteString("Write a factual news-style article about the topic below.\n\n")
	b.WriteString("TOPIC: " + cand.RawTitle + "\n")
	if snippet != "" {
		b.WriteString("CONTEXT: " + snippet + "\n")
	}
	b.WriteString(`
REQUIREMENTS:
- Neutral, informative tone. No invented quotes or figures.
- 400 to 700 words, markdown paragraphs, optional ## subheadings.
- Respond strictly in this format:

TITLE: <headline>

<article body in markdown>
`)
	return b.String()
}

// parseDraftResponse splits the labeled response into headline and body.
// A missing TITLE label falls back to a leading markdown heading, then to
// the candidate's own title.
func parseDraftResponse(raw, fallbackTitle string) (title, body string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty draft response")
	}

	lines := strings.SplitN(raw, "\n", 2)
	first := strings.TrimSpace(lines[0])
	rest := ""
	if len(lines) > 1 {
		rest = strings.TrimSpace(lines[1])
	}

	switch {
	case strings.HasPrefix(strings.ToUpper(first), "TITLE:"):
		title = strings.TrimSpace(first[len("TITLE:"):])
		body = rest
	case strings.HasPrefix(first, "# "):
		title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		body = rest
	default:
		title = fallbackTitle
		body = raw
	}

	if title == "" {
		title = fallbackTitle
	}
	if body == "" {
		return "", "", fmt.Errorf("draft response has no body")
	}
	return title, body, nil
}
