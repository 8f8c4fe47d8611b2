package provider

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/openpress/openpress/internal/topic"
)

// OpenAIProvider drafts articles through the OpenAI chat completions API.
type OpenAIProvider struct {
	opts []option.RequestOption
}

func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key missing")
	}
	return &OpenAIProvider{opts: []option.RequestOption{option.WithAPIKey(apiKey)}}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) DraftArticle(ctx context.Context, model string, cand topic.Candidate) (*Draft, error) {
	client := openai.NewClient(o.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a news writer producing factual, neutral articles."),
			openai.UserMessage(draftPrompt(cand)),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}

	title, body, err := parseDraftResponse(resp.Choices[0].Message.Content, cand.RawTitle)
	if err != nil {
		return nil, err
	}

	return &Draft{
		Title:            title,
		Markdown:         body,
		Model:            model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
