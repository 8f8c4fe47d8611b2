package provider

import (
	"strings"

	"github.com/openpress/openpress/internal/topic"
)

// ModelPrice is USD per 1K tokens.
type ModelPrice struct {
	Prompt     float64
	Completion float64
}

// Pricing maps a normalized model name to its token prices.
type Pricing map[string]ModelPrice

// DefaultPricing covers the model tiers the router is configured with.
// Unknown models fall back to the most expensive entry so the budget
// check errs on the safe side.
var DefaultPricing = Pricing{
	"gpt-4":            {Prompt: 0.03, Completion: 0.06},
	"gpt-4-turbo":      {Prompt: 0.01, Completion: 0.03},
	"gpt-4o":           {Prompt: 0.0025, Completion: 0.01},
	"gpt-4.1-mini":     {Prompt: 0.00015, Completion: 0.0006},
	"gpt-4.1-nano":     {Prompt: 0.0001, Completion: 0.0004},
	"gemini-1.5-pro":   {Prompt: 0.00125, Completion: 0.005},
	"gemini-1.5-flash": {Prompt: 0.000075, Completion: 0.0003},
}

// Token estimates used before a call is made: a drafted article is long,
// the prompt is the candidate plus instructions.
const (
	estPromptOverheadTokens = 400
	estCompletionTokens     = 1800
)

func normalizeModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt-4.1-nano"):
		return "gpt-4.1-nano"
	case strings.Contains(m, "gpt-4.1-mini"):
		return "gpt-4.1-mini"
	case strings.Contains(m, "gpt-4o"):
		return "gpt-4o"
	case strings.Contains(m, "gpt-4-turbo"):
		return "gpt-4-turbo"
	case strings.Contains(m, "gpt-4"):
		return "gpt-4"
	case strings.Contains(m, "gemini") && strings.Contains(m, "flash"):
		return "gemini-1.5-flash"
	case strings.Contains(m, "gemini"):
		return "gemini-1.5-pro"
	}
	return ""
}

func (p Pricing) price(model string) ModelPrice {
	if mp, ok := p[normalizeModel(model)]; ok {
		return mp
	}
	return p["gpt-4"]
}

// Cost computes the USD cost of a finished call from its token usage.
func (p Pricing) Cost(model string, promptTokens, completionTokens int) float64 {
	mp := p.price(model)
	return float64(promptTokens)/1000*mp.Prompt + float64(completionTokens)/1000*mp.Completion
}

// Estimate projects the cost of drafting a candidate before calling the
// provider. Rough token count: one token per four characters of input.
func (p Pricing) Estimate(model string, cand topic.Candidate) float64 {
	promptTokens := estPromptOverheadTokens + len(cand.RawTitle+cand.SummarySnippet)/4
	return p.Cost(model, promptTokens, estCompletionTokens)
}
