package llm

import (
	"strings"

	"github.com/haasonsaas/quarry/pkg/models"
)

// Inference defaults applied when a request leaves a knob unset.
const (
	DefaultTemperature = 0.0
	DefaultTopP        = 1.0
	DefaultMaxTokens   = 4096

	// DefaultTopK applies to claude-family models only; other families do
	// not accept the knob.
	DefaultTopK = 200
)

// inference is the resolved per-request sampling configuration shared by the
// Bedrock and Anthropic backends. A nil topP or topK means the knob is not
// sent at all.
type inference struct {
	temperature float64
	topP        *float64
	topK        *int
	maxTokens   int

	// thinkingBudget > 0 enables extended reasoning with that token budget.
	thinkingBudget int
}

// resolveInference merges the caller's params with the provider defaults.
// Model families that accept a thinking budget require temperature 1.0 and
// reject topP while reasoning is enabled, so both are overridden here.
func resolveInference(modelID string, p models.ModelParams) inference {
	inf := inference{
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	if p.Temperature != nil {
		inf.temperature = *p.Temperature
	}
	topP := DefaultTopP
	if p.TopP != nil {
		topP = *p.TopP
	}
	inf.topP = &topP
	if p.MaxOutputTokens > 0 {
		inf.maxTokens = p.MaxOutputTokens
	}

	if !isClaudeModel(modelID) {
		return inf
	}
	topK := DefaultTopK
	if p.TopK != nil {
		topK = *p.TopK
	}
	inf.topK = &topK

	if p.ThinkingBudget > 0 && supportsThinking(modelID) {
		inf.thinkingBudget = p.ThinkingBudget
		inf.temperature = 1.0
		inf.topP = nil
	}
	return inf
}

// isClaudeModel reports whether the identifier names a claude-family model.
// Matches Bedrock ids ("anthropic.claude-sonnet-4-20250514-v1:0"), inference
// profiles ("us.anthropic.claude-..."), and Anthropic API ids
// ("claude-sonnet-4-20250514").
func isClaudeModel(modelID string) bool {
	return strings.Contains(strings.ToLower(modelID), "claude")
}

// thinkingMarkers name the claude families that accept an extended-reasoning
// budget. Earlier families reject the thinking field outright.
var thinkingMarkers = []string{
	"claude-3-7",
	"claude-sonnet-4",
	"claude-opus-4",
	"claude-haiku-4",
}

func supportsThinking(modelID string) bool {
	id := strings.ToLower(modelID)
	for _, marker := range thinkingMarkers {
		if strings.Contains(id, marker) {
			return true
		}
	}
	return false
}
