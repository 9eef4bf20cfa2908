package tokens

import "strings"

// DefaultMaxInputTokens is assumed for model families not in the table.
const DefaultMaxInputTokens = 100_000

// familyWindows maps model-id prefixes to context-window sizes. Entries are
// ordered most-specific first; the first match wins.
var familyWindows = []struct {
	prefix string
	limit  int
}{
	{"anthropic.claude-v2", 100_000},
	{"anthropic.claude-instant", 100_000},
	{"anthropic.claude", 200_000},
	{"amazon.nova-micro", 128_000},
	{"amazon.nova", 300_000},
	{"amazon.titan", 32_000},
	{"meta.llama3-1", 128_000},
	{"meta.llama3-2", 128_000},
	{"meta.llama3-3", 128_000},
	{"meta.llama", 8_000},
	{"mistral.mistral-large", 128_000},
	{"mistral.", 32_000},
	{"deepseek.r1", 128_000},
	{"cohere.command-r", 128_000},
	{"cohere.command", 4_000},
	{"ai21.jamba", 256_000},
}

// MaxInputTokens returns the context window for a model id. Cross-region
// inference profile prefixes ("us.", "eu.") are stripped before matching.
// Unknown families get DefaultMaxInputTokens.
func MaxInputTokens(modelID string) int {
	modelID = strings.TrimPrefix(modelID, "us.")
	modelID = strings.TrimPrefix(modelID, "eu.")
	for _, fw := range familyWindows {
		if strings.HasPrefix(modelID, fw.prefix) {
			return fw.limit
		}
	}
	return DefaultMaxInputTokens
}
