package extract

import (
	"fmt"
	"strings"
)

// combineAnswers folds per-chunk answers into one object in chunk order. A
// key seen in one chunk keeps its value; a key seen in several accumulates
// into a list.
func combineAnswers(answers []map[string]any) map[string]any {
	combined := map[string]any{}
	for _, answer := range answers {
		for key, value := range answer {
			existing, seen := combined[key]
			if !seen {
				combined[key] = value
				continue
			}
			combined[key] = mergeValues(existing, value)
		}
	}
	return combined
}

func mergeValues(existing, incoming any) any {
	el, existingIsList := existing.([]any)
	il, incomingIsList := incoming.([]any)
	switch {
	case existingIsList && incomingIsList:
		return append(el, il...)
	case existingIsList:
		return append(el, incoming)
	case incomingIsList:
		return append([]any{existing}, il...)
	default:
		return []any{existing, incoming}
	}
}

// joinRaw concatenates per-chunk raw responses with CHUNK markers so the
// provenance of every span survives merging.
func joinRaw(raws []string) string {
	sections := make([]string, len(raws))
	for i, raw := range raws {
		sections[i] = fmt.Sprintf("CHUNK %d:\n%s", i+1, raw)
	}
	return strings.Join(sections, "\n\n")
}
