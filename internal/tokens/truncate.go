package tokens

import "strings"

// TruncationMarker replaces the removed middle span of a truncated document.
const TruncationMarker = "\n...\n"

// TruncateMiddle cuts a span out of the middle of doc so that the document
// plus the prompt overhead fits the token budget. Documents already within
// budget are returned unchanged. The cut grows geometrically from the
// midpoint until the candidate fits; if no candidate fits by the widest
// multiplier, the widest cut is returned.
func TruncateMiddle(c Counter, doc string, overhead, budget int) string {
	total := c.Count(doc) + overhead
	if total <= budget {
		return doc
	}

	// Half the token excess, applied to each side of the midpoint.
	splitParameter := (total - budget) / 2
	words := strings.Split(doc, " ")
	mid := len(words) / 2

	candidate := doc
	for multiplier := 1.0; multiplier < 5.0; multiplier += 0.1 {
		cut := int(float64(splitParameter) * multiplier)
		left := mid - cut
		if left < 0 {
			left = 0
		}
		right := mid + cut
		if right > len(words) {
			right = len(words)
		}
		candidate = strings.Join(words[:left], " ") + TruncationMarker + strings.Join(words[right:], " ")
		if c.Count(candidate) < budget-overhead {
			break
		}
	}
	return candidate
}
