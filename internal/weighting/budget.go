package weighting

import (
	"strings"
	"unicode"
)

const (
	// CharsPerToken is the rough character-per-token ratio used to convert
	// the model's token budget into a text budget.
	CharsPerToken = 4

	// PromptReserveTokens is held back from the context window for the
	// instruction block and message framing.
	PromptReserveTokens = 512

	// MinBudgetChars keeps the budget usable when a caller combines a
	// small context window with a large num_predict.
	MinBudgetChars = 2000
)

// Budget converts a model context size into the number of characters of
// section text admissible into one request, after reserving room for the
// instructions and the expected completion.
func Budget(contextTokens, numPredict int) int {
	chars := (contextTokens - numPredict - PromptReserveTokens) * CharsPerToken
	if chars < MinBudgetChars {
		return MinBudgetChars
	}
	return chars
}

// Allocate divides budget characters between sections proportionally to
// their normalized weights, capping each at its body length. Budget unused
// because of caps is redistributed over the uncapped sections until it is
// exhausted or everything fits. When floor rounding stalls the
// redistribution, the remainder is handed out one character at a time in
// document order, which keeps the result deterministic.
func Allocate(weights []float64, lengths []int, budget int) []int {
	alloc := make([]int, len(weights))
	if len(weights) == 0 || budget <= 0 {
		return alloc
	}

	remaining := budget
	for remaining > 0 {
		var open []int
		var weightSum float64
		for i, w := range weights {
			if w > 0 && alloc[i] < lengths[i] {
				open = append(open, i)
				weightSum += w
			}
		}
		if len(open) == 0 || weightSum <= 0 {
			break
		}

		granted := 0
		for _, i := range open {
			g := int(float64(remaining) * weights[i] / weightSum)
			if room := lengths[i] - alloc[i]; g > room {
				g = room
			}
			alloc[i] += g
			granted += g
		}
		if granted == 0 {
			for _, i := range open {
				if granted == remaining {
					break
				}
				alloc[i]++
				granted++
			}
		}
		remaining -= granted
	}
	return alloc
}

// Truncate cuts text to at most limit runes, preferring the last sentence
// end inside the cut and falling back to a word boundary. Boundaries are
// only honored within a fifth of the limit, so truncation never sacrifices
// most of a section to end on a full stop.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 0 {
		return ""
	}

	window := limit / 5
	for i := limit - 1; i >= 0 && limit-i <= window; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	for i := limit - 1; i >= 0 && limit-i <= window; i-- {
		if unicode.IsSpace(runes[i]) {
			return strings.TrimSpace(string(runes[:i]))
		}
	}
	return strings.TrimSpace(string(runes[:limit]))
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
