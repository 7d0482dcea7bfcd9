// Package weighting turns a user-supplied emphasis map into a normalized
// distribution over the extracted sections, then divides a fixed character
// budget between them. Normalization and allocation are separate pure
// functions so each can be checked against its own properties.
package weighting

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dgallion1/papersumm/internal/document"
)

const (
	// FloorRatio scales the mean explicit weight into the floor weight
	// given to sections the user did not mention. The floor keeps an
	// incomplete weight map from silently dropping content.
	FloorRatio = 0.1

	// DefaultFloorWeight is used when no explicit weight matched any
	// section; every section then starts equal.
	DefaultFloorWeight = 1.0
)

// ParseSpec decodes the raw header_weights form field. Only structural
// problems are errors: payloads that are not a JSON object of name to
// number. An empty field is an empty spec.
func ParseSpec(raw string) (map[string]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]float64{}, nil
	}
	var spec map[string]float64
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, fmt.Errorf("decode header_weights: %w", err)
	}
	if spec == nil {
		spec = map[string]float64{}
	}
	return spec, nil
}

// Normalize maps the weight spec onto the sections and returns, indexed by
// OrderIndex, the normalized distribution and the raw weights it came from.
//
// Entries matching no section name are ignored. Matching is
// case-insensitive on trimmed names; an entry matching several same-named
// sections is split evenly between them. Negative, NaN, and infinite
// weights clamp to zero. Sections without a usable explicit weight receive
// the floor weight. A zero sum falls back to the uniform distribution, so
// every section always ends with a strictly positive share and the result
// sums to one.
func Normalize(spec map[string]float64, sections []document.Section) (normalized, raw []float64) {
	n := len(sections)
	if n == 0 {
		return nil, nil
	}
	normalized = make([]float64, n)
	raw = make([]float64, n)

	clamped := make(map[string]float64, len(spec))
	for name, w := range spec {
		clamped[matchKey(name)] = clampWeight(w)
	}

	matches := make(map[string]int, len(clamped))
	for _, s := range sections {
		k := matchKey(s.Name)
		if _, ok := clamped[k]; ok {
			matches[k]++
		}
	}

	var explicitSum float64
	for k := range matches {
		explicitSum += clamped[k]
	}
	floor := DefaultFloorWeight
	if len(matches) > 0 {
		floor = FloorRatio * explicitSum / float64(len(matches))
	}

	var sum float64
	for i, s := range sections {
		k := matchKey(s.Name)
		if count, ok := matches[k]; ok {
			raw[i] = clamped[k] / float64(count)
		}
		if raw[i] == 0 {
			raw[i] = floor
		}
		sum += raw[i]
	}

	if sum == 0 {
		for i := range normalized {
			normalized[i] = 1 / float64(n)
		}
		return normalized, raw
	}
	for i := range normalized {
		normalized[i] = raw[i] / sum
	}
	return normalized, raw
}

func matchKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func clampWeight(w float64) float64 {
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}
