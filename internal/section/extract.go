// Package section recovers document structure from positioned text
// fragments. Headers are identified from font prominence and structural
// lexical patterns, and every remaining fragment is attached to the most
// recent header, so no text is lost.
package section

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/papersumm/internal/document"
)

// PreambleName is the synthetic section holding text that precedes the
// first detected header.
const PreambleName = "Preamble"

// ErrExtractionEmpty reports a document where no fragment qualifies as body
// text, such as a scanned-image PDF.
var ErrExtractionEmpty = errors.New("no body text could be extracted")

// Config holds the classification thresholds. Ambiguous fragments always
// fall back to body text; missing a header degrades more gracefully than
// inventing one.
type Config struct {
	HeaderSizeRatio  float64 // header when font size exceeds baseline by this factor
	BoldHeaderMaxLen int     // bold lines at or below this many runes are headers
	AllCapsMaxLen    int     // all-caps lines at or below this many runes are headers
}

func DefaultConfig() Config {
	return Config{
		HeaderSizeRatio:  1.15,
		BoldHeaderMaxLen: 60,
		AllCapsMaxLen:    40,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeaderSizeRatio <= 1 {
		c.HeaderSizeRatio = d.HeaderSizeRatio
	}
	if c.BoldHeaderMaxLen <= 0 {
		c.BoldHeaderMaxLen = d.BoldHeaderMaxLen
	}
	if c.AllCapsMaxLen <= 0 {
		c.AllCapsMaxLen = d.AllCapsMaxLen
	}
	return c
}

// Structural patterns for IEEE-style scientific articles in English and
// Spanish: numbered headings (arabic or roman), standalone heading numbers,
// research-question headings, well-known section names, and the references
// heading that terminates extraction. Roman numerals require a separator so
// a sentence starting with the pronoun "I" is not a heading.
var (
	reNumbered   = regexp.MustCompile(`^(\d+(?:\.\d+)*[.)]?|[IVXLCDM]+[.)])\s+(\S.*)$`)
	reNumberOnly = regexp.MustCompile(`^(\d+(?:\.\d+)*|[IVXLCDM]+)[.)]$`)
	reRQHeader   = regexp.MustCompile(`(?i)^\d+\.\s+rq\d+\s*:`)
	reLexical    = regexp.MustCompile(`(?i)^(abstract|resumen|keywords|index terms|palabras clave|` +
		`introduction|background|related work|methodology|methods|materials and methods|` +
		`dataset|data|experiments?|evaluation|results|discussion|conclusions?|future work|` +
		`acknowledgm?ents?|appendix|trabajo relacionado|metodolog[íi]a|resultados|` +
		`discusi[óo]n|conclusio?nes)\s*[:.\-—]?$`)
	reReferences = regexp.MustCompile(`(?i)^(references|referencias|bibliography|bibliograf[íi]a)\s*[:.]?$`)
)

// Words that mark a numbered line as a caption rather than a heading.
var captionWords = map[string]bool{
	"figure": true, "fig": true, "table": true, "equation": true,
	"eq": true, "algorithm": true, "source": true, "note": true,
}

type kind int

const (
	kindBody kind = iota
	kindHeader
	kindReferences
)

// Extract classifies fragments into headers and body text and returns the
// document's sections in reading order. Text before the first header forms
// a Preamble section; the references heading and everything after it are
// dropped.
func Extract(frags []document.Fragment, cfg Config) ([]document.Section, error) {
	cfg = cfg.withDefaults()
	if len(frags) == 0 {
		return nil, ErrExtractionEmpty
	}

	baseline := modalFontSize(frags)

	type proto struct {
		name  string
		size  float64
		depth int // numbering depth, 0 when unnumbered
		body  []string
	}

	var (
		preamble    []string
		protos      []*proto
		cur         *proto
		lastHeader  bool
		hasBodyText bool
	)

	for _, f := range frags {
		k, depth := classify(f, baseline, cfg)
		if k == kindReferences {
			break
		}
		if k == kindHeader {
			name := headerName(f.Text)
			if lastHeader && cur != nil {
				// Adjacent header lines with no body between them are one
				// multi-line header.
				cur.name += " " + name
				if f.FontSize > cur.size {
					cur.size = f.FontSize
				}
				if cur.depth == 0 {
					cur.depth = depth
				}
			} else {
				cur = &proto{name: name, size: f.FontSize, depth: depth}
				protos = append(protos, cur)
			}
			lastHeader = true
			continue
		}
		if cur == nil {
			preamble = append(preamble, f.Text)
		} else {
			cur.body = append(cur.body, f.Text)
		}
		hasBodyText = true
		lastHeader = false
	}

	// A header that is only a stray number carries no name; fold it back
	// into the surrounding body text.
	compact := protos[:0]
	for _, p := range protos {
		if hasLetter(p.name) {
			compact = append(compact, p)
			continue
		}
		lines := append([]string{p.name}, p.body...)
		if len(compact) > 0 {
			compact[len(compact)-1].body = append(compact[len(compact)-1].body, lines...)
		} else {
			preamble = append(preamble, lines...)
		}
	}
	protos = compact

	if !hasBodyText {
		return nil, ErrExtractionEmpty
	}

	headerSizes := make([]float64, len(protos))
	for i, p := range protos {
		headerSizes[i] = p.size
	}
	rank := sizeRanks(headerSizes)

	var sections []document.Section
	if len(preamble) > 0 {
		sections = append(sections, document.Section{
			Name:  PreambleName,
			Level: 1,
			Body:  strings.Join(preamble, "\n"),
		})
	}
	for _, p := range protos {
		level := p.depth
		if level == 0 {
			level = rank[quantize(p.size)]
		}
		sections = append(sections, document.Section{
			Name:  p.name,
			Level: level,
			Body:  strings.Join(p.body, "\n"),
		})
	}
	for i := range sections {
		sections[i].OrderIndex = i
	}
	return sections, nil
}

// classify decides what one fragment is. Lexical patterns run first since
// they carry numbering depth, then font prominence; anything ambiguous is
// body text.
func classify(f document.Fragment, baseline float64, cfg Config) (kind, int) {
	text := strings.TrimSpace(f.Text)
	n := utf8.RuneCountInString(text)

	if reReferences.MatchString(text) {
		return kindReferences, 0
	}
	if m := reNumberOnly.FindStringSubmatch(text); m != nil {
		return kindHeader, numberDepth(m[1])
	}
	if !hasLetter(text) {
		return kindBody, 0
	}

	if reRQHeader.MatchString(text) {
		return kindHeader, 1
	}
	if m := reNumbered.FindStringSubmatch(text); m != nil &&
		startsUpper(m[2]) && !looksLikeCaption(text) {
		return kindHeader, numberDepth(m[1])
	}
	if reLexical.MatchString(text) {
		return kindHeader, 0
	}
	if quantize(f.FontSize) > quantize(baseline*cfg.HeaderSizeRatio) {
		return kindHeader, 0
	}
	if f.Bold && n <= cfg.BoldHeaderMaxLen && !strings.HasSuffix(text, ".") {
		return kindHeader, 0
	}
	if isAllCaps(text) && n <= cfg.AllCapsMaxLen {
		return kindHeader, 0
	}
	return kindBody, 0
}

// looksLikeCaption rejects numbered lines that read like captions or prose:
// too many words, caption vocabulary, or a trailing full stop. PDF lines
// wrapped mid-sentence frequently start with a bare number, so these guards
// carry the weight of keeping prose out of the header list.
func looksLikeCaption(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > 10 {
		return true
	}
	for _, w := range words {
		if captionWords[strings.Trim(w, ".:,")] {
			return true
		}
	}
	return strings.HasSuffix(text, ".")
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func numberDepth(number string) int {
	number = strings.TrimRight(number, ".)")
	if hasLetter(number) { // roman numeral
		return 1
	}
	return strings.Count(number, ".") + 1
}

func headerName(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), " :—-")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isAllCaps(s string) bool {
	upper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}

// modalFontSize returns the most common font size weighted by text length,
// the presumed body-text baseline. Ties go to the larger size so that
// borderline fragments stay body text.
func modalFontSize(frags []document.Fragment) float64 {
	weights := make(map[float64]int)
	for _, f := range frags {
		weights[quantize(f.FontSize)] += utf8.RuneCountInString(f.Text)
	}
	var best float64
	bestWeight := -1
	for size, w := range weights {
		if w > bestWeight || (w == bestWeight && size > best) {
			best, bestWeight = size, w
		}
	}
	return best
}

// sizeRanks maps each distinct header font size to its prominence rank,
// 1 being the largest. Used as the display level for unnumbered headers.
func sizeRanks(sizes []float64) map[float64]int {
	distinct := make(map[float64]bool)
	for _, s := range sizes {
		distinct[quantize(s)] = true
	}
	ordered := make([]float64, 0, len(distinct))
	for s := range distinct {
		ordered = append(ordered, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ordered)))

	ranks := make(map[float64]int, len(ordered))
	for i, s := range ordered {
		ranks[s] = i + 1
	}
	return ranks
}

func quantize(size float64) float64 {
	return float64(int(size*10+0.5)) / 10
}

// Title guesses the document title: the largest-font run at the top of the
// first page, when it stands out from the body baseline.
func Title(frags []document.Fragment) string {
	const scanLimit = 15
	if len(frags) == 0 {
		return ""
	}

	firstPage := frags[0].Page
	var head []document.Fragment
	for _, f := range frags {
		if f.Page != firstPage {
			break
		}
		head = append(head, f)
		if len(head) == scanLimit {
			break
		}
	}

	baseline := modalFontSize(frags)
	var max float64
	for _, f := range head {
		if q := quantize(f.FontSize); q > max {
			max = q
		}
	}
	if max <= quantize(baseline) {
		return ""
	}

	var lines []string
	for _, f := range head {
		if quantize(f.FontSize) == max {
			lines = append(lines, f.Text)
			if len(lines) == 3 {
				break
			}
			continue
		}
		if len(lines) > 0 {
			break
		}
	}
	return strings.Join(lines, " ")
}
