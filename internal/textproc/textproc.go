// Package textproc cleans the text recovered from PDF layout: margin and
// page-number noise, hyphenation artifacts, inline citations. It also
// detects the dominant document language.
package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/papersumm/internal/document"
)

const (
	// A line repeating on this many distinct pages is a running header or
	// footer, not content.
	repeatedLineMinPages = 2
	maxMarginLineLen     = 120

	// Below this many runes language detection is noise.
	minLangTextLen = 40
)

var (
	rePageNumber = regexp.MustCompile(`^\(?\d{1,4}\)?$`)
	rePageLabel  = regexp.MustCompile(`(?i)^(page|p[áa]gina|p[áa]g\.?)\s*\d+(\s*(of|de)\s*\d+)?$`)
	reBareURL    = regexp.MustCompile(`(?i)^(https?://\S+|www\.\S+)$`)
	reBareEmail  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	reCaption    = regexp.MustCompile(`(?i)^(fig\.?|figure|figura|table|tabla|cuadro)\s*\d+`)

	reEmail    = regexp.MustCompile(`\S+@\S+`)
	reURL      = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)
	reIEEECite = regexp.MustCompile(`\[\d+(?:\s*[-,–]\s*\d+)*\]`)
	reAPACite  = regexp.MustCompile(`\([A-Za-z\s,&.]+,\s*\d{4}\)`)
	reHyphenNL = regexp.MustCompile(`(\p{L})-\s*\n\s*(\p{Ll})`)
)

var langWhitelist = map[whatlanggo.Lang]bool{
	whatlanggo.Spa: true,
	whatlanggo.Eng: true,
}

// FilterNoise normalizes fragment text (NFKC fold, whitespace collapse) and
// drops the lines that carry no content: bare page numbers, URL/email-only
// lines, figure and table captions, and margin lines that repeat across
// pages with only their digits changing.
func FilterNoise(frags []document.Fragment) []document.Fragment {
	normed := make([]document.Fragment, 0, len(frags))
	for _, f := range frags {
		f.Text = normalizeLine(f.Text)
		if f.Text == "" {
			continue
		}
		normed = append(normed, f)
	}

	// Count the distinct pages each digit-stripped line shape occurs on.
	pages := make(map[string]map[int]struct{})
	for _, f := range normed {
		k := marginKey(f.Text)
		if k == "" {
			continue
		}
		if pages[k] == nil {
			pages[k] = make(map[int]struct{})
		}
		pages[k][f.Page] = struct{}{}
	}

	var kept []document.Fragment
	for _, f := range normed {
		if isNoiseLine(f.Text) {
			continue
		}
		if k := marginKey(f.Text); k != "" &&
			utf8.RuneCountInString(f.Text) <= maxMarginLineLen &&
			len(pages[k]) >= repeatedLineMinPages {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func normalizeLine(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// marginKey reduces a line to its shape with digits removed, so "4 Smith et
// al." on one page matches "6 Smith et al." on another.
func marginKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

func isNoiseLine(s string) bool {
	return rePageNumber.MatchString(s) ||
		rePageLabel.MatchString(s) ||
		reBareURL.MatchString(s) ||
		reBareEmail.MatchString(s) ||
		reCaption.MatchString(s)
}

// CleanBody prepares one section's body for prompting: ligatures folded,
// end-of-line hyphenation rejoined, citations and contact noise stripped,
// whitespace collapsed to single spaces.
func CleanBody(text string) string {
	text = norm.NFKC.String(text)
	text = reHyphenNL.ReplaceAllString(text, "$1$2")
	text = strings.ReplaceAll(text, "\n", " ")
	text = reEmail.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = reIEEECite.ReplaceAllString(text, "")
	text = reAPACite.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// DetectLanguage identifies the dominant language of text, restricted to
// the languages the summarizer supports. The boolean is false when the text
// is too short or the classifier is not confident.
func DetectLanguage(text string) (string, bool) {
	if utf8.RuneCountInString(text) < minLangTextLen {
		return "", false
	}
	info := whatlanggo.DetectWithOptions(text, whatlanggo.Options{Whitelist: langWhitelist})
	tag, ok := isoTag(info.Lang)
	if !ok {
		return "", false
	}
	return tag, info.IsReliable()
}

func isoTag(lang whatlanggo.Lang) (string, bool) {
	switch lang {
	case whatlanggo.Spa:
		return "es", true
	case whatlanggo.Eng:
		return "en", true
	}
	return "", false
}

// NormalizeLanguage maps the accepted spellings of a language request onto
// the canonical tag. The empty string means "auto".
func NormalizeLanguage(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return "auto", true
	case "es", "spa", "spanish", "español", "espanol", "castellano":
		return "es", true
	case "en", "eng", "english", "ingles", "inglés":
		return "en", true
	}
	return "", false
}

// LanguageName returns the English name of a language tag for use in
// prompts.
func LanguageName(tag string) string {
	switch tag {
	case "es":
		return "Spanish"
	case "en":
		return "English"
	}
	return tag
}
