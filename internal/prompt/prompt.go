// Package prompt assembles the inference payload: a system prompt carrying
// the summarization instructions and per-section emphasis weights, and a
// user message carrying the budgeted section excerpts in document order.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dgallion1/papersumm/internal/document"
	"github.com/dgallion1/papersumm/internal/inference"
	"github.com/dgallion1/papersumm/internal/textproc"
	"github.com/dgallion1/papersumm/internal/weighting"
)

// Build produces the complete request for one document. Sections that ended
// up with no budget are left out of both the emphasis list and the user
// message; the weights shown to the model are the normalized shares of the
// included sections, rescaled to percentages.
func Build(title string, sections []document.WeightedSection, params inference.Parameters, lang string) document.SummaryRequest {
	var entries []document.SummarySection
	for _, ws := range sections {
		if ws.AllocatedChars <= 0 {
			continue
		}
		excerpt := weighting.Truncate(ws.Body, ws.AllocatedChars)
		if excerpt == "" {
			continue
		}
		entries = append(entries, document.SummarySection{
			Name:    ws.Name,
			Excerpt: excerpt,
			Weight:  ws.NormalizedWeight,
		})
	}

	return document.SummaryRequest{
		Title:    title,
		Language: lang,
		Sections: entries,
		System:   systemPrompt(entries, params.NumPredict, lang),
		User:     userMessage(title, entries),
	}
}

func systemPrompt(entries []document.SummarySection, numPredict int, lang string) string {
	langName := textproc.LanguageName(lang)

	var sb strings.Builder
	sb.WriteString("You are a scientific summarization model.\n")
	fmt.Fprintf(&sb, "Generate an academic summary in %s.\n\n", langName)
	fmt.Fprintf(&sb, "The summary must be clear, self-contained, and within approximately %d tokens.\n\n", numPredict)
	sb.WriteString("Mandatory rules:\n" +
		"- Third person\n" +
		"- No invented information\n" +
		"- No opinions\n" +
		"- Do not mention figures or tables\n\n")
	sb.WriteString("Integrate naturally:\n" +
		"- Research problem\n" +
		"- Methodology\n" +
		"- Main results\n" +
		"- Conclusions\n")

	if len(entries) > 0 {
		sb.WriteString("\nThe article contains user-prioritized sections.\n" +
			"Adjust the summary emphasis proportionally.\n" +
			"Do NOT explicitly list the headers in the final output.\n\n" +
			"Section priority weights:\n")
		var total float64
		for _, e := range entries {
			total += e.Weight
		}
		for _, e := range entries {
			pct := e.Weight * 100
			if total > 0 {
				pct = e.Weight / total * 100
			}
			fmt.Fprintf(&sb, "- %s: %.2f%% importance\n", e.Name, pct)
		}
	}

	fmt.Fprintf(&sb, "\nIMPORTANT: The final output must be only in %s.", langName)
	return sb.String()
}

func userMessage(title string, entries []document.SummarySection) string {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "Document: %q\n\n", title)
	}
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n%s", e.Name, e.Excerpt)
	}
	return sb.String()
}

// BuildTranslation returns the system prompt for the post-hoc translation
// pass used when the model answered in the wrong language.
func BuildTranslation(lang string) string {
	return fmt.Sprintf("Translate the following text into %s faithfully and accurately. "+
		"Do not summarize, rephrase, or add new information.", textproc.LanguageName(lang))
}
