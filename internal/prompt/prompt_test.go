package prompt

import (
	"strings"
	"testing"

	"github.com/dgallion1/papersumm/internal/document"
	"github.com/dgallion1/papersumm/internal/inference"
)

func weighted(name, body string, weight float64, alloc int) document.WeightedSection {
	return document.WeightedSection{
		Section:          document.Section{Name: name, Body: body},
		NormalizedWeight: weight,
		AllocatedChars:   alloc,
	}
}

func testParams() inference.Parameters {
	return inference.Parameters{
		Model:   "llama3.2:3b",
		Options: inference.Options{NumPredict: 1000},
	}
}

func TestBuild_SystemPromptCarriesInstructionsAndWeights(t *testing.T) {
	sections := []document.WeightedSection{
		weighted("Introduction", "intro body text", 0.25, 15),
		weighted("Results", "results body text", 0.75, 17),
	}
	req := Build("A Paper", sections, testParams(), "es")

	for _, want := range []string{
		"scientific summarization model",
		"academic summary in Spanish",
		"approximately 1000 tokens",
		"Mandatory rules:",
		"- Third person",
		"Do not mention figures or tables",
		"Section priority weights:",
		"- Introduction: 25.00% importance",
		"- Results: 75.00% importance",
		"only in Spanish.",
	} {
		if !strings.Contains(req.System, want) {
			t.Errorf("system prompt missing %q:\n%s", want, req.System)
		}
	}
}

func TestBuild_EnglishTarget(t *testing.T) {
	sections := []document.WeightedSection{weighted("Methods", "text", 1, 4)}
	req := Build("", sections, testParams(), "en")

	if !strings.Contains(req.System, "academic summary in English") {
		t.Errorf("system prompt not targeting English:\n%s", req.System)
	}
	if !strings.Contains(req.System, "only in English.") {
		t.Errorf("system prompt missing closing language rule:\n%s", req.System)
	}
}

func TestBuild_UserMessageOrderAndTitle(t *testing.T) {
	sections := []document.WeightedSection{
		weighted("Introduction", "the intro", 0.5, 9),
		weighted("Results", "the results", 0.5, 11),
	}
	req := Build("Counting Penguins", sections, testParams(), "en")

	if !strings.HasPrefix(req.User, `Document: "Counting Penguins"`) {
		t.Errorf("user message should open with the title:\n%s", req.User)
	}
	intro := strings.Index(req.User, "## Introduction\nthe intro")
	results := strings.Index(req.User, "## Results\nthe results")
	if intro == -1 || results == -1 {
		t.Fatalf("user message missing section blocks:\n%s", req.User)
	}
	if intro > results {
		t.Error("sections out of document order in user message")
	}
}

func TestBuild_NoTitleOmitsDocumentLine(t *testing.T) {
	sections := []document.WeightedSection{weighted("Results", "abc", 1, 3)}
	req := Build("", sections, testParams(), "en")
	if strings.Contains(req.User, "Document:") {
		t.Errorf("user message should not carry an empty title:\n%s", req.User)
	}
}

func TestBuild_ZeroAllocationOmitted(t *testing.T) {
	sections := []document.WeightedSection{
		weighted("Kept", "kept body", 0.9, 9),
		weighted("Starved", "starved body", 0.1, 0),
	}
	req := Build("T", sections, testParams(), "en")

	if len(req.Sections) != 1 || req.Sections[0].Name != "Kept" {
		t.Fatalf("sections = %+v, want only the allocated one", req.Sections)
	}
	if strings.Contains(req.User, "Starved") || strings.Contains(req.System, "Starved") {
		t.Error("zero-allocation section leaked into the prompt")
	}
	// The surviving section's share rescales to the whole.
	if !strings.Contains(req.System, "- Kept: 100.00% importance") {
		t.Errorf("weights not rescaled over included sections:\n%s", req.System)
	}
}

func TestBuild_TruncatesExcerptToAllocation(t *testing.T) {
	body := strings.Repeat("word ", 100)
	sections := []document.WeightedSection{weighted("Long", body, 1, 30)}
	req := Build("", sections, testParams(), "en")

	if len(req.Sections) != 1 {
		t.Fatalf("sections = %+v", req.Sections)
	}
	if got := len([]rune(req.Sections[0].Excerpt)); got > 30 {
		t.Errorf("excerpt has %d runes, allocation was 30", got)
	}
}

func TestBuildTranslation(t *testing.T) {
	es := BuildTranslation("es")
	if !strings.Contains(es, "into Spanish") || !strings.Contains(es, "Do not summarize") {
		t.Errorf("translation prompt = %q", es)
	}
	en := BuildTranslation("en")
	if !strings.Contains(en, "into English") {
		t.Errorf("translation prompt = %q", en)
	}
}
