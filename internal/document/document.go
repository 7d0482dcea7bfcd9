// Package document holds the data model shared across the summarization
// pipeline: positioned text fragments recovered from the PDF, the sections
// rebuilt from them, and the weighted form handed to the prompt builder.
package document

// Fragment is a single line of text recovered from the PDF layout, carrying
// the layout signals header classification needs. Fragments are transient;
// they are discarded once sections are built.
type Fragment struct {
	Text     string
	FontSize float64 // Dominant font size of the line, in points
	Bold     bool    // Font name suggests a bold face
	Page     int     // Zero-based page index
	Y        float64 // Baseline position in PDF user space (larger = higher on page)
}

// Section is a contiguous region of the document under one header. Names are
// not unique; OrderIndex is the canonical identity everywhere downstream.
type Section struct {
	Name       string
	Level      int // Heading depth, 1 = most prominent (display only)
	OrderIndex int // Position in document order, starting at 0
	Body       string
}

// WeightedSection pairs a section with its share of the prompt budget.
type WeightedSection struct {
	Section
	RawWeight        float64
	NormalizedWeight float64 // Normalized weights sum to 1.0 across the document
	AllocatedChars   int     // Excerpt size in runes; never exceeds the body length
}

// SummarySection is one section's contribution to an assembled request:
// the excerpt that fit inside the budget and the emphasis it was given.
type SummarySection struct {
	Name    string
	Excerpt string
	Weight  float64
}

// SummaryRequest is the fully assembled inference payload. It is built once
// per request and never mutated after dispatch.
type SummaryRequest struct {
	Title    string
	Language string // resolved target language tag
	Sections []SummarySection
	System   string // system prompt with instructions and emphasis weights
	User     string // user message carrying the weighted section excerpts
}
