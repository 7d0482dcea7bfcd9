// Package layout reads positioned text runs from a PDF and assembles them
// into line fragments in reading order. It is the only package that touches
// the PDF library; everything downstream works on document.Fragment values.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/papersumm/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// Tunables for row and column recovery, in PDF points.
const (
	rowTolerance     = 3.0  // Y distance grouped into one text row
	wordSpaceRatio   = 0.3  // X gap wider than this share of the font size separates words
	fallbackWordGap  = 3.0  // word gap when the run carries no font size
	columnGapMin     = 30.0 // narrower gaps are intra-column spacing
	columnBucketSize = 20.0 // histogram bucket width for gap centers
	columnMinRowsPct = 25   // share of rows a gap must recur in to split columns
	columnMinRows    = 3
)

// ErrNoText reports a structurally valid PDF with no extractable text, such
// as a pure image scan.
var ErrNoText = errors.New("pdf contains no extractable text")

// PDFSource turns a PDF file into line fragments.
type PDFSource struct{}

func NewPDFSource() *PDFSource { return &PDFSource{} }

// ReadFile parses the PDF at path and returns its line fragments in reading
// order: page by page, left column before right, top to bottom. Pages whose
// content streams cannot be decoded are skipped; if no page yields text the
// whole read fails.
func (s *PDFSource) ReadFile(path string) ([]document.Fragment, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var frags []document.Fragment
	pages := reader.NumPage()
	unreadable := 0
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		texts, err := pageTexts(page)
		if err != nil {
			unreadable++
			continue
		}
		frags = append(frags, AssemblePage(texts, i-1)...)
	}

	if len(frags) == 0 {
		if unreadable > 0 {
			return nil, fmt.Errorf("parse pdf: %d of %d pages unreadable", unreadable, pages)
		}
		return nil, ErrNoText
	}
	return frags, nil
}

// pageTexts pulls the raw runs for one page. The pdf library panics on some
// malformed content streams, so the recover turns that into an error.
func pageTexts(page pdflib.Page) (texts []pdflib.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page content: %v", r)
		}
	}()
	content := page.Content()
	return content.Text, nil
}

// AssemblePage converts the raw runs of a single page into line fragments.
// Runs are bucketed into rows by Y, rows are split into columns when a
// vertical gap recurs through enough of them, and each row becomes one
// fragment carrying the dominant font of its characters.
func AssemblePage(texts []pdflib.Text, page int) []document.Fragment {
	texts = dropBlank(texts)
	if len(texts) == 0 {
		return nil
	}

	var frags []document.Fragment
	for _, col := range splitColumns(texts) {
		for _, row := range groupRows(col) {
			if fr, ok := lineFragment(row, page); ok {
				frags = append(frags, fr)
			}
		}
	}
	return frags
}

func dropBlank(texts []pdflib.Text) []pdflib.Text {
	kept := make([]pdflib.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			kept = append(kept, t)
		}
	}
	return kept
}

// groupRows buckets runs whose Y coordinates fall within rowTolerance of
// each other, returning rows top of page first (higher Y = higher on page).
func groupRows(texts []pdflib.Text) [][]pdflib.Text {
	if len(texts) == 0 {
		return nil
	}

	type bucket struct {
		yMin, yMax float64
		texts      []pdflib.Text
	}
	var buckets []bucket

	for _, t := range texts {
		placed := false
		for i := range buckets {
			if t.Y >= buckets[i].yMin-rowTolerance && t.Y <= buckets[i].yMax+rowTolerance {
				buckets[i].texts = append(buckets[i].texts, t)
				if t.Y < buckets[i].yMin {
					buckets[i].yMin = t.Y
				}
				if t.Y > buckets[i].yMax {
					buckets[i].yMax = t.Y
				}
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{yMin: t.Y, yMax: t.Y, texts: []pdflib.Text{t}})
		}
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].yMax > buckets[j].yMax })

	rows := make([][]pdflib.Text, len(buckets))
	for i, b := range buckets {
		rows[i] = b.texts
	}
	return rows
}

// splitColumns partitions the page's runs by recurring vertical gaps. A gap
// counts toward a column boundary when it is at least columnGapMin wide and
// its center lands in the same histogram bucket across enough rows. With no
// such boundary the page is a single column.
func splitColumns(texts []pdflib.Text) [][]pdflib.Text {
	rows := groupRows(texts)
	if len(rows) < columnMinRows {
		return [][]pdflib.Text{texts}
	}

	gapCounts := make(map[int]int)
	for _, row := range rows {
		sorted := make([]pdflib.Text, len(row))
		copy(sorted, row)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })
		for i := 0; i < len(sorted)-1; i++ {
			gapLeft := sorted[i].X + sorted[i].W
			gapRight := sorted[i+1].X
			if gapRight-gapLeft >= columnGapMin {
				center := (gapLeft + gapRight) / 2
				gapCounts[int(center/columnBucketSize)]++
			}
		}
	}

	minRows := len(rows) * columnMinRowsPct / 100
	if minRows < columnMinRows {
		minRows = columnMinRows
	}
	var boundaries []float64
	for b, count := range gapCounts {
		if count >= minRows {
			boundaries = append(boundaries, float64(b)*columnBucketSize+columnBucketSize/2)
		}
	}
	if len(boundaries) == 0 {
		return [][]pdflib.Text{texts}
	}
	sort.Float64s(boundaries)

	// Merge boundaries from adjacent histogram buckets.
	merged := boundaries[:1]
	for _, b := range boundaries[1:] {
		if b-merged[len(merged)-1] > columnBucketSize*2 {
			merged = append(merged, b)
		}
	}

	left, right := pageBounds(texts)
	edges := append([]float64{left}, merged...)
	edges = append(edges, right)

	cols := make([][]pdflib.Text, len(edges)-1)
	for _, t := range texts {
		center := t.X + t.W/2
		for i := 0; i < len(edges)-1; i++ {
			if center >= edges[i] && center <= edges[i+1] {
				cols[i] = append(cols[i], t)
				break
			}
		}
	}

	nonEmpty := cols[:0]
	for _, c := range cols {
		if len(c) > 0 {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return nonEmpty
}

func pageBounds(texts []pdflib.Text) (left, right float64) {
	left = texts[0].X
	right = texts[0].X + texts[0].W
	for _, t := range texts[1:] {
		if t.X < left {
			left = t.X
		}
		if t.X+t.W > right {
			right = t.X + t.W
		}
	}
	return left, right
}

// lineFragment flattens one row into a fragment. Runs are concatenated left
// to right with a space wherever the X gap exceeds the word threshold; the
// fragment carries the char-majority font size and boldness of the row.
func lineFragment(row []pdflib.Text, page int) (document.Fragment, bool) {
	sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })

	var b strings.Builder
	sizeWeight := make(map[float64]int)
	boldChars, totalChars := 0, 0
	yMax := row[0].Y

	for i, t := range row {
		if i > 0 {
			prev := row[i-1]
			gap := t.X - (prev.X + prev.W)
			threshold := wordSpaceRatio * prev.FontSize
			if threshold <= 0 {
				threshold = fallbackWordGap
			}
			if gap > threshold {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)

		n := len(t.S)
		if n == 0 {
			n = 1
		}
		sizeWeight[quantize(t.FontSize)] += n
		totalChars += n
		if IsBoldFont(t.Font) {
			boldChars += n
		}
		if t.Y > yMax {
			yMax = t.Y
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	if text == "" {
		return document.Fragment{}, false
	}
	return document.Fragment{
		Text:     text,
		FontSize: dominantSize(sizeWeight),
		Bold:     boldChars*2 > totalChars,
		Page:     page,
		Y:        yMax,
	}, true
}

// quantize snaps a font size to 0.1pt so float jitter between runs of the
// same face does not fracture the majority vote.
func quantize(size float64) float64 {
	return float64(int(size*10+0.5)) / 10
}

func dominantSize(weights map[float64]int) float64 {
	var best float64
	bestWeight := -1
	for size, w := range weights {
		if w > bestWeight || (w == bestWeight && size > best) {
			best, bestWeight = size, w
		}
	}
	return best
}

// IsBoldFont reports whether a PDF font name denotes a bold face. Covers the
// common foundry conventions plus LaTeX computer modern bold (CMBX).
func IsBoldFont(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "bold") ||
		strings.Contains(n, "black") ||
		strings.Contains(n, "heavy") ||
		strings.Contains(n, "cmbx")
}
