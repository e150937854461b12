package script

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMaxChunkChars is the size cap used when none is configured.
const DefaultMaxChunkChars = 10000

// Policy selects how a document is cut into chunks.
type Policy string

const (
	// PolicyPage sends one chunk per page (pages over the size cap are split).
	PolicyPage Policy = "page"
	// PolicySize ignores page boundaries and cuts the whole text by size.
	PolicySize Policy = "size"
)

// ParsePolicy validates a policy name. Empty selects PolicyPage.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyPage:
		return PolicyPage, nil
	case PolicySize:
		return PolicySize, nil
	default:
		return "", fmt.Errorf("unknown chunking policy %q (want %q or %q)", s, PolicyPage, PolicySize)
	}
}

// Chunk is one unit of text submitted as a single extraction request.
type Chunk struct {
	// Index is the chunk's position in the plan, 0..n-1.
	Index int `json:"index"`
	// Page is the 1-based source page, or 0 when the chunk was cut from the
	// whole document.
	Page int `json:"page,omitempty"`
	// Part numbers the pieces of an oversized page, starting at 0.
	Part int    `json:"part,omitempty"`
	Text string `json:"-"`
}

// SplitBySize cuts text into consecutive pieces of at most maxChars
// characters. Pieces concatenate back to text exactly. Splits never land
// inside a multi-byte character.
func SplitBySize(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	if text == "" {
		return nil
	}

	var pieces []string
	start, count := 0, 0
	for i := range text {
		if count == maxChars {
			pieces = append(pieces, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(pieces, text[start:])
}

// PlanPages builds the per-page plan: each page is normalized and becomes one
// chunk. A normalized page longer than maxChars is split into consecutive
// parts that keep the page number. Pages that normalize to nothing still get
// a chunk so chunk and page order stay aligned.
func PlanPages(pages []string, maxChars int) []Chunk {
	chunks := make([]Chunk, 0, len(pages))
	for p, raw := range pages {
		text := Normalize(raw)
		if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
			chunks = append(chunks, Chunk{Index: len(chunks), Page: p + 1, Text: text})
			continue
		}
		for part, piece := range SplitBySize(text, maxChars) {
			chunks = append(chunks, Chunk{Index: len(chunks), Page: p + 1, Part: part, Text: piece})
		}
	}
	return chunks
}

// PlanDocument builds the size-bounded plan over the whole document text.
// The text is sent as extracted, without normalization.
func PlanDocument(text string, maxChars int) []Chunk {
	pieces := SplitBySize(text, maxChars)
	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{Index: i, Text: piece}
	}
	return chunks
}
