// Package transcript turns a PDF script into an ordered dialogue transcript.
//
// A run extracts page text, plans chunks, sends every chunk to the
// extraction provider concurrently, and merges the per-chunk results back
// into document order with fresh line identifiers. Chunk failures are
// isolated: they drop that chunk's lines and are listed in the run's chunk
// report, but never fail the run.
package transcript

import (
	"fmt"
	"io"
	"time"

	"github.com/jackzampolin/sides/internal/prompts/dialogue"
)

// DialogueLine is one line of the final transcript.
type DialogueLine struct {
	LineID    string `json:"lineId" yaml:"lineId"`
	Order     int    `json:"order" yaml:"order"`
	Character string `json:"character" yaml:"character"`
	Text      string `json:"text" yaml:"text"`
}

// Result is the outcome of one chunk. Exactly one of Lines or Err is
// meaningful: Err nil means success, possibly with zero lines.
type Result struct {
	Index    int
	Page     int
	Part     int
	Lines    []dialogue.Line
	Err      *ChunkError
	Tokens   int
	Duration time.Duration
}

// OK reports whether the chunk succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Chunk statuses reported in ChunkStatus.Status.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ChunkStatus summarizes one chunk for callers.
type ChunkStatus struct {
	Index      int       `json:"index" yaml:"index"`
	Page       int       `json:"page,omitempty" yaml:"page,omitempty"`
	Part       int       `json:"part,omitempty" yaml:"part,omitempty"`
	Status     string    `json:"status" yaml:"status"`
	Kind       ErrorKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Lines      int       `json:"lines" yaml:"lines"`
	DurationMs int64     `json:"durationMs" yaml:"durationMs"`
}

// Transcript is the output of a run.
type Transcript struct {
	ExtractedText string         `json:"extractedText" yaml:"extractedText"`
	Lines         []DialogueLine `json:"lines" yaml:"lines"`
	Chunks        []ChunkStatus  `json:"chunks" yaml:"chunks"`
	RunID         string         `json:"runId" yaml:"runId"`
	DurationMs    int64          `json:"durationMs" yaml:"durationMs"`
	Duration      time.Duration  `json:"-" yaml:"-"`
}

// WriteText prints the transcript as "CHARACTER: text" lines.
func (t *Transcript) WriteText(w io.Writer) error {
	for _, l := range t.Lines {
		if _, err := fmt.Fprintf(w, "%s: %s\n", l.Character, l.Text); err != nil {
			return err
		}
	}
	return nil
}

// Failed returns how many chunks failed.
func (t *Transcript) Failed() int {
	n := 0
	for _, c := range t.Chunks {
		if c.Status == StatusFailed {
			n++
		}
	}
	return n
}
