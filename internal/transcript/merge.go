package transcript

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jackzampolin/sides/internal/prompts/dialogue"
)

// Merge concatenates the lines of successful results in chunk order and
// re-identifies them. Failed results contribute nothing. Provider-assigned
// lineId and order values are discarded.
func Merge(results []Result) []DialogueLine {
	ordered := slices.Clone(results)
	slices.SortStableFunc(ordered, func(a, b Result) int { return a.Index - b.Index })

	var acc []dialogue.Line
	for _, r := range ordered {
		if !r.OK() {
			continue
		}
		acc = append(acc, r.Lines...)
	}

	lines := make([]DialogueLine, len(acc))
	for i, l := range acc {
		lines[i] = DialogueLine{
			LineID:    fmt.Sprintf("L%d", i+1),
			Order:     i + 1,
			Character: strings.ToUpper(strings.TrimSpace(l.Character)),
			Text:      strings.TrimSpace(l.Text),
		}
	}
	return lines
}

// Report builds the per-chunk status list in chunk order.
func Report(results []Result) []ChunkStatus {
	out := make([]ChunkStatus, len(results))
	for i, r := range results {
		s := ChunkStatus{
			Index:      r.Index,
			Page:       r.Page,
			Part:       r.Part,
			Status:     StatusOK,
			Lines:      len(r.Lines),
			DurationMs: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			s.Status = StatusFailed
			s.Kind = r.Err.Kind
			if r.Err.Err != nil {
				s.Error = r.Err.Err.Error()
			}
			s.Lines = 0
		}
		out[i] = s
	}
	slices.SortStableFunc(out, func(a, b ChunkStatus) int { return a.Index - b.Index })
	return out
}
