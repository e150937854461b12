// Package script turns raw PDF page text into script-shaped lines and plans
// the chunks that are sent to the dialogue extractor.
package script

import (
	"regexp"
	"strings"
)

var (
	leadingLabel  = regexp.MustCompile(`^\s*\d+\.\s*`)
	trailingLabel = regexp.MustCompile(`\d+\.\s*$`)
	speakerLine   = regexp.MustCompile(`^[A-Z][A-Z\s]*$`)
)

// Normalize rewrites one page of extracted text into script-like lines.
//
// A leading and trailing page-number label ("3.") is removed, blank lines are
// dropped, words broken across a line end with a hyphen are rejoined (a
// hyphen followed by a blank line is dropped instead), and
// all-caps lines are treated as speaker cues and get a trailing colon.
// Surviving lines are joined with "\n". Normalize never fails.
func Normalize(pageText string) string {
	text := leadingLabel.ReplaceAllString(pageText, "")
	text = trailingLabel.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		// Each merge consumes the next physical line. A merged line that
		// still ends in a hyphen is joined with the line after it. A blank
		// next line is an interruption: it is consumed, the dangling hyphen
		// is dropped and no further merging happens.
		for strings.HasSuffix(line, "-") && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			i++
			if next == "" {
				line = strings.TrimSuffix(line, "-")
				break
			}
			// The hyphen stays: "cuff-" + "links" reads "cuff-links".
			line += next
		}

		if speakerLine.MatchString(line) {
			line += ":"
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
