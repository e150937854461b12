package script

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitBySize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := SplitBySize("", 10); len(got) != 0 {
			t.Fatalf("expected no pieces, got %#v", got)
		}
	})

	t.Run("shorter than max", func(t *testing.T) {
		got := SplitBySize("hello", 10)
		if len(got) != 1 || got[0] != "hello" {
			t.Fatalf("got %#v", got)
		}
	})

	t.Run("exact multiple", func(t *testing.T) {
		got := SplitBySize("abcdef", 3)
		if len(got) != 2 || got[0] != "abc" || got[1] != "def" {
			t.Fatalf("got %#v", got)
		}
	})

	t.Run("remainder", func(t *testing.T) {
		got := SplitBySize("abcdefg", 3)
		want := []string{"abc", "def", "g"}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("multi-byte characters stay whole", func(t *testing.T) {
		text := "héllo wörld ✓✓✓"
		got := SplitBySize(text, 4)
		for i, p := range got {
			if !utf8.ValidString(p) {
				t.Fatalf("piece %d is not valid UTF-8: %q", i, p)
			}
			if n := utf8.RuneCountInString(p); n > 4 {
				t.Fatalf("piece %d has %d characters", i, n)
			}
		}
		if strings.Join(got, "") != text {
			t.Fatalf("pieces do not reassemble input")
		}
	})

	t.Run("default size", func(t *testing.T) {
		text := strings.Repeat("x", DefaultMaxChunkChars+1)
		got := SplitBySize(text, 0)
		if len(got) != 2 || len(got[0]) != DefaultMaxChunkChars || len(got[1]) != 1 {
			t.Fatalf("unexpected split: %d pieces", len(got))
		}
	})
}

func TestSplitBySize_Partition(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 500)
	for _, max := range []int{1, 7, 100, 9999, len(text), len(text) + 1} {
		pieces := SplitBySize(text, max)
		if strings.Join(pieces, "") != text {
			t.Fatalf("max=%d: pieces lose or duplicate characters", max)
		}
		for i, p := range pieces[:len(pieces)-1] {
			if len(p) != max {
				t.Fatalf("max=%d: piece %d has length %d", max, i, len(p))
			}
		}
	}
}

func TestPlanPages(t *testing.T) {
	pages := []string{
		"3.\nASH\nHello.\n",
		"",
		"cuff-\nlinks are nice.\n",
	}
	chunks := PlanPages(pages, DefaultMaxChunkChars)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	want := []Chunk{
		{Index: 0, Page: 1, Text: "ASH:\nHello."},
		{Index: 1, Page: 2, Text: ""},
		{Index: 2, Page: 3, Text: "cuff-links are nice."},
	}
	for i, c := range chunks {
		if c != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestPlanPages_SplitsOversizedPage(t *testing.T) {
	pages := []string{
		"short page",
		strings.Repeat("a", 25),
		"tail",
	}
	chunks := PlanPages(pages, 10)
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d: %+v", len(chunks), chunks)
	}

	wantPages := []int{1, 2, 2, 2, 3}
	wantParts := []int{0, 0, 1, 2, 0}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Page != wantPages[i] || c.Part != wantParts[i] {
			t.Errorf("chunk %d = page %d part %d, want page %d part %d", i, c.Page, c.Part, wantPages[i], wantParts[i])
		}
	}
	if chunks[1].Text+chunks[2].Text+chunks[3].Text != strings.Repeat("a", 25) {
		t.Error("oversized page parts do not reassemble the page")
	}
}

func TestPlanDocument(t *testing.T) {
	chunks := PlanDocument("abcdefghij", 4)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i || c.Page != 0 {
			t.Errorf("chunk %d = %+v", i, c)
		}
	}
	if chunks[2].Text != "ij" {
		t.Errorf("last chunk = %q", chunks[2].Text)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyPage, false},
		{"page", PolicyPage, false},
		{"size", PolicySize, false},
		{"words", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
