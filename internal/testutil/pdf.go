package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// Layout selects the text operators used to place successive lines.
type Layout int

const (
	// LayoutLeading moves down with T* after setting TL.
	LayoutLeading Layout = iota
	// LayoutOffset moves down with a relative 0 -14 Td.
	LayoutOffset
	// LayoutMatrix places every line with an absolute Tm.
	LayoutMatrix
)

// PDF builds a minimal text-layer PDF. Each element of pages is one page
// and each string on a page is drawn as its own text line in Helvetica.
func PDF(pages ...[]string) []byte {
	return LayoutPDF(LayoutLeading, pages...)
}

// LayoutPDF is PDF with the line placement chosen by layout.
func LayoutPDF(layout Layout, pages ...[]string) []byte {
	streams := make([]string, len(pages))
	for i, lines := range pages {
		streams[i] = textStream(layout, lines)
	}
	return ContentPDF(streams...)
}

func textStream(layout Layout, lines []string) string {
	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n")
	switch layout {
	case LayoutLeading:
		content.WriteString("14 TL\n72 720 Td\n")
	case LayoutOffset:
		content.WriteString("72 720 Td\n")
	}
	for j, line := range lines {
		switch layout {
		case LayoutLeading:
			if j > 0 {
				content.WriteString("T*\n")
			}
		case LayoutOffset:
			if j > 0 {
				content.WriteString("0 -14 Td\n")
			}
		case LayoutMatrix:
			fmt.Fprintf(&content, "1 0 0 1 72 %d Tm\n", 720-14*j)
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFString(line))
	}
	content.WriteString("ET")
	return content.String()
}

// ContentPDF builds a PDF with one page per raw content stream. Streams
// may use font /F1 (Helvetica, WinAnsiEncoding).
func ContentPDF(streams ...string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// Object numbers: 1 catalog, 2 pages, 3 font, then a page and its
	// content stream for each page.
	kids := make([]string, len(streams))
	for i := range streams {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(streams)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, stream := range streams {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
