// Package pdftext extracts plain text from PDF documents, page by page.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrEmpty is returned when no document bytes were supplied.
	ErrEmpty = errors.New("empty document")
	// ErrInvalid is returned when the bytes cannot be read as a PDF.
	ErrInvalid = errors.New("not a readable PDF")
	// ErrTooManyPages is returned when a document exceeds the page limit.
	ErrTooManyPages = errors.New("too many pages")
)

// Page is the text of one page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the extracted text of a whole PDF.
type Document struct {
	// Text is every page's text joined in page order.
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
}

// PageTexts returns the page texts in page order.
func (d *Document) PageTexts() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Text
	}
	return out
}

// Extractor turns PDF bytes into per-page text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Document, error)
}

// Config configures a PDFExtractor.
type Config struct {
	// MaxPages rejects documents with more pages. Zero means no limit.
	MaxPages int
	Logger   *slog.Logger
}

// PDFExtractor reads the embedded text layer of a PDF. Scanned, image-only
// pages come back empty.
type PDFExtractor struct {
	maxPages int
	logger   *slog.Logger
}

// New creates a PDFExtractor.
func New(cfg Config) *PDFExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{maxPages: cfg.MaxPages, logger: logger}
}

// Extract reads every page of data. Pages whose text cannot be decoded are
// returned empty so page numbering is preserved.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	pageCount, err := e.pageCount(data)
	if err != nil {
		return nil, err
	}
	if e.maxPages > 0 && pageCount > e.maxPages {
		return nil, fmt.Errorf("%w: %d pages, limit is %d", ErrTooManyPages, pageCount, e.maxPages)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	numPages := r.NumPage()
	doc := &Document{Pages: make([]Page, 0, numPages)}
	texts := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := readPage(r.Page(i))
		if err != nil {
			e.logger.Warn("failed to read page text", "page", i, "error", err)
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
		texts = append(texts, text)
	}

	doc.Text = strings.Join(texts, "\n")
	return doc, nil
}

// pageCount validates the document structure and returns its page count.
func (e *PDFExtractor) pageCount(data []byte) (count int, err error) {
	// pdfcpu panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			count, err = 0, fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	count, err = api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return count, nil
}

// baselineTolerance is how far, in points, two glyphs' baselines may differ
// and still be read as one line.
const baselineTolerance = 1.0

func readPage(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("decode page: %v", r)
		}
	}()

	if p.V.IsNull() {
		return "", nil
	}
	return joinLines(p.Content().Text), nil
}

// joinLines rebuilds text lines from positioned glyphs. Glyphs keep their
// content-stream order and a new line starts whenever the baseline moves.
// A space is inserted where a run starts visibly right of the previous
// glyph on the same line; fonts without width tables never trigger it.
func joinLines(glyphs []pdf.Text) string {
	var (
		lines []string
		cur   strings.Builder
		y     float64
		end   float64
		open  bool
	)

	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		switch {
		case !open || math.Abs(g.Y-y) > baselineTolerance:
			if open {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			open, y = true, g.Y
		case end > 0 && g.X-end > g.FontSize*0.2 && g.S != " " && !strings.HasSuffix(cur.String(), " "):
			cur.WriteByte(' ')
		}
		cur.WriteString(g.S)
		end = 0
		if g.W > 0 {
			end = g.X + g.W
		}
	}
	if open {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n")
}
