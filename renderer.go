package tgpdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/tgpdf/tgpdf/internal/translit"
)

// Page layout, in millimetres and points.
const (
	pageMargin = 10.0
	fontSize   = 12.0
	lineHeight = 10.0
)

// producer is written into the PDF info dictionary.
const producer = "tgpdf"

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithClock sets the time source for document dates.
// Panics if now is nil (programmer error).
func WithClock(now func() time.Time) RendererOption {
	if now == nil {
		panic("tgpdf: WithClock requires a non-nil clock")
	}
	return func(r *Renderer) {
		r.now = now
	}
}

// WithCompression toggles content stream compression (on by default).
func WithCompression(on bool) RendererOption {
	return func(r *Renderer) {
		r.compress = on
	}
}

// Renderer lays out plain text on A4 pages.
// It is stateless between calls and safe for concurrent use.
type Renderer struct {
	now      func() time.Time
	compress bool
}

// NewRenderer creates a Renderer that stamps documents with the current time.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{now: time.Now, compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces a PDF with at least one page.
//
// With a Unicode font the text is written as is. With the fallback font the
// text is transliterated when the choice asks for it and then encoded to
// Windows-1252, so non-ASCII content alone never makes rendering fail.
// Writer faults and internal panics are returned as ErrRenderFailed.
func (r *Renderer) Render(ctx context.Context, req RenderRequest, font FontChoice) (doc *RenderedDocument, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("%w: internal error: %v", ErrRenderFailed, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	if strings.EqualFold(req.PreferredFontFamily, FallbackFontName) {
		font = FallbackFont()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(r.compress)
	stamp := r.now()
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetProducer(producer, false)

	text, err := r.applyFont(pdf, req.Content, font)
	if err != nil {
		return nil, err
	}

	pdf.AddPage()
	pdf.MultiCell(0, lineHeight, text, "", "L", false)
	pages := pdf.PageCount()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	return &RenderedDocument{PDF: buf.Bytes(), Pages: pages}, nil
}

// applyFont registers the chosen font and returns text ready for the writer.
func (r *Renderer) applyFont(pdf *fpdf.Fpdf, content string, font FontChoice) (string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if font.Family == PreferredUnicode && len(font.Data) > 0 {
		name := font.Name
		if name == "" {
			name = UnicodeFontName
		}
		pdf.AddUTF8FontFromBytes(name, "", font.Data)
		pdf.SetFont(name, "", fontSize)
		if err := pdf.Error(); err != nil {
			return "", fmt.Errorf("%w: registering font %s: %v", ErrRenderFailed, name, err)
		}
		return content, nil
	}

	if font.Transliterate || !translit.Encodable(content) {
		content = translit.Sanitize(content)
	}
	encoded, err := translit.ToWindows1252(content)
	if err != nil {
		return "", fmt.Errorf("%w: encoding text: %v", ErrRenderFailed, err)
	}
	pdf.SetFont(FallbackFontName, "", fontSize)
	return encoded, nil
}
