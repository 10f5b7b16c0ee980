package tgpdf

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
)

// FontFamily is the glyph strategy used for one render.
type FontFamily int

// Font families.
const (
	PreferredUnicode FontFamily = iota
	FallbackASCII
)

func (f FontFamily) String() string {
	if f == PreferredUnicode {
		return "unicode"
	}
	return "fallback_ascii"
}

// Family names registered with the PDF writer.
const (
	UnicodeFontName  = "DejaVu"
	FallbackFontName = "Helvetica"
)

// DefaultFontPaths lists Unicode font locations tried in order.
var DefaultFontPaths = []string{
	"/app/fonts/DejaVuSans.ttf",
	"./fonts/DejaVuSans.ttf",
}

// FontChoice is the resolved glyph strategy.
// Data holds the TTF bytes when Family is PreferredUnicode.
type FontChoice struct {
	Family        FontFamily
	Transliterate bool
	Name          string
	Path          string
	Data          []byte
}

// FallbackFont is the core-font choice used when no Unicode font loads.
func FallbackFont() FontChoice {
	return FontChoice{Family: FallbackASCII, Transliterate: true, Name: FallbackFontName}
}

// FontOption configures a FontResolver.
type FontOption func(*FontResolver)

// WithFontPaths replaces the list of Unicode font locations.
func WithFontPaths(paths ...string) FontOption {
	return func(r *FontResolver) {
		r.paths = paths
	}
}

// WithFontLogger sets the logger used to report fallbacks.
func WithFontLogger(l logrus.FieldLogger) FontOption {
	return func(r *FontResolver) {
		r.logger = l
	}
}

// FontResolver selects a font able to draw the text. The first successful
// resolution is cached for the life of the resolver.
type FontResolver struct {
	paths  []string
	logger logrus.FieldLogger

	once   sync.Once
	choice FontChoice
}

// NewFontResolver creates a resolver over DefaultFontPaths.
func NewFontResolver(opts ...FontOption) *FontResolver {
	r := &FontResolver{
		paths:  DefaultFontPaths,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first loadable Unicode font, or FallbackFont.
// It never fails: a missing or broken font is logged and falls through
// to the next location without retrying.
func (r *FontResolver) Resolve() FontChoice {
	r.once.Do(func() {
		r.choice = r.resolve()
	})
	return r.choice
}

func (r *FontResolver) resolve() FontChoice {
	for _, path := range r.paths {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-configured font path
		if err != nil {
			r.logger.WithField("path", path).WithError(err).Debug("unicode font not available")
			continue
		}
		if err := checkFont(data); err != nil {
			r.logger.WithField("path", path).WithError(err).Warn("unicode font failed to load")
			continue
		}
		r.logger.WithField("path", path).Info("using unicode font")
		return FontChoice{
			Family: PreferredUnicode,
			Name:   UnicodeFontName,
			Path:   path,
			Data:   data,
		}
	}

	r.logger.WithField("tried", r.paths).Warn("no unicode font loaded, falling back to transliterated core font")
	return FallbackFont()
}

// checkFont registers data with a scratch document to confirm the writer accepts it.
func checkFont(data []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("font parser panic: %v", rec)
		}
	}()

	if len(data) == 0 {
		return errors.New("font file is empty")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(UnicodeFontName, "", data)
	pdf.SetFont(UnicodeFontName, "", fontSize)
	return pdf.Error()
}
