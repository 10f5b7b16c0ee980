package tgpdf

import (
	"context"
	"fmt"
	"strings"
)

// DefaultOCRLanguage is the language pair passed to the OCR engine.
const DefaultOCRLanguage = "ukr+eng"

// DefaultMaxImageSize matches the bot API download ceiling (20 MiB).
const DefaultMaxImageSize = 20 << 20

// Recognizer converts image bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte, lang string) (string, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	return f(ctx, image, lang)
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLanguage sets the OCR language hint (e.g. "ukr+eng").
// Panics if lang is empty (programmer error).
func WithLanguage(lang string) ExtractorOption {
	if lang == "" {
		panic("tgpdf: WithLanguage requires a language")
	}
	return func(e *Extractor) {
		e.lang = lang
	}
}

// WithMaxImageSize sets the largest accepted image, in bytes.
// Panics if n <= 0 (programmer error).
func WithMaxImageSize(n int) ExtractorOption {
	if n <= 0 {
		panic("tgpdf: WithMaxImageSize must be positive")
	}
	return func(e *Extractor) {
		e.maxSize = n
	}
}

// WithMaxEngines caps how many engine calls may run at once, counting calls
// still running after their context ended. Defaults to MaxPoolSize.
// Panics if n <= 0 (programmer error).
func WithMaxEngines(n int) ExtractorOption {
	if n <= 0 {
		panic("tgpdf: WithMaxEngines must be positive")
	}
	return func(e *Extractor) {
		e.maxEngines = n
	}
}

// Extractor turns image bytes into an ExtractionResult.
type Extractor struct {
	rec        Recognizer
	lang       string
	maxSize    int
	maxEngines int
	engines    chan struct{}
}

// NewExtractor creates an Extractor backed by rec.
func NewExtractor(rec Recognizer, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		rec:        rec,
		lang:       DefaultOCRLanguage,
		maxSize:    DefaultMaxImageSize,
		maxEngines: MaxPoolSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.engines = make(chan struct{}, e.maxEngines)
	return e
}

// Language returns the OCR language hint.
func (e *Extractor) Language() string {
	return e.lang
}

// Extract runs OCR exactly once.
// Whitespace-only output is ExtractionEmpty; engine errors, undecodable images,
// oversized input and context cancellation are ExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, image []byte, mime string) ExtractionResult {
	if len(image) == 0 {
		return failed(fmt.Errorf("%w: empty image", ErrExtractionFailed))
	}
	if len(image) > e.maxSize {
		return failed(fmt.Errorf("%w: %w: %d bytes (max %d)", ErrExtractionFailed, ErrImageTooLarge, len(image), e.maxSize))
	}

	img, err := normalizeImage(image, mime)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrExtractionFailed, err))
	}

	text, err := e.recognize(ctx, img)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrExtractionFailed, err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ExtractionResult{Status: ExtractionEmpty}
	}
	return ExtractionResult{Status: ExtractionText, Text: text}
}

type recognition struct {
	text string
	err  error
}

// recognize runs the engine on its own goroutine so a cancelled context
// releases the task even when the engine itself ignores it. The engine slot
// is held until the goroutine returns, not until the task gives up.
func (e *Extractor) recognize(ctx context.Context, img []byte) (string, error) {
	select {
	case e.engines <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	done := make(chan recognition, 1)
	go func() {
		defer func() { <-e.engines }()
		defer func() {
			if rec := recover(); rec != nil {
				done <- recognition{err: fmt.Errorf("ocr engine panic: %v", rec)}
			}
		}()
		text, err := e.rec.Recognize(ctx, img, e.lang)
		done <- recognition{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func failed(err error) ExtractionResult {
	return ExtractionResult{Status: ExtractionFailed, Err: err}
}
