//go:build cgo

package tesseract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ErrLanguageMissing is returned by Check when trained data for a requested
// language is not installed.
var ErrLanguageMissing = errors.New("tesseract language data not installed")

// Engine recognizes text with a fresh gosseract client per call. Clients are
// not shared, so one Engine serves concurrent tasks.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     func() ([]string, error)
}

// New creates an Engine backed by libtesseract.
func New() *Engine {
	return &Engine{
		clientFactory: gosseract.NewClient,
		languages:     gosseract.GetAvailableLanguages,
	}
}

// Recognize runs OCR on one image. lang is a "+"-joined language list such as
// "ukr+eng". The context is checked before the engine starts; libtesseract
// itself cannot be interrupted.
func (e *Engine) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if langs := splitLanguages(lang); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Check reports the library version and verifies that every language in lang
// has trained data installed.
func (e *Engine) Check(lang string) (version string, err error) {
	c := e.clientFactory()
	defer c.Close()
	version = c.Version()

	installed, err := e.languages()
	if err != nil {
		return version, fmt.Errorf("listing languages: %w", err)
	}
	var missing []string
	for _, l := range splitLanguages(lang) {
		if !slices.Contains(installed, l) {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		return version, fmt.Errorf("%w: %s", ErrLanguageMissing, strings.Join(missing, ", "))
	}
	return version, nil
}

func splitLanguages(lang string) []string {
	var out []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
