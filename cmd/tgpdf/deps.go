package main

import (
	"io"
	"net"
	"net/http"
	"os"

	"github.com/tgpdf/tgpdf"
)

// ocrEngine recognizes text and can report whether it is installed.
type ocrEngine interface {
	tgpdf.Recognizer
	Check(lang string) (version string, err error)
}

// Dependencies holds injectable dependencies for testability.
type Dependencies struct {
	Stdout io.Writer
	Stderr io.Writer

	// NewOCR builds the OCR backend.
	NewOCR func() ocrEngine

	// Listen opens the HTTP listener.
	Listen func(network, addr string) (net.Listener, error)

	// HTTPClient is used for bot API calls (nil = telegram.NewHTTPClient).
	HTTPClient *http.Client
}

// DefaultDeps returns production dependencies.
func DefaultDeps() *Dependencies {
	return &Dependencies{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewOCR: newOCREngine,
		Listen: net.Listen,
	}
}
