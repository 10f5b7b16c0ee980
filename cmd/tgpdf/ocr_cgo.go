//go:build cgo

package main

import "github.com/tgpdf/tgpdf/internal/tesseract"

// newOCREngine returns the libtesseract backend.
func newOCREngine() ocrEngine {
	return tesseract.New()
}
