// Package tesseract is the libtesseract OCR backend. It needs cgo and the
// tesseract development headers; without cgo the package is empty and the
// binary reports OCR as unavailable. The core package only sees tgpdf.Recognizer.
package tesseract
