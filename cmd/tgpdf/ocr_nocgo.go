//go:build !cgo

package main

import (
	"context"
	"fmt"
)

// unavailableOCR stands in for tesseract in binaries built without cgo.
// Text messages still work; image messages fail with an extraction error.
type unavailableOCR struct{}

func newOCREngine() ocrEngine {
	return unavailableOCR{}
}

func (unavailableOCR) Recognize(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("%w: binary built without cgo", ErrOCRUnavailable)
}

func (unavailableOCR) Check(string) (string, error) {
	return "", fmt.Errorf("%w: binary built without cgo", ErrOCRUnavailable)
}
