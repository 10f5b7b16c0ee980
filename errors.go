package tgpdf

import "errors"

// Sentinel errors for pipeline operations.
var (
	ErrUnsupportedInput   = errors.New("unsupported input")
	ErrEmptyText          = errors.New("text content cannot be empty")
	ErrDownloadFailed     = errors.New("file download failed")
	ErrExtractionEmpty    = errors.New("no text recognized")
	ErrExtractionFailed   = errors.New("text extraction failed")
	ErrRenderFailed       = errors.New("PDF rendering failed")
	ErrTransmissionFailed = errors.New("reply transmission failed")
	ErrCleanupFailed      = errors.New("artifact cleanup failed")

	// Artifact lifecycle errors.
	ErrArtifactExists = errors.New("artifact of this kind already exists in scope")
	ErrScopeClosed    = errors.New("artifact scope is closed")

	// Task pool errors.
	ErrPoolSaturated = errors.New("task pool saturated")
	ErrPoolClosed    = errors.New("task pool closed")

	// Input validation errors.
	ErrImageTooLarge = errors.New("image exceeds maximum size")
)
