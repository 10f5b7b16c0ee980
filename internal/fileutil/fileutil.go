// Package fileutil provides temp file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrPrefixEmpty            = errors.New("sweep prefix cannot be empty")
)

// CreateTemp creates a temp file named <prefix>*.<extension> in dir.
// An empty dir means os.TempDir().
func CreateTemp(dir, prefix, extension string) (*os.File, error) {
	if err := ValidateExtension(extension); err != nil {
		return nil, err
	}
	if strings.ContainsAny(prefix, "/\\\x00") {
		return nil, fmt.Errorf("%w: prefix %q", ErrExtensionPathTraversal, prefix)
	}

	f, err := os.CreateTemp(dir, prefix+"*."+extension)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return f, nil
}

// WriteTempFile creates a temp file in dir holding content.
// Returns the file path and a cleanup function to remove the file.
func WriteTempFile(dir, prefix, extension string, content []byte) (path string, cleanup func(), err error) {
	tmpFile, err := CreateTemp(dir, prefix, extension)
	if err != nil {
		return "", nil, err
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.Write(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// RemoveIfExists deletes path. A path that is already gone is not an error.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SweepOlderThan removes regular files in dir whose name starts with prefix and
// whose modification time is older than ttl relative to now.
// Returns the removed paths and every removal error joined.
func SweepOlderThan(dir, prefix string, ttl time.Duration, now time.Time) ([]string, error) {
	if prefix == "" {
		return nil, ErrPrefixEmpty
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var (
		removed []string
		errs    []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= ttl {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		if err := RemoveIfExists(fullPath); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, fullPath)
	}

	return removed, errors.Join(errs...)
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "tgpdf" -> false (name)
//   - "./tgpdf.yaml" -> true (relative path)
//   - "/etc/tgpdf/config.yaml" -> true (absolute)
//   - "C:\tgpdf\config.yaml" -> true (Windows)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like an http(s) URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
