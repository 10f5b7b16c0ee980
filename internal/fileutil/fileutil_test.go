package fileutil_test

// Notes:
// - WriteTempFile: the Write and Close error branches are not tested because
//   triggering disk write failures is platform-specific.
// - SweepOlderThan: file ages are set with os.Chtimes so no test sleeps.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tgpdf/tgpdf/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{
			name:      "valid extension pdf",
			extension: "pdf",
			wantErr:   nil,
		},
		{
			name:      "valid extension jpg",
			extension: "jpg",
			wantErr:   nil,
		},
		{
			name:      "empty extension",
			extension: "",
			wantErr:   fileutil.ErrExtensionEmpty,
		},
		{
			name:      "forward slash path traversal",
			extension: "../etc/passwd",
			wantErr:   fileutil.ErrExtensionPathTraversal,
		},
		{
			name:      "backslash path traversal",
			extension: "..\\windows\\system32",
			wantErr:   fileutil.ErrExtensionPathTraversal,
		},
		{
			name:      "null byte injection",
			extension: "pdf\x00exe",
			wantErr:   fileutil.ErrExtensionPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) error = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCreateTemp - Temp file naming
// ---------------------------------------------------------------------------

func TestCreateTemp(t *testing.T) {
	t.Parallel()

	t.Run("creates file with prefix and extension in dir", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		f, err := fileutil.CreateTemp(dir, "tgpdf-output-", "pdf")
		if err != nil {
			t.Fatalf("CreateTemp() error = %v", err)
		}
		defer f.Close()

		if filepath.Dir(f.Name()) != dir {
			t.Errorf("file dir = %q, want %q", filepath.Dir(f.Name()), dir)
		}
		base := filepath.Base(f.Name())
		if !strings.HasPrefix(base, "tgpdf-output-") {
			t.Errorf("name %q does not start with prefix", base)
		}
		if !strings.HasSuffix(base, ".pdf") {
			t.Errorf("name %q does not end with .pdf", base)
		}
	})

	t.Run("rejects separator in prefix", func(t *testing.T) {
		t.Parallel()

		_, err := fileutil.CreateTemp(t.TempDir(), "../escape-", "pdf")
		if !errors.Is(err, fileutil.ErrExtensionPathTraversal) {
			t.Errorf("CreateTemp() error = %v, want ErrExtensionPathTraversal", err)
		}
	})

	t.Run("missing dir is reported", func(t *testing.T) {
		t.Parallel()

		_, err := fileutil.CreateTemp(filepath.Join(t.TempDir(), "missing"), "tgpdf-", "pdf")
		if err == nil {
			t.Fatal("expected error for missing dir")
		}
		if !strings.Contains(err.Error(), "creating temp file") {
			t.Errorf("error = %q, want error containing 'creating temp file'", err.Error())
		}
	})
}

// ---------------------------------------------------------------------------
// TestWriteTempFile - Content and cleanup
// ---------------------------------------------------------------------------

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   []byte
		extension string
	}{
		{"pdf bytes", []byte("%PDF-1.3\n%%EOF"), "pdf"},
		{"empty content", nil, "txt"},
		{"large content", []byte(strings.Repeat("x", 1<<20)), "bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path, cleanup, err := fileutil.WriteTempFile(t.TempDir(), "tgpdf-", tt.extension, tt.content)
			if err != nil {
				t.Fatalf("WriteTempFile() error = %v", err)
			}
			defer cleanup()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read temp file: %v", err)
			}
			if len(data) != len(tt.content) {
				t.Errorf("file size = %d, want %d", len(data), len(tt.content))
			}
		})
	}
}

func TestWriteTempFile_Cleanup(t *testing.T) {
	t.Parallel()

	path, cleanup, err := fileutil.WriteTempFile(t.TempDir(), "tgpdf-", "txt", []byte("content"))
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}

	cleanup()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still exists after cleanup at %s", path)
	}
}

func TestWriteTempFile_InvalidExtension(t *testing.T) {
	t.Parallel()

	_, cleanup, err := fileutil.WriteTempFile(t.TempDir(), "tgpdf-", "", []byte("x"))
	if cleanup != nil {
		defer cleanup()
	}
	if !errors.Is(err, fileutil.ErrExtensionEmpty) {
		t.Errorf("WriteTempFile() error = %v, want ErrExtensionEmpty", err)
	}
}

// ---------------------------------------------------------------------------
// TestRemoveIfExists - Idempotent removal
// ---------------------------------------------------------------------------

func TestRemoveIfExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.pdf")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fileutil.RemoveIfExists(path); err != nil {
		t.Fatalf("first removal error = %v", err)
	}
	if err := fileutil.RemoveIfExists(path); err != nil {
		t.Errorf("second removal error = %v, want nil", err)
	}
	if err := fileutil.RemoveIfExists(""); err != nil {
		t.Errorf("empty path error = %v, want nil", err)
	}
	if fileutil.FileExists(path) {
		t.Error("file still exists")
	}
}

// ---------------------------------------------------------------------------
// TestSweepOlderThan - Orphan removal by prefix and age
// ---------------------------------------------------------------------------

func TestSweepOlderThan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	write := func(name string, mtime time.Time) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
		return p
	}

	stale := write("tgpdf-download-1.jpg", old)
	fresh := write("tgpdf-output-2.pdf", now)
	foreign := write("other-3.pdf", old)
	if err := os.Mkdir(filepath.Join(dir, "tgpdf-dir"), 0700); err != nil {
		t.Fatalf("setup: %v", err)
	}

	removed, err := fileutil.SweepOlderThan(dir, "tgpdf-", time.Hour, now)
	if err != nil {
		t.Fatalf("SweepOlderThan() error = %v", err)
	}

	if len(removed) != 1 || removed[0] != stale {
		t.Errorf("removed = %v, want [%s]", removed, stale)
	}
	if fileutil.FileExists(stale) {
		t.Error("stale file still exists")
	}
	if !fileutil.FileExists(fresh) {
		t.Error("fresh file was removed")
	}
	if !fileutil.FileExists(foreign) {
		t.Error("file without prefix was removed")
	}
}

func TestSweepOlderThan_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty prefix", func(t *testing.T) {
		t.Parallel()

		_, err := fileutil.SweepOlderThan(t.TempDir(), "", time.Hour, time.Now())
		if !errors.Is(err, fileutil.ErrPrefixEmpty) {
			t.Errorf("error = %v, want ErrPrefixEmpty", err)
		}
	})

	t.Run("missing dir", func(t *testing.T) {
		t.Parallel()

		_, err := fileutil.SweepOlderThan(filepath.Join(t.TempDir(), "nope"), "tgpdf-", time.Hour, time.Now())
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want os.ErrNotExist", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestFileExists - File existence check
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("content"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	testDir := filepath.Join(tempDir, "testdir")
	if err := os.Mkdir(testDir, 0755); err != nil {
		t.Fatalf("failed to create test dir: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file returns true", testFile, true},
		{"directory returns false", testDir, false},
		{"nonexistent path returns false", filepath.Join(tempDir, "nonexistent"), false},
		{"empty path returns false", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := fileutil.FileExists(tt.path)
			if got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsFilePath / TestIsURL - String classification
// ---------------------------------------------------------------------------

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"tgpdf", false},
		{"./tgpdf.yaml", true},
		{"/etc/tgpdf/config.yaml", true},
		{"C:\\tgpdf\\config.yaml", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.IsFilePath(tt.input); got != tt.want {
				t.Errorf("IsFilePath(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"https://bot.example.com", true},
		{"http://localhost:5000", true},
		{"bot.example.com", false},
		{"ftp://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.IsURL(tt.input); got != tt.want {
				t.Errorf("IsURL(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
