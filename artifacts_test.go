package tgpdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArtifactScope_CreateAndClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, _ := quietLogger()
	scope := NewArtifactScope(dir, logger)

	dl, f, err := scope.Create(ArtifactDownload, "jpg")
	if err != nil {
		t.Fatalf("Create(download) error = %v", err)
	}
	f.Close()

	out, err := scope.Write(ArtifactOutput, "pdf", []byte("%PDF-1.3"))
	if err != nil {
		t.Fatalf("Write(output) error = %v", err)
	}

	for _, a := range []*Artifact{dl, out} {
		base := filepath.Base(a.Path)
		if !strings.HasPrefix(base, ArtifactPrefix+a.Kind.String()+"-"+a.ID.String()) {
			t.Errorf("artifact name %q lacks prefix and id", base)
		}
		if filepath.Dir(a.Path) != dir {
			t.Errorf("artifact %q not in %q", a.Path, dir)
		}
	}
	if !strings.HasSuffix(dl.Path, ".jpg") || !strings.HasSuffix(out.Path, ".pdf") {
		t.Errorf("extensions not kept: %q, %q", dl.Path, out.Path)
	}
	if got := scope.Live(); got != 2 {
		t.Errorf("Live() = %d, want 2", got)
	}

	scope.Close()
	if got := scope.Live(); got != 0 {
		t.Errorf("Live() after Close = %d, want 0", got)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Errorf("files left after Close: %v", names)
	}

	// Idempotent, and refuses further work.
	scope.Close()
	if _, _, err := scope.Create(ArtifactDownload, "jpg"); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("Create() after Close error = %v, want ErrScopeClosed", err)
	}
}

func TestArtifactScope_OnePerKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scope := NewArtifactScope(dir, nil)
	defer scope.Close()

	first, err := scope.Write(ArtifactOutput, "pdf", []byte("a"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := scope.Write(ArtifactOutput, "pdf", []byte("b")); !errors.Is(err, ErrArtifactExists) {
		t.Errorf("second Write() error = %v, want ErrArtifactExists", err)
	}

	// Releasing frees the slot.
	scope.Release(first)
	if _, err := scope.Write(ArtifactOutput, "pdf", []byte("c")); err != nil {
		t.Errorf("Write() after Release error = %v", err)
	}
}

func TestArtifactScope_Release(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scope := NewArtifactScope(dir, nil)
	defer scope.Close()

	a, err := scope.Write(ArtifactDownload, "png", []byte("img"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	scope.Release(a)
	if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
		t.Errorf("artifact still exists after Release: %v", err)
	}

	// nil and repeated releases are no-ops.
	scope.Release(a)
	scope.Release(nil)
	if got := scope.Live(); got != 0 {
		t.Errorf("Live() = %d, want 0", got)
	}
}

func TestArtifactScope_ExternallyRemovedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, hook := quietLogger()
	scope := NewArtifactScope(dir, logger)

	a, err := scope.Write(ArtifactOutput, "pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := os.Remove(a.Path); err != nil {
		t.Fatal(err)
	}

	scope.Close()
	if len(hook.AllEntries()) != 0 {
		t.Errorf("missing file was reported as a cleanup failure: %v", hook.LastEntry().Message)
	}
}

func TestArtifactScope_BadExtension(t *testing.T) {
	t.Parallel()

	scope := NewArtifactScope(t.TempDir(), nil)
	defer scope.Close()

	if _, err := scope.Write(ArtifactDownload, "../evil", []byte("x")); err == nil {
		t.Error("Write() with traversal extension succeeded")
	}
	if got := scope.Live(); got != 0 {
		t.Errorf("Live() = %d, want 0", got)
	}
}

func TestSweepOrphans(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	write := func(name string, mtime time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return path
	}

	stale := write(ArtifactPrefix+"download-stale.jpg", old)
	fresh := write(ArtifactPrefix+"output-fresh.pdf", time.Now())
	foreign := write("someone-else.tmp", old)

	logger, hook := quietLogger()
	if got := SweepOrphans(dir, DefaultOrphanTTL, logger); got != 1 {
		t.Errorf("SweepOrphans() = %d, want 1", got)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale artifact was not removed")
	}
	for _, keep := range []string{fresh, foreign} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s was removed: %v", filepath.Base(keep), err)
		}
	}
	if entry := hook.LastEntry(); entry == nil || entry.Message != "swept orphaned artifacts" {
		t.Error("sweep was not logged")
	}
}

func TestRunSweeper_StopsWithContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ArtifactPrefix+"output-old.pdf")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	logger, _ := quietLogger()
	go func() {
		RunSweeper(ctx, dir, time.Minute, time.Hour, logger)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunSweeper did not stop")
	}
}

func TestArtifactKind_String(t *testing.T) {
	t.Parallel()

	if ArtifactDownload.String() != "download" || ArtifactOutput.String() != "output" {
		t.Errorf("kinds = %q, %q", ArtifactDownload, ArtifactOutput)
	}
}
