package tgpdf

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tgpdf/tgpdf/internal/fileutil"
)

// ArtifactPrefix starts the name of every temp file the service creates.
const ArtifactPrefix = "tgpdf-"

// DefaultOrphanTTL is how old a leftover artifact must be before it is swept.
const DefaultOrphanTTL = 90 * time.Minute

// ArtifactKind tells downloaded input from generated output.
type ArtifactKind int

// Artifact kinds.
const (
	ArtifactDownload ArtifactKind = iota
	ArtifactOutput
)

func (k ArtifactKind) String() string {
	if k == ArtifactDownload {
		return "download"
	}
	return "output"
}

// Artifact is a temp file owned by exactly one ArtifactScope.
type Artifact struct {
	ID        uuid.UUID
	Path      string
	Kind      ArtifactKind
	CreatedAt time.Time
}

// ArtifactScope tracks the temp files of one task and removes them on Close.
// A scope holds at most one artifact per kind.
type ArtifactScope struct {
	dir    string
	logger logrus.FieldLogger

	mu     sync.Mutex
	live   map[ArtifactKind]*Artifact
	closed bool
}

// NewArtifactScope creates a scope writing into dir (empty = os.TempDir()).
func NewArtifactScope(dir string, logger logrus.FieldLogger) *ArtifactScope {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ArtifactScope{
		dir:    dir,
		logger: logger,
		live:   make(map[ArtifactKind]*Artifact, 2),
	}
}

// Create opens a new temp file of the given kind. The caller writes and closes
// the file; the scope owns its removal.
func (s *ArtifactScope) Create(kind ArtifactKind, ext string) (*Artifact, *os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrScopeClosed
	}
	if _, ok := s.live[kind]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrArtifactExists, kind)
	}

	id := uuid.New()
	f, err := fileutil.CreateTemp(s.dir, fmt.Sprintf("%s%s-%s-", ArtifactPrefix, kind, id), ext)
	if err != nil {
		return nil, nil, err
	}

	a := &Artifact{ID: id, Path: f.Name(), Kind: kind, CreatedAt: time.Now()}
	s.live[kind] = a
	return a, f, nil
}

// Write creates an artifact holding data. A failed write removes the file.
func (s *ArtifactScope) Write(kind ArtifactKind, ext string, data []byte) (*Artifact, error) {
	a, f, err := s.Create(kind, ext)
	if err != nil {
		return nil, err
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		s.Release(a)
		if werr != nil {
			return nil, fmt.Errorf("writing %s artifact: %w", kind, werr)
		}
		return nil, fmt.Errorf("closing %s artifact: %w", kind, cerr)
	}
	return a, nil
}

// Release removes an artifact. Releasing nil, an unknown or an already
// released artifact is a no-op. Removal failures are logged, never returned.
func (s *ArtifactScope) Release(a *Artifact) {
	if a == nil {
		return
	}

	s.mu.Lock()
	if cur, ok := s.live[a.Kind]; ok && cur.ID == a.ID {
		delete(s.live, a.Kind)
	}
	s.mu.Unlock()

	s.remove(a)
}

// Close releases every live artifact and refuses further creation.
// Safe to call more than once; meant for defer.
func (s *ArtifactScope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	live := make([]*Artifact, 0, len(s.live))
	for kind, a := range s.live {
		live = append(live, a)
		delete(s.live, kind)
	}
	s.mu.Unlock()

	for _, a := range live {
		s.remove(a)
	}
}

// Live returns the number of artifacts not yet released.
func (s *ArtifactScope) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *ArtifactScope) remove(a *Artifact) {
	if err := fileutil.RemoveIfExists(a.Path); err != nil {
		s.logger.WithFields(logrus.Fields{
			"artifact": a.ID.String(),
			"kind":     a.Kind.String(),
			"path":     a.Path,
		}).WithError(fmt.Errorf("%w: %v", ErrCleanupFailed, err)).Error("artifact cleanup failed")
	}
}

// SweepOrphans removes artifacts older than ttl left in dir by a previous
// process. It returns the number of files removed.
func SweepOrphans(dir string, ttl time.Duration, logger logrus.FieldLogger) int {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	removed, err := fileutil.SweepOlderThan(dir, ArtifactPrefix, ttl, time.Now())
	if err != nil {
		logger.WithField("dir", dir).WithError(err).Warn("orphan sweep incomplete")
	}
	if len(removed) > 0 {
		logger.WithFields(logrus.Fields{"dir": dir, "removed": len(removed)}).Info("swept orphaned artifacts")
	}
	return len(removed)
}

// RunSweeper sweeps dir once immediately and then every interval until ctx ends.
func RunSweeper(ctx context.Context, dir string, ttl, interval time.Duration, logger logrus.FieldLogger) {
	SweepOrphans(dir, ttl, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			SweepOrphans(dir, ttl, logger)
		}
	}
}
