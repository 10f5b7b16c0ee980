package tgpdf

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/image/font/gofont/goregular"
)

// fixedTime keeps rendered output byte-stable across runs.
var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

// unicodeFontPath writes Go Regular (which covers Cyrillic) to a temp file
// standing in for DejaVuSans.ttf.
func unicodeFontPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DejaVuSans.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0600); err != nil {
		t.Fatalf("writing font: %v", err)
	}
	return path
}

func unicodeFont(t *testing.T) FontChoice {
	t.Helper()
	return FontChoice{Family: PreferredUnicode, Name: UnicodeFontName, Data: goregular.TTF}
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return l, hook
}

// readPDF parses a rendered document.
func readPDF(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parsing PDF: %v", err)
	}
	return r
}

// utf16Text is how the writer stores Unicode text in an uncompressed content stream.
func utf16Text(s string) []byte {
	var b []byte
	for _, r := range s {
		b = append(b, byte(r>>8), byte(r))
	}
	return b
}

// dirEntries lists the names in dir.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type sentText struct {
	chatID int64
	id     int
	text   string
}

type sentDoc struct {
	chatID   int64
	filename string
	caption  string
	data     []byte
	liveArts []string // files in the temp dir while sending
}

type fakeMessenger struct {
	mu sync.Mutex

	tempDir     string
	image       []byte
	downloadErr error
	sendErr     error
	docErr      error
	editErr     error
	deleteErr   error

	nextID    int
	texts     []sentText
	edits     map[int]string
	deleted   []int
	docs      []sentDoc
	downloads int
}

func newFakeMessenger(tempDir string) *fakeMessenger {
	return &fakeMessenger{tempDir: tempDir, image: []byte("jpeg-bytes"), nextID: 100, edits: map[int]string{}}
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	m.texts = append(m.texts, sentText{chatID: chatID, id: m.nextID, text: text})
	return m.nextID, nil
}

func (m *fakeMessenger) EditText(_ context.Context, _ int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits[messageID] = text
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) SendDocument(_ context.Context, chatID int64, filename, caption string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var live []string
	if m.tempDir != "" {
		entries, _ := os.ReadDir(m.tempDir)
		for _, e := range entries {
			live = append(live, e.Name())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docErr != nil {
		return m.docErr
	}
	m.docs = append(m.docs, sentDoc{chatID: chatID, filename: filename, caption: caption, data: data, liveArts: live})
	return nil
}

func (m *fakeMessenger) Download(_ context.Context, _ string, w io.Writer) error {
	m.mu.Lock()
	m.downloads++
	err, data := m.downloadErr, m.image
	m.mu.Unlock()
	if err != nil {
		return err
	}
	_, werr := w.Write(data)
	return werr
}

// textsSent returns the texts of every SendText call.
func (m *fakeMessenger) textsSent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.texts))
	for _, s := range m.texts {
		out = append(out, s.text)
	}
	return out
}

// fakeRecognizer returns canned text and counts calls.
type fakeRecognizer struct {
	mu    sync.Mutex
	text  string
	err   error
	block bool
	calls int
	langs []string
}

func (r *fakeRecognizer) Recognize(ctx context.Context, _ []byte, lang string) (string, error) {
	r.mu.Lock()
	r.calls++
	r.langs = append(r.langs, lang)
	block := r.block
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

func (r *fakeRecognizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// staticFonts always returns the same choice.
type staticFonts struct{ choice FontChoice }

func (s staticFonts) Resolve() FontChoice { return s.choice }

// countingRenderer wraps a renderer and can inject faults.
type countingRenderer struct {
	mu    sync.Mutex
	inner DocumentRenderer
	err   error
	panic bool
	calls int
}

func (r *countingRenderer) Render(ctx context.Context, req RenderRequest, font FontChoice) (*RenderedDocument, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.panic {
		panic("renderer exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.inner.Render(ctx, req, font)
}

func (r *countingRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
