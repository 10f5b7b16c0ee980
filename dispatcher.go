package tgpdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultCleanupTimeout bounds notice resolution after the task context ended.
const DefaultCleanupTimeout = 10 * time.Second

// Messenger is the chat platform as seen by the dispatcher.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (messageID int, err error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	SendDocument(ctx context.Context, chatID int64, filename, caption string, r io.Reader) error
	Download(ctx context.Context, fileID string, w io.Writer) error
}

// FontSource picks the font for a render.
type FontSource interface {
	Resolve() FontChoice
}

// DocumentRenderer turns text into a PDF.
type DocumentRenderer interface {
	Render(ctx context.Context, req RenderRequest, font FontChoice) (*RenderedDocument, error)
}

// Compile-time interface implementation checks.
var (
	_ FontSource       = (*FontResolver)(nil)
	_ DocumentRenderer = (*Renderer)(nil)
	_ Recognizer       = RecognizerFunc(nil)
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFontSource replaces the default FontResolver.
func WithFontSource(f FontSource) Option {
	return func(d *Dispatcher) {
		d.fonts = f
	}
}

// WithRenderer replaces the default Renderer.
func WithRenderer(r DocumentRenderer) Option {
	return func(d *Dispatcher) {
		d.renderer = r
	}
}

// WithTempDir sets where artifacts are written (empty = os.TempDir()).
func WithTempDir(dir string) Option {
	return func(d *Dispatcher) {
		d.tempDir = dir
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithCleanupTimeout bounds notice resolution once a task is over.
// Panics if d <= 0 (programmer error).
func WithCleanupTimeout(t time.Duration) Option {
	if t <= 0 {
		panic("tgpdf: WithCleanupTimeout duration must be positive")
	}
	return func(d *Dispatcher) {
		d.cleanupTimeout = t
	}
}

// Dispatcher runs the per-update state machine:
// Received, Classified, ImagePath or TextPath, Rendering, Replying, Done,
// with a Failed terminal reachable from every step.
type Dispatcher struct {
	messenger      Messenger
	extractor      *Extractor
	fonts          FontSource
	renderer       DocumentRenderer
	tempDir        string
	logger         logrus.FieldLogger
	cleanupTimeout time.Duration
}

// NewDispatcher creates a Dispatcher replying through m and reading images with ex.
func NewDispatcher(m Messenger, ex *Extractor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		messenger:      m,
		extractor:      ex,
		logger:         logrus.StandardLogger(),
		cleanupTimeout: DefaultCleanupTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fonts == nil {
		d.fonts = NewFontResolver(WithFontLogger(d.logger))
	}
	if d.renderer == nil {
		d.renderer = NewRenderer()
	}
	return d
}

// Handle processes one update to a terminal state. Every artifact created on
// the way is removed before Handle returns, whatever the outcome, and the
// processing notice is either deleted or overwritten. Errors never escape:
// they are reported in the Outcome and to the chat.
func (d *Dispatcher) Handle(ctx context.Context, u Update) (out Outcome) {
	msg := Classify(u)
	t := &task{
		d:   d,
		msg: msg,
		log: d.logger.WithFields(logrus.Fields{
			"update_id": u.UpdateID,
			"chat_id":   u.ChatID,
			"kind":      msg.Kind.String(),
		}),
	}
	t.scope = NewArtifactScope(d.tempDir, t.log)
	defer t.scope.Close()
	defer func() {
		if r := recover(); r != nil {
			out = t.finish(ctx, Outcome{Stage: out.Stage, Kind: msg.Kind, Err: fmt.Errorf("internal error: %v", r)})
		}
		t.logOutcome(out)
	}()

	out = Outcome{Stage: StageClassified, Kind: msg.Kind}
	switch msg.Kind {
	case KindPhoto, KindImageDocument:
		return t.imagePath(ctx)
	case KindText:
		return t.textPath(ctx)
	case KindCommand:
		if msg.Command == "start" || msg.Command == "help" {
			t.say(ctx, MsgGreeting)
		}
		out.Stage = StageDone
		return out
	case KindUnsupported:
		t.say(ctx, MsgSendImage)
		out.Err = fmt.Errorf("%w: %s", ErrUnsupportedInput, msg.Reason)
		return out
	default:
		out.Stage = StageDone
		return out
	}
}

// task is the state of one update. notice is the processing message, zero
// until sent and reset once resolved.
type task struct {
	d      *Dispatcher
	msg    InboundMessage
	log    logrus.FieldLogger
	scope  *ArtifactScope
	notice int
}

func (t *task) imagePath(ctx context.Context) Outcome {
	t.sendNotice(ctx)
	out := Outcome{Stage: StageImagePath, Kind: t.msg.Kind}

	data, err := t.download(ctx)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrDownloadFailed, err)
		return t.finish(ctx, out)
	}

	if t.d.extractor == nil {
		out.Err = fmt.Errorf("%w: no OCR engine configured", ErrExtractionFailed)
		return t.finish(ctx, out)
	}

	res := t.d.extractor.Extract(ctx, data, t.msg.MimeType)
	switch res.Status {
	case ExtractionEmpty:
		t.say(ctx, MsgNoTextRecognized)
		out.Stage = StageDone
		return t.finish(ctx, out)
	case ExtractionFailed:
		out.Err = res.Err
		return t.finish(ctx, out)
	}

	return t.finish(ctx, t.render(ctx, res.Text))
}

// download fetches the image into a Download artifact and reads it back.
// The artifact is released as soon as its bytes are in memory.
func (t *task) download(ctx context.Context) ([]byte, error) {
	if t.d.extractor != nil && t.msg.FileSize > t.d.extractor.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, t.msg.FileSize)
	}

	a, f, err := t.scope.Create(ArtifactDownload, downloadExtension(t.msg))
	if err != nil {
		return nil, err
	}
	defer t.scope.Release(a)

	var w io.Writer = f
	if t.d.extractor != nil {
		w = &limitWriter{w: f, remaining: t.d.extractor.maxSize}
	}
	err = t.d.messenger.Download(ctx, t.msg.FileID, w)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	return os.ReadFile(a.Path)
}

func (t *task) textPath(ctx context.Context) Outcome {
	content := strings.TrimSpace(t.msg.Text)
	if content == "" {
		t.say(ctx, MsgEmptyText)
		return Outcome{Stage: StageTextPath, Kind: t.msg.Kind, Err: ErrEmptyText}
	}

	t.sendNotice(ctx)
	return t.finish(ctx, t.render(ctx, content))
}

func (t *task) render(ctx context.Context, content string) Outcome {
	out := Outcome{Stage: StageRendering, Kind: t.msg.Kind}

	font := t.d.fonts.Resolve()
	doc, err := t.d.renderer.Render(ctx, RenderRequest{Content: content, PreferredFontFamily: font.Name}, font)
	if err != nil {
		if !errors.Is(err, ErrRenderFailed) {
			err = fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
		out.Err = err
		return out
	}
	doc.Filename = outputFilename(t.msg)
	t.log.WithFields(logrus.Fields{"pages": doc.Pages, "font": font.Family.String()}).Debug("rendered document")

	return t.reply(ctx, doc)
}

// reply stores the PDF in an Output artifact and sends it. The artifact is
// released whether or not the send succeeds.
func (t *task) reply(ctx context.Context, doc *RenderedDocument) Outcome {
	out := Outcome{Stage: StageReplying, Kind: t.msg.Kind}

	a, err := t.scope.Write(ArtifactOutput, "pdf", doc.PDF)
	if err != nil {
		out.Err = fmt.Errorf("%w: %v", ErrRenderFailed, err)
		return out
	}
	defer t.scope.Release(a)

	f, err := os.Open(a.Path)
	if err != nil {
		out.Err = fmt.Errorf("%w: %v", ErrRenderFailed, err)
		return out
	}
	defer f.Close()

	if err := t.d.messenger.SendDocument(ctx, t.msg.ChatID, doc.Filename, caption(t.msg.Kind), f); err != nil {
		out.Err = fmt.Errorf("%w: %v", ErrTransmissionFailed, err)
		return out
	}

	out.Stage = StageDone
	out.Delivered = true
	return out
}

func (t *task) sendNotice(ctx context.Context) {
	id, err := t.d.messenger.SendText(ctx, t.msg.ChatID, processingNotice(t.msg))
	if err != nil {
		t.log.WithError(err).Warn("processing notice not sent")
		return
	}
	t.notice = id
}

// finish resolves the processing notice exactly once: deleted when the task
// succeeded, found nothing or could not deliver, overwritten with the failure
// text otherwise. It runs on a context detached from task cancellation.
func (t *task) finish(ctx context.Context, out Outcome) Outcome {
	if t.notice == 0 {
		return out
	}
	id := t.notice
	t.notice = 0

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.d.cleanupTimeout)
	defer cancel()

	if out.Err == nil || errors.Is(out.Err, ErrTransmissionFailed) {
		if err := t.d.messenger.Delete(cctx, t.msg.ChatID, id); err != nil {
			t.log.WithError(err).Warn("processing notice not deleted")
		}
		return out
	}

	if err := t.d.messenger.EditText(cctx, t.msg.ChatID, id, failureText(t.msg.Kind, out.Err)); err != nil {
		t.log.WithError(err).Warn("processing notice not updated")
	}
	return out
}

// say sends a standalone reply; delivery errors are only logged.
func (t *task) say(ctx context.Context, text string) {
	if _, err := t.d.messenger.SendText(ctx, t.msg.ChatID, text); err != nil {
		t.log.WithError(fmt.Errorf("%w: %v", ErrTransmissionFailed, err)).Warn("reply not sent")
	}
}

func (t *task) logOutcome(out Outcome) {
	entry := t.log.WithFields(logrus.Fields{
		"stage":     out.Stage.String(),
		"delivered": out.Delivered,
	})
	switch {
	case out.Err == nil && out.Kind == KindOther:
		entry.Debug("update ignored")
	case out.Err == nil:
		entry.Info("update handled")
	case errors.Is(out.Err, ErrUnsupportedInput), errors.Is(out.Err, ErrEmptyText):
		entry.WithError(out.Err).Info("update rejected")
	default:
		entry.WithError(out.Err).Error("update failed")
	}
}

// downloadExtension keeps the source extension for documents, jpg for photos.
func downloadExtension(msg InboundMessage) string {
	if msg.Kind == KindImageDocument {
		if i := strings.LastIndexByte(msg.FileName, '.'); i >= 0 && i < len(msg.FileName)-1 {
			ext := strings.ToLower(msg.FileName[i+1:])
			if !strings.ContainsAny(ext, "/\\\x00") {
				return ext
			}
		}
		return "dat"
	}
	return "jpg"
}

// limitWriter fails once more than remaining bytes are written.
type limitWriter struct {
	w         io.Writer
	remaining int
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if len(p) > l.remaining {
		return 0, ErrImageTooLarge
	}
	n, err := l.w.Write(p)
	l.remaining -= n
	return n, err
}
