package tgpdf

import "strings"

// Update is one inbound chat event in platform-neutral form.
// ChatID is zero for events that carry no message (edits, callbacks, channel posts).
type Update struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	Text      string
	Photos    []PhotoSize
	Document  *Document
}

// PhotoSize is one resolution of a photo; platforms send several per photo.
type PhotoSize struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

// Document is a file attached to a message.
type Document struct {
	FileID   string
	FileName string
	MimeType string
	FileSize int
}

// IsImage reports whether the declared MIME type is an image type.
func (d *Document) IsImage() bool {
	return d != nil && strings.HasPrefix(strings.ToLower(d.MimeType), "image/")
}

// MessageKind discriminates classified inbound messages.
type MessageKind int

// Message kinds.
const (
	KindOther MessageKind = iota
	KindPhoto
	KindImageDocument
	KindText
	KindCommand
	KindUnsupported
)

func (k MessageKind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindImageDocument:
		return "image_document"
	case KindText:
		return "text"
	case KindCommand:
		return "command"
	case KindUnsupported:
		return "unsupported"
	default:
		return "other"
	}
}

// InboundMessage is a classified update. Fields beyond Kind are set only for
// the kinds that use them.
type InboundMessage struct {
	Kind     MessageKind
	ChatID   int64
	FileID   string // photo, image document
	FileSize int    // photo, image document (0 = unknown)
	MimeType string // image document
	FileName string // image document, unsupported document
	Text     string // text
	Command  string // command, without the leading slash
	Reason   string // unsupported
}

// ExtractionStatus is the outcome class of one OCR attempt.
type ExtractionStatus int

// Extraction statuses.
const (
	ExtractionText ExtractionStatus = iota
	ExtractionEmpty
	ExtractionFailed
)

func (s ExtractionStatus) String() string {
	switch s {
	case ExtractionText:
		return "text"
	case ExtractionEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// ExtractionResult is produced once per image input and never retried.
type ExtractionResult struct {
	Status ExtractionStatus
	Text   string
	Err    error // set when Status is ExtractionFailed
}

// RenderRequest is the text to lay out, with an optional font family hint.
type RenderRequest struct {
	Content             string
	PreferredFontFamily string
}

// RenderedDocument holds a generated PDF until it has been sent.
type RenderedDocument struct {
	PDF      []byte
	Filename string
	Pages    int
}

// Stage is a step of the per-update state machine.
type Stage int

// Dispatcher stages, in pipeline order.
const (
	StageReceived Stage = iota
	StageClassified
	StageImagePath
	StageTextPath
	StageRendering
	StageReplying
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageClassified:
		return "classified"
	case StageImagePath:
		return "image_path"
	case StageTextPath:
		return "text_path"
	case StageRendering:
		return "rendering"
	case StageReplying:
		return "replying"
	default:
		return "done"
	}
}

// Outcome describes how one update ended.
// A nil Err means the task reached Done; otherwise it failed or was rejected at Stage.
type Outcome struct {
	Stage     Stage
	Kind      MessageKind
	Delivered bool // a PDF was sent to the chat
	Err       error
}

// Failed reports whether the task ended in the Failed terminal state.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
