package tgpdf

import (
	"errors"
	"path/filepath"
	"strings"
)

// User-facing chat texts.
const (
	MsgGreeting         = "👋 Надішли мені зображення, скан або текст, і я згенерую PDF!"
	MsgProcessingPhoto  = "📷 Обробляю зображення..."
	MsgProcessingText   = "📝 Створюю PDF з тексту..."
	MsgNoTextRecognized = "⚠️ Не вдалося розпізнати текст на зображенні."
	MsgSendImage        = "⚠️ Будь ласка, надішліть зображення (як фото або файл) для перетворення в PDF."
	MsgEmptyText        = "❌ Текст порожній. Надішліть текст для створення PDF."
	MsgOCRFailed        = "❌ Сталася помилка під час розпізнавання тексту або створення PDF."
	MsgPhotoFailed      = "❌ Помилка при обробці зображення. Спробуйте ще раз."
	MsgDocumentFailed   = "❌ Помилка при обробці файлу. Переконайтесь, що це зображення."
	MsgTextFailed       = "❌ Помилка при створенні PDF з тексту. Спробуйте ще раз."
)

// Document captions per source kind.
const (
	CaptionPhoto    = "📄 PDF створено з розпізнаного тексту"
	CaptionDocument = "📄 PDF створено з розпізнаного тексту документа"
	CaptionText     = "📄 PDF створено з вашого тексту"
)

// Output filenames.
const (
	FilenamePhoto    = "scan_to_pdf.pdf"
	FilenameDocument = "ocr_document.pdf"
	FilenameText     = "text_to_pdf.pdf"
)

// processingNotice returns the interim text sent when a task starts.
func processingNotice(msg InboundMessage) string {
	if msg.Kind == KindImageDocument {
		name := msg.FileName
		if name == "" {
			name = "файл"
		}
		return "🖼️ Обробляю надісланий файл (" + name + ")..."
	}
	if msg.Kind == KindText {
		return MsgProcessingText
	}
	return MsgProcessingPhoto
}

// failureText returns the message that replaces the notice when a task fails.
// Download faults get the per-source retry hint, OCR and render faults the generic one.
func failureText(kind MessageKind, err error) string {
	switch {
	case kind == KindText:
		return MsgTextFailed
	case !errors.Is(err, ErrDownloadFailed):
		return MsgOCRFailed
	case kind == KindImageDocument:
		return MsgDocumentFailed
	default:
		return MsgPhotoFailed
	}
}

// caption returns the document caption for a source kind.
func caption(kind MessageKind) string {
	switch kind {
	case KindImageDocument:
		return CaptionDocument
	case KindText:
		return CaptionText
	default:
		return CaptionPhoto
	}
}

// outputFilename names the reply document after its source.
func outputFilename(msg InboundMessage) string {
	switch msg.Kind {
	case KindImageDocument:
		base := strings.TrimSuffix(filepath.Base(msg.FileName), filepath.Ext(msg.FileName))
		if msg.FileName == "" || base == "" || base == "." || base == string(filepath.Separator) {
			return FilenameDocument
		}
		return base + "_ocr.pdf"
	case KindText:
		return FilenameText
	default:
		return FilenamePhoto
	}
}
