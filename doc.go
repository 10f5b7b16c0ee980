// Package tgpdf turns chat messages into PDF documents.
//
// A message carrying a photo or an image document is run through OCR; a text
// message is used as is. Either way the text is laid out on A4 pages and the
// PDF is sent back to the chat that asked for it.
//
// # Processing an Update
//
// The Dispatcher owns the flow for one update:
//
//	ex := tgpdf.NewExtractor(ocr, tgpdf.WithLanguage("ukr+eng"))
//	d := tgpdf.NewDispatcher(messenger, ex,
//	    tgpdf.WithFontSource(tgpdf.NewFontResolver()),
//	    tgpdf.WithTempDir(os.TempDir()),
//	)
//	out := d.Handle(ctx, update)
//
// Handle classifies the message, posts a short processing notice, extracts
// text, renders and replies with the document. On failure the notice is
// edited into an error message. The returned Outcome reports what happened;
// Handle never panics on bad input.
//
// # Rendering
//
// Renderer produces the PDF bytes. It uses a Unicode TrueType font when the
// FontResolver finds one and otherwise falls back to a core font, in which
// case Cyrillic is transliterated to Latin first:
//
//	font := tgpdf.NewFontResolver(tgpdf.WithFontPaths("/fonts/DejaVuSans.ttf")).Resolve()
//	doc, err := tgpdf.NewRenderer().Render(ctx, tgpdf.RenderRequest{Content: text}, font)
//
// # Concurrency
//
// TaskPool bounds how many updates are processed at once and applies a
// per-task deadline. Submit never blocks: a full pool returns ErrPoolSaturated so
// the webhook can answer 503 and let the platform redeliver.
//
// # Temporary Files
//
// Downloads and rendered documents live in an ArtifactScope that removes
// them when the update completes. RunSweeper deletes files left behind by a
// crash.
package tgpdf
