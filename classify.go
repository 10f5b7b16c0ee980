package tgpdf

import "strings"

// Classify inspects an update and turns it into an InboundMessage.
//
// Photos win over everything else and use the largest size. Documents are
// accepted only when their MIME type is an image type. Text starting with a
// slash is a command; any other text, including blank text, is KindText so the
// text path can reject it.
func Classify(u Update) InboundMessage {
	msg := InboundMessage{ChatID: u.ChatID}
	if u.ChatID == 0 {
		return msg
	}

	switch {
	case len(u.Photos) > 0:
		best := largestPhoto(u.Photos)
		msg.Kind = KindPhoto
		msg.FileID = best.FileID
		msg.FileSize = best.FileSize
	case u.Document != nil && u.Document.IsImage():
		msg.Kind = KindImageDocument
		msg.FileID = u.Document.FileID
		msg.FileSize = u.Document.FileSize
		msg.MimeType = u.Document.MimeType
		msg.FileName = u.Document.FileName
	case u.Document != nil:
		msg.Kind = KindUnsupported
		msg.FileName = u.Document.FileName
		msg.Reason = "document is not an image: " + u.Document.MimeType
	case strings.HasPrefix(u.Text, "/"):
		msg.Kind = KindCommand
		msg.Command = commandName(u.Text)
	case u.Text != "":
		msg.Kind = KindText
		msg.Text = u.Text
	}
	return msg
}

// largestPhoto picks the biggest resolution. Platforms list sizes ascending, but
// pixel area decides ties and unordered input.
func largestPhoto(sizes []PhotoSize) PhotoSize {
	best := sizes[len(sizes)-1]
	for _, p := range sizes {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

// commandName extracts "start" from "/start@SomeBot payload".
func commandName(text string) string {
	name := strings.TrimPrefix(strings.Fields(text + " ")[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
