package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tgpdf/tgpdf"
)

// Sentinel errors for webhook payloads.
var (
	ErrEmptyUpdate   = errors.New("no data received")
	ErrInvalidUpdate = errors.New("invalid update payload")
)

// DecodeUpdate parses one webhook body. An empty body, JSON null and an empty
// object are ErrEmptyUpdate; anything else that is not an update object is
// ErrInvalidUpdate.
func DecodeUpdate(body []byte) (tgbotapi.Update, error) {
	var u tgbotapi.Update

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return u, ErrEmptyUpdate
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return u, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	if len(fields) == 0 {
		return u, ErrEmptyUpdate
	}
	if err := json.Unmarshal(trimmed, &u); err != nil {
		return u, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	return u, nil
}

// ConvertUpdate maps a platform update onto tgpdf.Update. Updates without a
// new message (edits, callbacks, channel posts) keep ChatID zero.
func ConvertUpdate(u tgbotapi.Update) tgpdf.Update {
	out := tgpdf.Update{UpdateID: u.UpdateID}

	m := u.Message
	if m == nil || m.Chat == nil {
		return out
	}

	out.ChatID = m.Chat.ID
	out.MessageID = m.MessageID
	out.Text = m.Text
	for _, p := range m.Photo {
		out.Photos = append(out.Photos, tgpdf.PhotoSize{
			FileID:   p.FileID,
			Width:    p.Width,
			Height:   p.Height,
			FileSize: p.FileSize,
		})
	}
	if d := m.Document; d != nil {
		out.Document = &tgpdf.Document{
			FileID:   d.FileID,
			FileName: d.FileName,
			MimeType: d.MimeType,
			FileSize: d.FileSize,
		}
	}
	return out
}
