// Package translit degrades arbitrary text into something the PDF core fonts can draw.
// The target charset is Windows-1252, the encoding fpdf uses for Helvetica and friends.
package translit

import (
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Placeholder replaces stripped characters when nothing visible would survive.
const Placeholder = '?'

// Encodable reports whether every rune of s has a Windows-1252 code point.
func Encodable(s string) bool {
	for _, r := range s {
		if !encodableRune(r) {
			return false
		}
	}
	return true
}

func encodableRune(r rune) bool {
	_, ok := charmap.Windows1252.EncodeRune(r)
	return ok
}

// Sanitize returns s rewritten so that it is encodable in Windows-1252.
//
// Text that already fits is returned unchanged. Otherwise Ukrainian and Russian
// Cyrillic is romanized with the Ukrainian national table, diacritics are folded,
// other scripts go through unidecode and whatever remains is dropped. A non-blank
// input never yields a blank result: if nothing visible survives, every dropped
// character is replaced by Placeholder instead.
func Sanitize(s string) string {
	if Encodable(s) {
		return s
	}

	var out, marked strings.Builder
	src := []rune(s)
	for i, r := range src {
		if encodableRune(r) {
			out.WriteRune(r)
			marked.WriteRune(r)
			continue
		}
		if latin, ok := romanize(src, i); ok {
			out.WriteString(latin)
			if latin == "" && visible(r) {
				marked.WriteRune(Placeholder)
			} else {
				marked.WriteString(latin)
			}
			continue
		}
		if repl := fallback(r); repl != "" {
			out.WriteString(repl)
			marked.WriteString(repl)
			continue
		}
		if visible(r) {
			marked.WriteRune(Placeholder)
		}
	}

	if hasVisible(out.String()) || !hasVisible(s) {
		return out.String()
	}
	return marked.String()
}

// ToWindows1252 encodes an already sanitized string into Windows-1252 bytes.
func ToWindows1252(s string) (string, error) {
	return charmap.Windows1252.NewEncoder().String(s)
}

// fallback handles a single non-Cyrillic rune: fold accents first, then unidecode.
func fallback(r rune) string {
	if folded := foldDiacritics(string(r)); folded != "" && Encodable(folded) {
		return folded
	}
	return keepEncodable(unidecode.Unidecode(string(r)))
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return folded
}

func keepEncodable(s string) string {
	var b strings.Builder
	for _, r := range s {
		if encodableRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func visible(r rune) bool {
	return !unicode.IsSpace(r) && !unicode.IsControl(r) && !unicode.Is(unicode.Cf, r)
}

func hasVisible(s string) bool {
	for _, r := range s {
		if visible(r) {
			return true
		}
	}
	return false
}
