package translit

// Notes:
// - Sanitize: we test the pass-through path, Ukrainian romanization (including the
//   word-initial and "zgh" rules), diacritic folding and the non-empty guarantee.
//   Scripts handled by unidecode are only checked for encodability and non-emptiness
//   since the exact romanization belongs to the library.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestSanitize - Degradation into Windows-1252
// ---------------------------------------------------------------------------

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"pure ascii untouched", "Hello, world!\n\tline two", "Hello, world!\n\tline two"},
		{"cp1252 accents untouched", "Café Zürich – “quoted” €5", "Café Zürich – “quoted” €5"},
		{"ukrainian phrase", "Привіт світ", "Pryvit svit"},
		{"word initial ye yi yu ya", "Єва їжак юнак яма", "Yeva yizhak yunak yama"},
		{"inner ie i iu ia", "Києві Юрій Лукяненко", "Kyievi Yurii Lukianenko"},
		{"zgh rule", "Згорани", "Zghorany"},
		{"soft sign dropped", "сіль", "sil"},
		{"all caps multi letter", "ЩУКА", "SHCHUKA"},
		{"title case multi letter", "Щука", "Shchuka"},
		{"russian letters", "Объём эха", "Obyom ekha"},
		{"mixed with ascii", "Invoice №5: сума 100 грн", "Invoice No5: suma 100 hrn"},
		{"polish folds only unencodable runes", "Łódź", "Lódz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if !Encodable(got) {
				t.Errorf("Sanitize(%q) = %q is not Windows-1252 encodable", tt.input, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSanitize_NeverBlank - Non-empty guarantee for unencodable input
// ---------------------------------------------------------------------------

func TestSanitize_NeverBlank(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Привіт",
		"日本語のテキスト",
		"😀😀😀",
		"​​",
		"  ᚠᚢᚦ  ",
		"Ⅻ ⅷ",
		"𝔘𝔫𝔦𝔠𝔬𝔡𝔢",
		"ъь",
		"Ъ",
		"ʼʼ",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			got := Sanitize(in)
			if !Encodable(got) {
				t.Fatalf("Sanitize(%q) = %q is not encodable", in, got)
			}
			if hasVisible(in) && !hasVisible(got) {
				t.Errorf("Sanitize(%q) = %q has no visible character", in, got)
			}
		})
	}
}

func TestSanitize_PlaceholderOnlyWhenNeeded(t *testing.T) {
	t.Parallel()

	t.Run("stripped rune dropped when text survives", func(t *testing.T) {
		t.Parallel()

		got := Sanitize("ok \U000F0000")
		if strings.ContainsRune(got, Placeholder) {
			t.Errorf("Sanitize() = %q, want no placeholder", got)
		}
		if !strings.HasPrefix(got, "ok") {
			t.Errorf("Sanitize() = %q, want prefix %q", got, "ok")
		}
	})

	t.Run("placeholder used when nothing survives", func(t *testing.T) {
		t.Parallel()

		got := Sanitize("\U000F0000 \U000F0001")
		if got != "? ?" {
			t.Errorf("Sanitize() = %q, want %q", got, "? ?")
		}
	})

	t.Run("signs alone become placeholders", func(t *testing.T) {
		t.Parallel()

		if got := Sanitize("ъь Ъ"); got != "?? ?" {
			t.Errorf("Sanitize() = %q, want %q", got, "?? ?")
		}
	})

	t.Run("signs inside words are dropped", func(t *testing.T) {
		t.Parallel()

		if got := Sanitize("сіль підʼїзд"); got != "sil pidizd" {
			t.Errorf("Sanitize() = %q, want %q", got, "sil pidizd")
		}
	})
}

// ---------------------------------------------------------------------------
// TestToWindows1252 - Byte encoding
// ---------------------------------------------------------------------------

func TestToWindows1252(t *testing.T) {
	t.Parallel()

	t.Run("encodes euro sign to single byte", func(t *testing.T) {
		t.Parallel()

		got, err := ToWindows1252("€")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "\x80" {
			t.Errorf("ToWindows1252(€) = %q, want %q", got, "\x80")
		}
	})

	t.Run("rejects unencodable text", func(t *testing.T) {
		t.Parallel()

		if _, err := ToWindows1252("Привіт"); err == nil {
			t.Error("expected error for Cyrillic input")
		}
	})

	t.Run("sanitized output always encodes", func(t *testing.T) {
		t.Parallel()

		if _, err := ToWindows1252(Sanitize("Привіт 日本 😀")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
