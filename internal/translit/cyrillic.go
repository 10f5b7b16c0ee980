package translit

import (
	"strings"
	"unicode"
)

// Ukrainian national romanization (KMU 2010), extended with the Russian-only letters.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e",
	'є': "ie", 'ж': "zh", 'з': "z", 'и': "y", 'і': "i", 'ї': "i", 'й': "i",
	'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ь': "", 'ю': "iu", 'я': "ia",
	'ё': "yo", 'ы': "y", 'э': "e", 'ъ': "",
	'ʼ': "", '№': "No",
}

// Letters romanized differently at the start of a word.
var wordInitial = map[rune]string{
	'є': "ye", 'ї': "yi", 'й': "y", 'ю': "yu", 'я': "ya",
}

// romanize transliterates src[i] when it is a Cyrillic letter covered by the table.
func romanize(src []rune, i int) (string, bool) {
	r := src[i]
	lower := unicode.ToLower(r)
	latin, ok := cyrillic[lower]
	if !ok {
		return "", false
	}

	if initial, ok := wordInitial[lower]; ok && atWordStart(src, i) {
		latin = initial
	}
	if lower == 'г' && i > 0 && unicode.ToLower(src[i-1]) == 'з' {
		latin = "gh"
	}

	if latin == "" || !unicode.IsUpper(r) {
		return latin, true
	}
	if len(latin) > 1 && shouting(src, i) {
		return strings.ToUpper(latin), true
	}
	return strings.ToUpper(latin[:1]) + latin[1:], true
}

func atWordStart(src []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev := src[i-1]
	return !unicode.IsLetter(prev) && prev != '\'' && prev != '’' && prev != 'ʼ'
}

// shouting reports whether the uppercase letter at i sits inside an all-caps word.
func shouting(src []rune, i int) bool {
	if i+1 < len(src) && unicode.IsLetter(src[i+1]) {
		return unicode.IsUpper(src[i+1])
	}
	return i > 0 && unicode.IsUpper(src[i-1])
}
