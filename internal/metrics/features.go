package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features holds cheap size features of a chat message.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures computes byte, rune, word, and line counts for s.
// Words split on Unicode whitespace; an empty string has zero lines,
// otherwise lines is one plus the number of '\n'.
func CountFeatures(s string) Features {
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
	}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}
