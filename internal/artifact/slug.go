// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"strings"
	"unicode"
)

// MaxSlugRunes bounds the normalized title part of a file identifier.
const MaxSlugRunes = 60

// fallbackSlug is used when a title normalizes to nothing.
const fallbackSlug = "article"

// separatorRunes become separators: full-width CJK punctuation and brackets
// that would otherwise glue words together.
const separatorRunes = "【】「」『』（）()[]{}<>，。、；：？！,.;:?!/\\|_+=~"

// Slug normalizes a title into a filesystem-safe identifier: separator
// punctuation and whitespace collapse into single '-', other symbols are
// dropped, letters are lower-cased, and the result is trimmed and bounded
// to MaxSlugRunes.
func Slug(title string) string {
	var b strings.Builder
	pendingSep := false
	count := 0
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				if count+1 >= MaxSlugRunes {
					return finish(b.String())
				}
				b.WriteByte('-')
				count++
			}
			pendingSep = false
			if count >= MaxSlugRunes {
				return finish(b.String())
			}
			b.WriteRune(unicode.ToLower(r))
			count++
		case r == '-' || unicode.IsSpace(r) || strings.ContainsRune(separatorRunes, r):
			pendingSep = true
		}
	}
	return finish(b.String())
}

func finish(s string) string {
	s = strings.Trim(s, "-")
	if s == "" {
		return fallbackSlug
	}
	return s
}
