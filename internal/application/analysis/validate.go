package analysis

import (
	"strings"
	"unicode/utf8"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

// Limits bounds accepted log input.
type Limits struct {
	MinChars int
	MaxChars int
	MaxWords int
}

func DefaultLimits() Limits {
	return Limits{MinChars: 10, MaxChars: 2000, MaxWords: 200}
}

// Validate checks emptiness and length of the trimmed text and the character
// bound of the raw text. The text itself is not modified.
func (l Limits) Validate(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.ErrEmptyInput()
	}

	if utf8.RuneCountInString(trimmed) < l.MinChars {
		return domain.ErrTooShort(l.MinChars)
	}

	if words := len(strings.Fields(trimmed)); l.MaxWords > 0 && words > l.MaxWords {
		return domain.ErrTooManyWords(words, l.MaxWords)
	}

	if chars := utf8.RuneCountInString(text); l.MaxChars > 0 && chars > l.MaxChars {
		return domain.ErrTooManyChars(chars, l.MaxChars)
	}

	return nil
}
