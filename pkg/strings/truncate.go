package strings

import (
	"strings"
	"unicode/utf8"
)

// DefaultDescriptionMaxLen is the default maximum length for descriptions in formatted output.
const DefaultDescriptionMaxLen = 60

// MinTruncateLen is the minimum maxLen value for TruncateDescription.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// TruncateDescription truncates a string to maxLen characters and ensures single-line output.
// It collapses all whitespace into single spaces and adds "..." if truncated.
//
// The function operates on runes rather than bytes, so multi-byte characters
// are never split. maxLen is clamped to MinTruncateLen.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// PrefixRunes returns the first n runes of s and whether anything was cut.
// Unlike TruncateDescription it keeps whitespace intact and adds no marker.
func PrefixRunes(s string, n int) (string, bool) {
	if n < 0 {
		n = 0
	}
	// Fast path: a string with at most n bytes has at most n runes.
	if len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// RuneCount returns the number of runes in s.
func RuneCount(s string) int {
	return utf8.RuneCountInString(s)
}
