// Package assemble merges the primary and listing sources into one document and
// bounds its size.
package assemble

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the document budget used when none is configured.
const DefaultMaxChars = 95000

// PrimaryLabel introduces the venue's own website content.
const PrimaryLabel = "**Venue Website**"

// Divider separates sources in the combined document.
const Divider = "\n\n---\n\n"

// Section is one labeled source.
type Section struct {
	Label string
	Body  string
}

// Combine labels the primary text and each secondary section and joins them with
// Divider. The primary always comes first.
func Combine(primary string, secondaries []Section) string {
	parts := make([]string, 0, len(secondaries)+1)
	parts = append(parts, PrimaryLabel+"\n\n"+primary)
	for _, s := range secondaries {
		parts = append(parts, s.Label+"\n\n"+s.Body)
	}
	return strings.Join(parts, Divider)
}

// Notice returns the marker appended to a truncated document.
func Notice(maxChars int) string {
	return "\n\n[Content truncated at " + groupThousands(maxChars) + " characters]"
}

// Truncate bounds text to maxChars characters plus the truncation notice. When a
// paragraph break falls in the second half of the kept prefix the cut moves back
// to it. Lengths count runes, so a cut never splits a UTF-8 sequence.
func Truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	cut := text[:runeOffset(text, maxChars)]
	if idx := strings.LastIndex(cut, "\n\n"); idx >= 0 && utf8.RuneCountInString(cut[:idx]) > maxChars/2 {
		cut = cut[:idx]
	}
	return cut + Notice(maxChars), true
}

// runeOffset returns the byte index at which the n-th rune of s starts, or
// len(s) when s has n runes or fewer.
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
