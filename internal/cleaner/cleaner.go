// Package cleaner strips rendering and UI noise from scraped markdown.
//
// Cleaning runs in two layers. Block passes remove multi-line structures
// (navigation menus, footers, cookie tables and consent banners) and line rules
// drop individual lines that match a known noise pattern. Both layers are
// declarative tables so tests can enumerate them.
package cleaner

import (
	"regexp"
	"strings"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Clean removes noise from text. Blank-line runs collapse to a single blank line
// and the result is trimmed. Clean is idempotent: the passes are repeated until
// the output stops changing. Every pass only removes text, so the loop ends.
func Clean(text string) string {
	out := cleanOnce(text)
	for {
		next := cleanOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

func cleanOnce(text string) string {
	for _, pass := range BlockPasses {
		text = pass.Apply(text)
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if Drop(line) == "" {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, "\n")
	return Collapse(text)
}

// Collapse folds runs of three or more newlines into one blank line and trims
// surrounding whitespace.
func Collapse(text string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))
}

// Drop reports the name of the first line rule matching line, or "" when the
// line is kept. Blank lines are always kept.
func Drop(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	l := Line{Text: trimmed, Lower: strings.ToLower(trimmed)}
	for _, rule := range LineRules {
		if rule.Match(l) {
			return rule.Name
		}
	}
	return ""
}
