// Package markdown turns fetched HTML into the markdown the pipeline cleans.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// strippedElements never carry venue prose.
const strippedElements = "script, style, noscript, template, svg, iframe, canvas"

// Convert renders an HTML document as markdown. Scripts, styles and embedded
// media are dropped first; whitespace-only lines are folded afterwards.
func Convert(html []byte) (string, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(strippedElements).Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	out, err := md.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return foldBlankLines(out), nil
}

// foldBlankLines keeps at most one blank line between content lines.
func foldBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank == 1 {
				out = append(out, "")
			}
			continue
		}
		blank = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
