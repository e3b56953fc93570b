package cleaner

import (
	"regexp"
	"strings"
)

// BlockPass removes a multi-line structure from the whole text.
type BlockPass struct {
	Name  string
	Apply func(text string) string
}

// BlockPasses run in order before the line rules.
var BlockPasses = []BlockPass{
	{Name: "nav_menu", Apply: removeNavMenus},
	{Name: "footer", Apply: removeFooters},
	{Name: "cookie_table", Apply: removeCookieTables},
	{Name: "cookie_banner", Apply: removeCookieBanners},
}

// CookieKeywords mark a line as part of a cookie-consent banner.
var CookieKeywords = []string{
	"cookie", "consent", "gdpr", "privacy policy", "accepter", "rejeter",
	"nous respectons votre vie", "we use cookies", "nous utilisons des cookies",
	"sauvegarder mes", "personnaliser", "always active", "toujours actif",
	"cookie-law-info", "accept all", "accepter tout", "reject all",
	"analytics", "fonctionnels", "publicit", "performance",
	"pas de cookies", "no cookies to display",
}

const (
	// minBannerLines is the number of keyword lines that makes a run a banner.
	minBannerLines = 3
	// maxBannerGap is the number of non-keyword lines tolerated inside a run.
	maxBannerGap = 2
)

var (
	navMenuPattern = regexp.MustCompile(`(?m)(?:^[ \t]*[-*]?\s*\[.{1,40}\]\([^)]+\)\s*\n){5,}`)
	footerPattern  = regexp.MustCompile(
		`(?mi)^#{1,4}\s*Contact.*?\n(?:.*?\n){0,15}?(?:©|copyright|all rights reserved|tous droits).*$`,
	)
	cookieRowPattern = regexp.MustCompile(
		`(?i)\|[^\n]*(?:_gcl_au|_ga_|_ga|_fbp|_gid|CookieLawInfo|PHPSESSID)[^\n]*\|`,
	)
	tableRulePattern = regexp.MustCompile(`^[\s|:-]+$`)
)

// removeNavMenus drops runs of five or more consecutive short link lines.
func removeNavMenus(text string) string {
	return navMenuPattern.ReplaceAllString(text, "\n")
}

// removeFooters drops a contact heading and everything up to a copyright line
// found within the next fifteen lines.
func removeFooters(text string) string {
	return footerPattern.ReplaceAllString(text, "")
}

// removeCookieTables drops a table row naming a tracking cookie together with the
// table and blank rows that follow it.
func removeCookieTables(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inTable := false
	for _, line := range lines {
		if cookieRowPattern.MatchString(line) {
			inTable = true
			continue
		}
		if inTable {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "|") || tableRulePattern.MatchString(trimmed) {
				continue
			}
			inTable = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// removeCookieBanners drops every run of at least three cookie keyword lines in
// which no more than two other lines separate consecutive keyword lines. Blank
// lines after a removed run are consumed too.
func removeCookieBanners(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !isCookieLine(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		end, matched, gap := i, 1, 0
		for j := i + 1; j < len(lines); j++ {
			if isCookieLine(lines[j]) {
				end = j
				matched++
				gap = 0
				continue
			}
			gap++
			if gap > maxBannerGap {
				break
			}
		}

		if matched < minBannerLines {
			out = append(out, lines[i])
			i++
			continue
		}
		i = end + 1
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}
	return strings.Join(out, "\n")
}

func isCookieLine(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	return containsAny(lower, CookieKeywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
