// Package discovery turns a raw set of discovered links into a bounded fetch plan.
package discovery

import (
	"regexp"
	"slices"
	"strings"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// DefaultMaxPages caps the number of pages fetched for one venue site.
const DefaultMaxPages = 20

// DenyPatterns are lowercase substrings that exclude a URL from the plan.
var DenyPatterns = []string{
	"sitemap.xml", "/blog/", "/news/", "/press", "/presse",
	"/tag/", "/category/", "/author/", "/cart", "/checkout",
	"/login", "/account", "/privacy", "/terms", "/legal", "/cookie",
}

// PriorityKeywords rank topical pages ahead of the rest of the site.
var PriorityKeywords = []string{
	"wedding", "mariage", "accommodation", "hébergement", "room", "chambre",
	"rental", "location", "seminar", "séminaire", "activities", "activités",
	"contact", "pricing", "tarif", "gallery", "galerie", "event", "événement",
}

var (
	englishSegment = regexp.MustCompile(`/en/|/english/`)
	frenchSegment  = regexp.MustCompile(`/fr/|/french/`)
)

const langPlaceholder = "/LANG/"

// Filter builds the fetch plan for primary from the links returned by a mapper.
// ok reports whether discovery succeeded; when it did not, or when links is empty,
// the plan holds only the primary URL. Filter never fails.
func Filter(links []venue.DiscoveredLink, ok bool, primary string, maxPages int) venue.FetchPlan {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if !ok || len(links) == 0 {
		return venue.FetchPlan{URLs: []string{primary}}
	}

	urls := make([]string, 0, len(links))
	for _, link := range links {
		if strings.TrimSpace(link.URL) == "" {
			continue
		}
		if IsDenied(link.URL) {
			continue
		}
		urls = append(urls, link.URL)
	}

	urls = dedupeLanguages(urls)
	urls = placePrimary(dedupeURLs(urls), primary)
	rankByPriority(urls[1:])

	if len(urls) > maxPages {
		urls = urls[:maxPages]
	}
	return venue.FetchPlan{URLs: urls}
}

// IsDenied reports whether url matches one of the deny patterns.
func IsDenied(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range DenyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Stem returns the lowercased URL with its English or French language segment
// replaced by a placeholder. The second result is false when url carries neither.
func Stem(url string) (string, bool) {
	lower := strings.ToLower(url)
	switch {
	case englishSegment.MatchString(lower):
		return englishSegment.ReplaceAllString(lower, langPlaceholder), true
	case frenchSegment.MatchString(lower):
		return frenchSegment.ReplaceAllString(lower, langPlaceholder), true
	default:
		return "", false
	}
}

func isEnglish(url string) bool {
	return englishSegment.MatchString(strings.ToLower(url))
}

func isFrench(url string) bool {
	lower := strings.ToLower(url)
	return !englishSegment.MatchString(lower) && frenchSegment.MatchString(lower)
}

// dedupeLanguages drops French links whose stem matches an English link's stem.
func dedupeLanguages(urls []string) []string {
	englishStems := make(map[string]struct{})
	for _, u := range urls {
		if isEnglish(u) {
			stem, _ := Stem(u)
			englishStems[stem] = struct{}{}
		}
	}
	if len(englishStems) == 0 {
		return urls
	}
	out := urls[:0:0]
	for _, u := range urls {
		if isFrench(u) {
			stem, _ := Stem(u)
			if _, dup := englishStems[stem]; dup {
				continue
			}
		}
		out = append(out, u)
	}
	return out
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		key := strings.TrimRight(u, "/")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}

// placePrimary moves the entry matching primary (ignoring trailing slashes) to the
// front, inserting primary when no entry matches.
func placePrimary(urls []string, primary string) []string {
	target := strings.TrimRight(primary, "/")
	idx := slices.IndexFunc(urls, func(u string) bool {
		return strings.TrimRight(u, "/") == target
	})
	if idx < 0 {
		return append([]string{primary}, urls...)
	}
	entry := urls[idx]
	out := make([]string, 0, len(urls))
	out = append(out, entry)
	out = append(out, urls[:idx]...)
	out = append(out, urls[idx+1:]...)
	return out
}

// PriorityScore counts the priority keywords present in url.
func PriorityScore(url string) int {
	lower := strings.ToLower(url)
	score := 0
	for _, kw := range PriorityKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	return score
}

func rankByPriority(urls []string) {
	slices.SortStableFunc(urls, func(a, b string) int {
		return PriorityScore(b) - PriorityScore(a)
	})
}
