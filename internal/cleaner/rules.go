package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Line is a non-blank line prepared for rule matching.
type Line struct {
	Text  string // trimmed
	Lower string // trimmed and lowercased
}

// Len returns the length of the trimmed line in characters.
func (l Line) Len() int {
	return utf8.RuneCountInString(l.Text)
}

// LineRule drops a single line when Match returns true.
type LineRule struct {
	Name  string
	Match func(Line) bool
}

// Keyword tables used by the line rules.
var (
	UINoisePhrases = set(
		"menu", "close", "search", "en", "fr", "es", "de", "it",
		"reserve", "book", "read more", "read less", "voir plus",
		"voir moins", "lire la suite", "back", "retour", "next",
		"previous", "suivant", "précédent", "open", "ouvrir",
		"fermer", "share", "partager", "print", "imprimer",
		"i get it", "i refuse", "j'accepte", "je refuse",
		"got it", "dismiss", "subscribe", "newsletter",
		"toggle navigation", "toggle menu", "we value your privacy",
		"number of guests", "wedding month", "year",
		"i'm flexible on dates",
	)

	BookingKeywords = []string{
		"arrival", "departure", "check-in", "check-out", "checkin", "checkout",
		"number of adults", "number of guests", "select date", "book now",
		"book your stay", "availability", "réserver", "arrivée", "départ",
		"nombre d'adultes", "rechercher", "vérifier la disponibilité",
		"check availability", "select room", "adults", "children",
		"promo code", "discount code", "best rate",
	}

	FormFieldKeywords = []string{
		"this field is required", "first name", "last name", "phone number",
		"your message", "send message", "submit", "captcha", "recaptcha",
		"required field", "champ requis", "champ obligatoire",
		"nom de famille", "prénom", "numéro de téléphone", "votre message",
		"envoyer", "soumettre", "join now", "send a follow-up",
		"venue id", "venue title", "venue slug", "venue full url",
		"user ip country", "flexible on dates",
	}

	consentPhrases = set("gérer le consentement", "gérer le consentement aux cookies", "manage consent")

	cookieNoticePhrases = []string{
		"function properly", "we use cookies", "consent", "nous utilisons", "fonctionner correctement",
	}

	emptyGalleryPhrases = set(
		"sorry, we have no imagery here.", "sorry, we have no imagery here",
		"no imagery available", "no image available",
	)

	mapKeyPhrases = set(
		"move left", "move right", "move up", "move down",
		"zoom in", "zoom out", "jump left by 75%", "jump right by 75%",
		"jump up by 75%", "jump down by 75%", "keyboard shortcuts",
	)

	footerPhrases = []string{
		"all rights reserved", "tous droits", "© ", "copyright", "follow us on", "suivez-nous",
	}

	directoryCTAs = set(
		"enquire today", "handpicked for you", "no added commission",
		"enquire now", "send enquiry", "request a quote",
		"similar venues", "you may also like", "related venues",
		"other venues nearby", "more venues in this region",
	)

	agencyCredits = []string{
		"création site internet", "création site web", "web design by",
		"designed by", "powered by", "website by", "site réalisé par",
		"agence web", "made with love",
	}
)

var (
	navChainPattern       = regexp.MustCompile(`^(\[.{1,20}\]\([^)]+\)\s*\|\s*){2,}`)
	skipContentPattern    = regexp.MustCompile(`^\[?(go to |skip to |aller au |passer au )?(main )?content\]?`)
	langSwitchPattern     = regexp.MustCompile(`(?i)^\[?(en|fr|es|de|it|nl|pt)\]?\s*(\(.*?\))?\s*$`)
	dropdownPattern       = regexp.MustCompile(`(?i)^(\d+\s*[-–]\s*\d+\s*(guests?|invités?|personnes?))|^(not sure)|^(january|february|march|april|may|june|july|august|september|october|november|december|janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre)$`)
	imageOnlyPattern      = regexp.MustCompile(`^[-*]?\s*!\[.*?\]\(.*?\)$`)
	longWordPattern       = regexp.MustCompile(`[a-zA-Z]{5,}`)
	hexTokenPattern       = regexp.MustCompile(`^[0-9a-f]{16,}$`)
	privacyTermsPattern   = regexp.MustCompile(`(?i)^\[privacy\].*\[terms\]`)
	consentUIPattern      = regexp.MustCompile(`^\[?(manage|gérer)\s+(options|services|consent|cookies|vendors)`)
	mapKeyPattern         = regexp.MustCompile("^`[←→↑↓+\\-]`$")
	mapDataPattern        = regexp.MustCompile(`^map\s*data`)
	socialChainPattern    = regexp.MustCompile(`(?i)^(\[?(facebook|twitter|instagram|linkedin|youtube|pinterest|tiktok)\]?\s*[|/,]\s*){2,}`)
	relatedVenuePattern   = regexp.MustCompile(`^.{5,60}\s*[-–|]\s*(south of france|provence|languedoc|dordogne|loire|normandy|brittany|bordeaux|champagne|burgundy)`)
	instagramCountPattern = regexp.MustCompile(`^\[\d{1,4}\]\([^)]*instagram[^)]*\)$`)
)

// LineRules are evaluated in order; the first match drops the line.
var LineRules = []LineRule{
	{Name: "nav_chain", Match: func(l Line) bool { return navChainPattern.MatchString(l.Text) }},
	{Name: "skip_to_content", Match: func(l Line) bool { return skipContentPattern.MatchString(l.Lower) }},
	{Name: "ui_noise", Match: func(l Line) bool { return UINoisePhrases[l.Lower] }},
	{Name: "language_switcher", Match: func(l Line) bool { return langSwitchPattern.MatchString(l.Text) }},
	{Name: "booking_widget", Match: func(l Line) bool {
		return l.Len() < 120 && containsAny(l.Lower, BookingKeywords)
	}},
	{Name: "form_field", Match: func(l Line) bool {
		return l.Len() < 80 && containsAny(l.Lower, FormFieldKeywords)
	}},
	{Name: "form_dropdown", Match: func(l Line) bool { return dropdownPattern.MatchString(l.Text) }},
	{Name: "svg_data_uri", Match: func(l Line) bool { return strings.Contains(l.Text, "data:image/svg+xml") }},
	{Name: "image_only", Match: isBareImage},
	{Name: "hex_token", Match: func(l Line) bool { return hexTokenPattern.MatchString(l.Text) }},
	{Name: "recaptcha", Match: func(l Line) bool {
		return (strings.Contains(l.Lower, "recaptcha") && l.Len() < 200) || privacyTermsPattern.MatchString(l.Text)
	}},
	{Name: "consent_ui", Match: func(l Line) bool {
		return consentUIPattern.MatchString(l.Lower) || consentPhrases[l.Lower]
	}},
	{Name: "cookie_notice", Match: func(l Line) bool {
		return strings.Contains(l.Lower, "cookie") && l.Len() > 80 && containsAny(l.Lower, cookieNoticePhrases)
	}},
	{Name: "empty_gallery", Match: func(l Line) bool { return emptyGalleryPhrases[l.Lower] }},
	{Name: "map_keys", Match: func(l Line) bool {
		return mapKeyPattern.MatchString(l.Text) || mapKeyPhrases[l.Lower]
	}},
	{Name: "map_attribution", Match: func(l Line) bool {
		return mapDataPattern.MatchString(l.Lower) || strings.Contains(l.Lower, "geobasis") || strings.Contains(l.Lower, "map data ©")
	}},
	{Name: "footer_line", Match: func(l Line) bool {
		return l.Len() < 200 && containsAny(l.Lower, footerPhrases)
	}},
	{Name: "social_chain", Match: func(l Line) bool { return socialChainPattern.MatchString(l.Text) }},
	{Name: "directory_cta", Match: func(l Line) bool { return directoryCTAs[l.Lower] }},
	{Name: "related_venue", Match: func(l Line) bool { return relatedVenuePattern.MatchString(l.Lower) }},
	{Name: "instagram_count", Match: func(l Line) bool { return instagramCountPattern.MatchString(l.Lower) }},
	{Name: "agency_credit", Match: func(l Line) bool {
		return l.Len() < 150 && containsAny(l.Lower, agencyCredits)
	}},
}

// isBareImage matches image lines whose alt text has no word of five letters or more.
func isBareImage(l Line) bool {
	if !imageOnlyPattern.MatchString(l.Text) {
		return false
	}
	alt, _, _ := strings.Cut(l.Text, "](")
	return !longWordPattern.MatchString(alt)
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
