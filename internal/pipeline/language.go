package pipeline

import "github.com/abadojack/whatlanggo"

// minLanguageSample is the shortest text worth classifying.
const minLanguageSample = 40

// DetectLanguage returns the ISO 639-3 code of text, or "" when the
// detector is not confident.
func DetectLanguage(text string) string {
	if len(text) < minLanguageSample {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}
