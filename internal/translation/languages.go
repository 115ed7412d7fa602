package translation

import (
	"sort"

	"github.com/marco741/prof-backend/internal/language"
)

var translationLanguageLabels = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"zh": "Chinese",
}

// SupportedTranslationLanguageCodes lists the language codes the built-in
// providers accept, sorted.
func SupportedTranslationLanguageCodes() []string {
	codes := make([]string, 0, len(translationLanguageLabels))
	for code := range translationLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// languageLabelFor returns a human-readable label for a language code,
// falling back to the code itself for unknown languages.
func languageLabelFor(lang string) string {
	code := language.NormalizeCode(lang)
	if label, ok := translationLanguageLabels[code]; ok {
		return label
	}
	if code != "" {
		return code
	}
	return "English"
}
