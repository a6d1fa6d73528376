package classify

import (
	"regexp"
	"strings"
)

// Language indicator lists, checked in this fixed order. The first
// language with any matching pattern wins; English is the default.
var languageOrder = []string{"es", "fr", "de", "pt", "it"}

var languagePatterns = map[string][]*regexp.Regexp{
	"es": compileAll(
		`\b(hola|gracias|buenos|buenas|saludos|atentamente)\b`,
		`\b(por favor|estimado|querido)\b`,
	),
	"fr": compileAll(
		`\b(bonjour|merci|salut|cordialement|bonsoir)\b`,
		`\b(s'il vous plaît|cher|chère)\b`,
	),
	"de": compileAll(
		`\b(hallo|danke|guten|vielen dank|freundliche)\b`,
		`\b(bitte|liebe|lieber)\b`,
	),
	"pt": compileAll(
		// "olá" sits outside the \b group: RE2 word boundaries are
		// ASCII-only and never match after a trailing accented rune.
		`olá`,
		`\b(obrigado|obrigada|bom dia|boa tarde)\b`,
		`\b(por favor|prezado|prezada)\b`,
	),
	"it": compileAll(
		`\b(ciao|grazie|buongiorno|saluti|cordiali)\b`,
		`\b(per favore|gentile|caro|cara)\b`,
	),
}

// DetectLanguage returns the ISO 639-1 code of the first language whose
// indicator patterns match, defaulting to "en". Advisory metadata only.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	for _, lang := range languageOrder {
		for _, re := range languagePatterns[lang] {
			if re.MatchString(lower) {
				return lang
			}
		}
	}
	return "en"
}
