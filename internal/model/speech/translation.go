package speech

import "strings"

// EnglishIndia is the pivot language of the triage pipeline.
const EnglishIndia = "en-IN"

// DefaultSourceLanguage matches the recognizer default of the field app.
const DefaultSourceLanguage = "kn-IN"

// TranslationResult is produced once per accepted translation request.
type TranslationResult struct {
	TranslatedText string `json:"translatedText"`
	SourceLanguage string `json:"sourceLanguage"`
}

var languageNames = map[string]string{
	"kn-IN": "Kannada",
	"hi-IN": "Hindi",
	"ta-IN": "Tamil",
	"te-IN": "Telugu",
	"ml-IN": "Malayalam",
	"mr-IN": "Marathi",
	"bn-IN": "Bengali",
	"gu-IN": "Gujarati",
	"pa-IN": "Punjabi",
	"od-IN": "Odia",
	"en-IN": "English (India)",
}

// LanguageName returns a display name for a BCP-47 or short language code.
func LanguageName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.EqualFold(trimmed, "unknown") {
		return "Detecting..."
	}
	if name, ok := languageNames[NormalizeLanguage(trimmed)]; ok {
		return name
	}
	return trimmed
}

// NormalizeLanguage maps short codes such as "kn" to the "kn-IN" form used by
// the translation provider. Unknown codes are returned unchanged.
func NormalizeLanguage(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "-") {
		parts := strings.SplitN(trimmed, "-", 2)
		return strings.ToLower(parts[0]) + "-" + strings.ToUpper(parts[1])
	}
	lower := strings.ToLower(trimmed)
	if lower == "en" {
		return EnglishIndia
	}
	if lower == "or" {
		lower = "od"
	}
	candidate := lower + "-IN"
	if _, ok := languageNames[candidate]; ok {
		return candidate
	}
	return trimmed
}

// SupportedLanguages lists the codes the pipeline can translate from.
func SupportedLanguages() []string {
	return []string{"kn-IN", "hi-IN", "ta-IN", "te-IN", "ml-IN", "mr-IN", "bn-IN", "gu-IN", "pa-IN", "od-IN", "en-IN"}
}
