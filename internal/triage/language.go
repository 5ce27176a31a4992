package triage

import "strings"

// Language is the patient's chosen response language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageMalay   Language = "ms"
	LanguageChinese Language = "zh"
)

var languageInstructions = map[Language]string{
	LanguageEnglish: "Respond in English",
	LanguageMalay:   "Respond in Bahasa Malaysia",
	LanguageChinese: "Respond in Chinese (Simplified)",
}

// ParseLanguage returns the matching language, defaulting to English.
func ParseLanguage(raw string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := languageInstructions[l]; ok {
		return l
	}
	return LanguageEnglish
}

// Instruction is the line appended to the system prompt.
func (l Language) Instruction() string {
	if s, ok := languageInstructions[l]; ok {
		return s
	}
	return languageInstructions[LanguageEnglish]
}
