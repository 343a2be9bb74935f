package translation

import "sort"

// Language is one supported target language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supported = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"it": "Italian",
	"hi": "Hindi",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"ru": "Russian",
}

// SupportedLanguages returns the fixed language set, sorted by code.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(supported))
	for code, name := range supported {
		out = append(out, Language{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// IsSupported reports whether a language code is in the fixed set.
func IsSupported(code string) bool {
	_, ok := supported[code]
	return ok
}
