package speak

import "strings"

// Voice describes one synthesis voice reported by the engine.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type voicePredicate func(Voice) bool

// voicePreferences is evaluated in order; the first predicate with any match wins.
var voicePreferences = []voicePredicate{
	func(v Voice) bool { return v.Lang == "en-US" && strings.Contains(v.Name, "Google") && nameSaysMale(v) },
	func(v Voice) bool { return v.Lang == "en-US" && strings.Contains(v.Name, "David") },
	func(v Voice) bool { return v.Lang == "en-US" && nameSaysMale(v) },
	func(v Voice) bool { return strings.HasPrefix(v.Lang, "en-") && nameSaysMale(v) },
}

// SelectVoice picks the preferred voice from voices. The second result is
// false when nothing matches and the engine default should be used.
func SelectVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, prefer := range voicePreferences {
		for _, v := range voices {
			if prefer(v) {
				return v, true
			}
		}
	}
	return Voice{}, false
}

// nameSaysMale is a case-insensitive substring test, so "Female" matches too.
func nameSaysMale(v Voice) bool {
	return strings.Contains(strings.ToLower(v.Name), "male")
}
