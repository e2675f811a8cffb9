package directive

import (
	"regexp"
	"strings"
)

var (
	// actionPattern is applied once per reply; later action markers are left alone.
	actionPattern     = regexp.MustCompile(`\[ACTION: (\w+), PAYLOAD: '([^']*)'\]`)
	suggestionPattern = regexp.MustCompile(`\[SUGGESTION: '([^']*)'\]`)
	linkPattern       = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
)

// Parse splits a raw reply into display text, speech text, at most one
// directive, and the ordered suggestion list.
func Parse(raw string) ParsedResponse {
	resp := ParsedResponse{Suggestions: extractSuggestions(raw)}

	if m := actionPattern.FindStringSubmatch(raw); m != nil {
		if kind, ok := ParseKind(m[1]); ok {
			resp.Directive = &Directive{Kind: kind, Payload: m[2]}
		}
	}

	resp.DisplayText = CleanDisplay(raw)
	resp.SpeechText = CleanSpeech(resp.DisplayText)
	return resp
}

// CleanDisplay removes the first action marker and every suggestion marker,
// then trims surrounding whitespace.
func CleanDisplay(text string) string {
	if loc := actionPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + text[loc[1]:]
	}
	text = suggestionPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// CleanSpeech reduces markdown links to their labels.
func CleanSpeech(display string) string {
	return linkPattern.ReplaceAllString(display, "$1")
}

func extractSuggestions(raw string) []string {
	matches := suggestionPattern.FindAllStringSubmatch(raw, -1)
	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, m[1])
	}
	return suggestions
}
