package dispatch

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// ResolveWebsite maps a website payload onto a URL. Rules are checked in
// order and the first match wins:
//
//  1. spaces and no dot: search for the phrase
//  2. http(s) scheme: open as-is
//  3. contains a dot: bare domain, prefix https://
//  4. single word: https://<word>.com
func ResolveWebsite(payload string, searchURL string) string {
	target := strings.TrimSpace(payload)

	switch {
	case strings.Contains(target, " ") && !strings.Contains(target, "."):
		return SearchURL(searchURL, target)
	case schemePattern.MatchString(target):
		return target
	case strings.Contains(target, "."):
		return "https://" + target
	default:
		return "https://" + target + ".com"
	}
}

// SearchURL appends the component-encoded query to the search prefix.
func SearchURL(searchURL string, query string) string {
	if strings.TrimSpace(searchURL) == "" {
		searchURL = DefaultSearchURL
	}
	return searchURL + EncodeComponent(query)
}

const upperHex = "0123456789ABCDEF"

// EncodeComponent percent-encodes s the way browsers encode a URI component:
// only ASCII letters, digits and -_.!~*'() pass through, spaces become %20.
func EncodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isComponentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isComponentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
