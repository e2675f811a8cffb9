// Package directive extracts action and suggestion markup from assistant replies.
package directive

// Kind names one supported desktop action.
type Kind string

const (
	KindOpenApp     Kind = "OPEN_APP"
	KindSearchWeb   Kind = "SEARCH_WEB"
	KindWriteExcel  Kind = "WRITE_EXCEL"
	KindTypeText    Kind = "TYPE_TEXT"
	KindOpenWebsite Kind = "OPEN_WEBSITE"
)

var validKinds = map[Kind]struct{}{
	KindOpenApp:     {},
	KindSearchWeb:   {},
	KindWriteExcel:  {},
	KindTypeText:    {},
	KindOpenWebsite: {},
}

// Valid reports whether k is one of the dispatchable kinds.
func (k Kind) Valid() bool {
	_, ok := validKinds[k]
	return ok
}

// ParseKind maps a raw action name onto a supported kind.
// Matching is exact and case-sensitive.
func ParseKind(name string) (Kind, bool) {
	kind := Kind(name)
	if !kind.Valid() {
		return "", false
	}
	return kind, true
}

// Directive is one action instruction carried by a reply.
type Directive struct {
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload"`
}

// ParsedResponse is the structured form of one raw assistant reply.
type ParsedResponse struct {
	DisplayText string     `json:"display_text"`
	SpeechText  string     `json:"speech_text"`
	Directive   *Directive `json:"directive,omitempty"`
	Suggestions []string   `json:"suggestions"`
}
