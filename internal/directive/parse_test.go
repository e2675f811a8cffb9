package directive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlainTextPassesThrough(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"Hello there!",
		"  padded reply with *emphasis*  \n",
		"[not a marker] and [ACTION: broken",
	}

	for _, input := range inputs {
		resp := Parse(input)
		require.Equal(t, CleanDisplay(input), resp.DisplayText)
		require.Nil(t, resp.Directive)
		require.Empty(t, resp.Suggestions)
		require.NotNil(t, resp.Suggestions)
	}

	require.Equal(t, "padded reply with *emphasis*", Parse("  padded reply with *emphasis*  \n").DisplayText)
}

func TestParseExtractsOpenAppDirective(t *testing.T) {
	resp := Parse("[ACTION: OPEN_APP, PAYLOAD: 'Spotify'] I'm opening Spotify for you.")

	require.NotNil(t, resp.Directive)
	require.Equal(t, Directive{Kind: KindOpenApp, Payload: "Spotify"}, *resp.Directive)
	require.Equal(t, "I'm opening Spotify for you.", resp.DisplayText)
	require.NotContains(t, resp.DisplayText, "ACTION")
}

func TestParseEveryKind(t *testing.T) {
	tests := []struct {
		raw  string
		want Directive
	}{
		{raw: "[ACTION: SEARCH_WEB, PAYLOAD: 'latest news']", want: Directive{Kind: KindSearchWeb, Payload: "latest news"}},
		{raw: "[ACTION: WRITE_EXCEL, PAYLOAD: 'Data: Sales, Q4']", want: Directive{Kind: KindWriteExcel, Payload: "Data: Sales, Q4"}},
		{raw: "[ACTION: TYPE_TEXT, PAYLOAD: 'Hello world']", want: Directive{Kind: KindTypeText, Payload: "Hello world"}},
		{raw: "[ACTION: OPEN_WEBSITE, PAYLOAD: 'docs.google.com']", want: Directive{Kind: KindOpenWebsite, Payload: "docs.google.com"}},
		{raw: "[ACTION: OPEN_APP, PAYLOAD: '']", want: Directive{Kind: KindOpenApp, Payload: ""}},
	}

	for _, tc := range tests {
		t.Run(string(tc.want.Kind), func(t *testing.T) {
			resp := Parse(tc.raw)
			require.NotNil(t, resp.Directive)
			require.Equal(t, tc.want, *resp.Directive)
			require.Empty(t, resp.DisplayText)
		})
	}
}

func TestParseUnknownActionIsStrippedWithoutDirective(t *testing.T) {
	resp := Parse("[ACTION: LAUNCH_ROCKET, PAYLOAD: 'moon'] Liftoff!")

	require.Nil(t, resp.Directive)
	require.Equal(t, "Liftoff!", resp.DisplayText)
}

func TestParseActionNameIsCaseSensitive(t *testing.T) {
	resp := Parse("[ACTION: open_app, PAYLOAD: 'Spotify'] ok")

	require.Nil(t, resp.Directive)
	require.Equal(t, "ok", resp.DisplayText)
}

func TestParseMalformedActionIsLeftInPlace(t *testing.T) {
	raw := "[ACTION: OPEN_APP, PAYLOAD: \"Spotify\"] ok"
	resp := Parse(raw)

	require.Nil(t, resp.Directive)
	require.Equal(t, raw, resp.DisplayText)
}

// Only the first action marker yields a directive and only it is removed;
// the second marker stays in the display text verbatim.
func TestParseSecondActionIsNotDispatchedAndRemainsInText(t *testing.T) {
	raw := "[ACTION: OPEN_APP, PAYLOAD: 'Spotify'] Opening both. [ACTION: SEARCH_WEB, PAYLOAD: 'jazz']"
	resp := Parse(raw)

	require.NotNil(t, resp.Directive)
	require.Equal(t, Directive{Kind: KindOpenApp, Payload: "Spotify"}, *resp.Directive)
	require.Equal(t, "Opening both. [ACTION: SEARCH_WEB, PAYLOAD: 'jazz']", resp.DisplayText)
}

func TestParseFirstActionUnknownShadowsLaterValidAction(t *testing.T) {
	raw := "[ACTION: NOPE, PAYLOAD: 'x'] then [ACTION: OPEN_APP, PAYLOAD: 'Spotify']"
	resp := Parse(raw)

	require.Nil(t, resp.Directive)
	require.Equal(t, "then [ACTION: OPEN_APP, PAYLOAD: 'Spotify']", resp.DisplayText)
}

func TestParseSuggestionsKeepOrder(t *testing.T) {
	raw := "Here is a summary.\n[SUGGESTION: 'A'] [SUGGESTION: 'B']\n[SUGGESTION: 'Extract all action items']"
	resp := Parse(raw)

	require.Equal(t, []string{"A", "B", "Extract all action items"}, resp.Suggestions)
	require.Equal(t, "Here is a summary.", resp.DisplayText)
}

func TestParseActionAndSuggestionsTogether(t *testing.T) {
	raw := "[SUGGESTION: 'Play jazz'] [ACTION: OPEN_APP, PAYLOAD: 'Spotify'] Opening Spotify. [SUGGESTION: 'Pause']"
	resp := Parse(raw)

	require.NotNil(t, resp.Directive)
	require.Equal(t, KindOpenApp, resp.Directive.Kind)
	require.Equal(t, []string{"Play jazz", "Pause"}, resp.Suggestions)
	require.Equal(t, "Opening Spotify.", resp.DisplayText)
}

func TestParseSpeechTextFlattensLinks(t *testing.T) {
	raw := "See [the docs](https://react.dev) and [MDN](https://developer.mozilla.org) for *more*."
	resp := Parse(raw)

	require.Equal(t, raw, resp.DisplayText)
	require.Equal(t, "See the docs and MDN for *more*.", resp.SpeechText)
}

func TestCleanDisplayIdempotentOnCleanedText(t *testing.T) {
	inputs := []string{
		"plain text",
		"[ACTION: OPEN_APP, PAYLOAD: 'Spotify'] Opening. [SUGGESTION: 'Next']",
		"  [SUGGESTION: 'one'] middle [SUGGESTION: 'two']  ",
		"[link](https://example.com) stays",
	}

	for _, input := range inputs {
		once := CleanDisplay(input)
		require.Equal(t, once, CleanDisplay(once), "input %q", input)
	}
}

// A second action marker survives the first pass, so a second pass removes it.
func TestCleanDisplaySecondPassConsumesLeftoverAction(t *testing.T) {
	once := CleanDisplay("[ACTION: OPEN_APP, PAYLOAD: 'a'] x [ACTION: OPEN_APP, PAYLOAD: 'b']")
	require.Equal(t, "x [ACTION: OPEN_APP, PAYLOAD: 'b']", once)
	require.Equal(t, "x", CleanDisplay(once))
}

func TestCleanSpeechIdempotent(t *testing.T) {
	once := CleanSpeech("go to [site](https://x.y) now")
	require.Equal(t, "go to site now", once)
	require.Equal(t, once, CleanSpeech(once))
}

func TestParseKind(t *testing.T) {
	kind, ok := ParseKind("OPEN_WEBSITE")
	require.True(t, ok)
	require.Equal(t, KindOpenWebsite, kind)

	_, ok = ParseKind("OPEN_WEBSITES")
	require.False(t, ok)
	require.False(t, Kind("").Valid())
}
