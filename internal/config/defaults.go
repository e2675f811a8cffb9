package config

// DefaultSearchURL is the query prefix used for web searches.
const DefaultSearchURL = "https://www.google.com/search?q="

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	speech := "espeak-ng --stdin -v {voice}"
	open := "xdg-open"

	return Config{
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		Listen: ListenConfig{Lang: "en-US"},
		Speech: SpeechConfig{
			Command: CommandConfig{Raw: speech, Argv: mustParseArgv(speech)},
		},
		Platform: PlatformConfig{
			NotifyBackend:  "desktop",
			Open:           CommandConfig{Raw: open, Argv: mustParseArgv(open)},
			SearchURL:      DefaultSearchURL,
			DesktopAppName: "damien",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "damien-indicator",
			SoundEnable:    true,
			TextListening:  "Listening…",
			TextError:      "Speech recognition error",
			ErrorTimeoutMS: 1600,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
	}
}
