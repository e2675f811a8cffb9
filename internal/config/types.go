// Package config resolves, parses, validates, and defaults damien configuration.
package config

// Config is the fully materialized runtime configuration used by damien.
type Config struct {
	Gemini    GeminiConfig
	Listen    ListenConfig
	Speech    SpeechConfig
	Platform  PlatformConfig
	Indicator IndicatorConfig
	Audio     AudioConfig
	Debug     DebugConfig
}

// GeminiConfig selects the generative backend model and credentials.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ListenConfig controls the speech-to-text command and session limits.
type ListenConfig struct {
	Command      CommandConfig
	Lang         string
	MaxSessionMS int
}

// SpeechConfig controls the text-to-speech command and its advertised voices.
type SpeechConfig struct {
	Command CommandConfig
	Voices  []VoiceConfig
	// VoicesCommand lists installed voices at runtime, one "name<TAB>lang" per line.
	VoicesCommand CommandConfig
	HealthGRPC    string
}

// VoiceConfig is one voice the TTS command accepts for {voice}.
type VoiceConfig struct {
	Name string
	Lang string
}

// PlatformConfig controls how directives reach the desktop.
type PlatformConfig struct {
	NotifyBackend  string
	Open           CommandConfig
	SearchURL      string
	DesktopAppName string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	SoundStartFile string
	SoundStopFile  string
	TextListening  string
	TextError      string
	ErrorTimeoutMS int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug output.
type DebugConfig struct {
	EnableGRPCDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
