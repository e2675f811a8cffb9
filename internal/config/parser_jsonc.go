package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Gemini    *jsoncGemini    `json:"gemini"`
	Listen    *jsoncListen    `json:"listen"`
	Speech    *jsoncSpeech    `json:"speech"`
	Platform  *jsoncPlatform  `json:"platform"`
	Indicator *jsoncIndicator `json:"indicator"`
	Audio     *jsoncAudio     `json:"audio"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncGemini struct {
	APIKey *string `json:"api_key"`
	Model  *string `json:"model"`
}

type jsoncListen struct {
	Command      *string `json:"command"`
	Lang         *string `json:"lang"`
	MaxSessionMS *int    `json:"max_session_ms"`
}

type jsoncSpeech struct {
	Command       *string       `json:"command"`
	Voices        *[]jsoncVoice `json:"voices"`
	VoicesCommand *string       `json:"voices_command"`
	HealthGRPC    *string       `json:"health_grpc"`
}

type jsoncVoice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type jsoncPlatform struct {
	NotifyBackend  *string `json:"notify_backend"`
	OpenCmd        *string `json:"open_cmd"`
	SearchURL      *string `json:"search_url"`
	DesktopAppName *string `json:"desktop_app_name"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	SoundStartFile *string `json:"sound_start_file"`
	SoundStopFile  *string `json:"sound_stop_file"`
	TextListening  *string `json:"text_listening"`
	TextError      *string `json:"text_error"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncDebug struct {
	GRPCDump *bool `json:"grpc_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Gemini != nil {
		if payload.Gemini.APIKey != nil {
			cfg.Gemini.APIKey = strings.TrimSpace(*payload.Gemini.APIKey)
		}
		if payload.Gemini.Model != nil {
			cfg.Gemini.Model = strings.TrimSpace(*payload.Gemini.Model)
		}
	}

	if payload.Listen != nil {
		if payload.Listen.Command != nil {
			command, err := commandFrom("listen.command", *payload.Listen.Command)
			if err != nil {
				return nil, err
			}
			cfg.Listen.Command = command
		}
		if payload.Listen.Lang != nil {
			cfg.Listen.Lang = strings.TrimSpace(*payload.Listen.Lang)
		}
		if payload.Listen.MaxSessionMS != nil {
			cfg.Listen.MaxSessionMS = *payload.Listen.MaxSessionMS
		}
	}

	if payload.Speech != nil {
		if payload.Speech.Command != nil {
			command, err := commandFrom("speech.command", *payload.Speech.Command)
			if err != nil {
				return nil, err
			}
			cfg.Speech.Command = command
		}
		if payload.Speech.Voices != nil {
			cfg.Speech.Voices = make([]VoiceConfig, 0, len(*payload.Speech.Voices))
			for _, voice := range *payload.Speech.Voices {
				cfg.Speech.Voices = append(cfg.Speech.Voices, VoiceConfig{
					Name: strings.TrimSpace(voice.Name),
					Lang: strings.TrimSpace(voice.Lang),
				})
			}
		}
		if payload.Speech.VoicesCommand != nil {
			command, err := commandFrom("speech.voices_command", *payload.Speech.VoicesCommand)
			if err != nil {
				return nil, err
			}
			cfg.Speech.VoicesCommand = command
		}
		if payload.Speech.HealthGRPC != nil {
			cfg.Speech.HealthGRPC = strings.TrimSpace(*payload.Speech.HealthGRPC)
		}
	}

	if payload.Platform != nil {
		if payload.Platform.NotifyBackend != nil {
			cfg.Platform.NotifyBackend = strings.TrimSpace(*payload.Platform.NotifyBackend)
		}
		if payload.Platform.OpenCmd != nil {
			command, err := commandFrom("platform.open_cmd", *payload.Platform.OpenCmd)
			if err != nil {
				return nil, err
			}
			cfg.Platform.Open = command
		}
		if payload.Platform.SearchURL != nil {
			cfg.Platform.SearchURL = strings.TrimSpace(*payload.Platform.SearchURL)
		}
		if payload.Platform.DesktopAppName != nil {
			cfg.Platform.DesktopAppName = strings.TrimSpace(*payload.Platform.DesktopAppName)
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*payload.Indicator.Backend)
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.SoundStartFile != nil {
			cfg.Indicator.SoundStartFile = strings.TrimSpace(*payload.Indicator.SoundStartFile)
		}
		if payload.Indicator.SoundStopFile != nil {
			cfg.Indicator.SoundStopFile = strings.TrimSpace(*payload.Indicator.SoundStopFile)
		}
		if payload.Indicator.TextListening != nil {
			cfg.Indicator.TextListening = *payload.Indicator.TextListening
		}
		if payload.Indicator.TextError != nil {
			cfg.Indicator.TextError = *payload.Indicator.TextError
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Debug != nil && payload.Debug.GRPCDump != nil {
		cfg.Debug.EnableGRPCDump = *payload.Debug.GRPCDump
	}

	return warnings, nil
}

func commandFrom(key string, raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
