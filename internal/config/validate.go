package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return nil, fmt.Errorf("gemini.model must not be empty")
	}

	if strings.TrimSpace(cfg.Listen.Lang) == "" {
		return nil, fmt.Errorf("listen.lang must not be empty")
	}
	if cfg.Listen.MaxSessionMS < 0 {
		return nil, fmt.Errorf("listen.max_session_ms must be >= 0")
	}
	if err := validateCommand("listen.command", cfg.Listen.Command); err != nil {
		return nil, err
	}
	if len(cfg.Listen.Command.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "listen.command is empty; speech recognition is disabled"})
	}

	if err := validateCommand("speech.command", cfg.Speech.Command); err != nil {
		return nil, err
	}
	if len(cfg.Speech.Command.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "speech.command is empty; spoken replies are disabled"})
	}
	if err := validateCommand("speech.voices_command", cfg.Speech.VoicesCommand); err != nil {
		return nil, err
	}
	for i, voice := range cfg.Speech.Voices {
		if strings.TrimSpace(voice.Name) == "" {
			return nil, fmt.Errorf("speech.voices[%d].name must not be empty", i)
		}
		if strings.TrimSpace(voice.Lang) == "" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("speech.voices[%d] %q has no lang; it can only be chosen by name", i, voice.Name)})
		}
	}

	notify := strings.ToLower(strings.TrimSpace(cfg.Platform.NotifyBackend))
	switch notify {
	case "desktop", "hypr", "stdout":
	case "":
		return nil, fmt.Errorf("platform.notify_backend must not be empty")
	default:
		return nil, fmt.Errorf("platform.notify_backend must be one of: desktop, hypr, stdout")
	}
	if notify == "desktop" && strings.TrimSpace(cfg.Platform.DesktopAppName) == "" {
		return nil, fmt.Errorf("platform.desktop_app_name must not be empty when platform.notify_backend=desktop")
	}
	if len(cfg.Platform.Open.Argv) == 0 {
		return nil, fmt.Errorf("platform.open_cmd must not be empty")
	}
	searchURL := strings.ToLower(strings.TrimSpace(cfg.Platform.SearchURL))
	if searchURL == "" {
		return nil, fmt.Errorf("platform.search_url must not be empty")
	}
	if !strings.HasPrefix(searchURL, "http://") && !strings.HasPrefix(searchURL, "https://") {
		return nil, fmt.Errorf("platform.search_url must start with http:// or https://")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	return warnings, nil
}

func validateCommand(key string, cmd CommandConfig) error {
	if strings.TrimSpace(cmd.Raw) != "" && !strings.HasPrefix(strings.TrimSpace(cmd.Raw), "#") && len(cmd.Argv) == 0 {
		return fmt.Errorf("%s is configured but empty", key)
	}
	return nil
}
