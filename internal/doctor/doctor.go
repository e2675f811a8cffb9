// Package doctor runs runtime readiness diagnostics for config, tools, audio, and engines.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/damien/internal/audio"
	"github.com/rbright/damien/internal/config"
	"github.com/rbright/damien/internal/gemini"
	"github.com/rbright/damien/internal/hypr"
)

const levelWindow = 400 * time.Millisecond

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg), checkAPIKey(cfg.Config.Gemini)}

	checks = append(checks, checkCommand(cfg.Config.Platform.Open.Argv, "platform.open"))
	checks = append(checks, checkCommand(cfg.Config.Listen.Command.Argv, "listen.command"))
	checks = append(checks, checkCommand(cfg.Config.Speech.Command.Argv, "speech.command"))

	for _, backend := range notifyBackends(cfg.Config) {
		switch backend {
		case "hypr":
			checks = append(checks, checkHyprland(ctx))
		case "desktop":
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		}
	}

	selection, deviceCheck := checkAudioSelection(ctx, cfg.Config)
	checks = append(checks, deviceCheck)
	if deviceCheck.Pass {
		checks = append(checks, checkAudioLevel(ctx, selection.Device))
	}

	if strings.TrimSpace(cfg.Config.Speech.HealthGRPC) != "" {
		checks = append(checks, checkSpeechHealth(ctx, cfg.Config))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	if n := len(cfg.Warnings); n > 0 && cfg.Exists {
		message = fmt.Sprintf("%s (%d warning(s))", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkAPIKey(cfg config.GeminiConfig) Check {
	if gemini.ResolveAPIKey(cfg) == "" {
		return Check{Name: "gemini.api_key", Pass: false, Message: gemini.ErrMissingAPIKey.Error()}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = gemini.DefaultModel
	}
	return Check{Name: "gemini.api_key", Pass: true, Message: fmt.Sprintf("key present (model %s)", model)}
}

// notifyBackends lists each external notification backend once.
func notifyBackends(cfg config.Config) []string {
	var out []string
	add := func(backend string) {
		backend = strings.ToLower(strings.TrimSpace(backend))
		for _, existing := range out {
			if existing == backend {
				return
			}
		}
		out = append(out, backend)
	}
	add(cfg.Platform.NotifyBackend)
	if cfg.Indicator.Enable {
		add(cfg.Indicator.Backend)
	}
	return out
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkHyprland(ctx context.Context) Check {
	if _, err := exec.LookPath("hyprctl"); err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: "binary not found in PATH: hyprctl"}
	}
	version, err := hypr.QueryVersion(ctx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: err.Error()}
	}
	label := version.Tag
	if label == "" {
		label = version.Commit
	}
	return Check{Name: "hyprctl", Pass: true, Message: fmt.Sprintf("Hyprland %s", label)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) (audio.Selection, Check) {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return audio.Selection{}, Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return selection, Check{Name: "audio.device", Pass: true, Message: message}
}

// checkAudioLevel records a short window from the selected source.
func checkAudioLevel(ctx context.Context, device audio.Device) Check {
	level, err := audio.Sample(ctx, device, levelWindow)
	if err != nil {
		return Check{Name: "audio.level", Pass: false, Message: err.Error()}
	}
	if level.Silent() {
		return Check{
			Name:    "audio.level",
			Pass:    false,
			Message: fmt.Sprintf("no signal from %q (peak %.4f); check mute and gain", device.ID, level.Peak),
		}
	}
	return Check{
		Name:    "audio.level",
		Pass:    true,
		Message: fmt.Sprintf("peak %.3f rms %.3f over %d samples", level.Peak, level.RMS, level.Samples),
	}
}
