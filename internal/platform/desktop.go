// Package platform implements the desktop side of directive dispatch.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/rbright/damien/internal/config"
	"github.com/rbright/damien/internal/desktop"
	"github.com/rbright/damien/internal/hypr"
)

const notifyTimeoutMS = 5000

// Desktop notifies the user and opens URLs on the local session.
type Desktop struct {
	cfg    config.PlatformConfig
	out    io.Writer
	logger *slog.Logger
}

// New builds a desktop platform. out receives notifications for the stdout backend.
func New(cfg config.PlatformConfig, out io.Writer, logger *slog.Logger) *Desktop {
	if out == nil {
		out = io.Discard
	}
	return &Desktop{cfg: cfg, out: out, logger: logger}
}

// Notify shows message through the configured notification backend.
func (d *Desktop) Notify(ctx context.Context, message string) error {
	switch strings.ToLower(strings.TrimSpace(d.cfg.NotifyBackend)) {
	case "hypr":
		return hypr.Notify(ctx, hypr.IconInfo, notifyTimeoutMS, "rgb(a6e3a1)", message)
	case "stdout":
		_, err := fmt.Fprintln(d.out, message)
		return err
	default:
		appName := strings.TrimSpace(d.cfg.DesktopAppName)
		if appName == "" {
			appName = "damien"
		}
		_, err := desktop.Notify(ctx, desktop.Notification{
			AppName:   appName,
			Summary:   "DAMIEN",
			Body:      message,
			TimeoutMS: notifyTimeoutMS,
		})
		return err
	}
}

// OpenURL launches the configured opener with url and returns once it has
// started. The opener is reaped in the background.
func (d *Desktop) OpenURL(_ context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("url must not be empty")
	}
	if len(d.cfg.Open.Argv) == 0 {
		return errors.New("open command is not configured")
	}

	argv := append(append([]string(nil), d.cfg.Open.Argv...), url)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start opener %s: %w", argv[0], err)
	}

	go func() {
		if err := cmd.Wait(); err != nil && d.logger != nil {
			d.logger.Debug("opener exited with error", "command", argv[0], "error", err.Error())
		}
	}()
	return nil
}
