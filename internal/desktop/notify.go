// Package desktop talks to the freedesktop notification service over DBus.
package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Notification is one freedesktop Notify request.
type Notification struct {
	AppName string
	// ReplaceID updates an existing notification in place when non-zero.
	ReplaceID uint32
	Summary   string
	Body      string
	TimeoutMS int
}

// Notify sends a freedesktop notification via busctl.
// It returns the notification ID assigned by the server.
func Notify(ctx context.Context, n Notification) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		n.AppName,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"",
		n.Summary,
		n.Body,
		"0", // actions array length
		"0", // hints map length
		strconv.Itoa(n.TimeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return 0, commandError("desktop notify", out, err)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}

// Dismiss requests explicit close by notification ID.
func Dismiss(ctx context.Context, id uint32) error {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		strconv.FormatUint(uint64(id), 10),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return commandError("desktop dismiss", out, err)
	}
	return nil
}

func commandError(op string, out []byte, err error) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
}
