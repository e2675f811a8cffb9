package desktop

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifySendsBusctlCallAndParsesID(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 42'
`)

	id, err := Notify(context.Background(), Notification{
		AppName:   "damien",
		ReplaceID: 7,
		Summary:   "Opening application",
		TimeoutMS: 3000,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	require.True(t, strings.HasPrefix(line, "--user call org.freedesktop.Notifications"))
	require.Contains(t, line, "Notify susssasa{sv}i damien 7  Opening application  0 0 3000")
}

func TestNotifyRejectsInvalidResponse(t *testing.T) {
	installBusctlStub(t, `
echo 's nope'
`)

	_, err := Notify(context.Background(), Notification{AppName: "damien", Summary: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid response")
}

func TestNotifySurfacesCommandOutputOnFailure(t *testing.T) {
	installBusctlStub(t, `
echo 'no session bus' >&2
exit 1
`)

	_, err := Notify(context.Background(), Notification{AppName: "damien", Summary: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no session bus")
}

func TestDismissClosesByID(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	require.NoError(t, Dismiss(context.Background(), 42))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), "CloseNotification u 42"))
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
