package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/damien/internal/speak"
	"github.com/stretchr/testify/require"
)

func TestCommandSynthesizerWritesTextAndArgs(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "text.txt")
	argsFile := filepath.Join(dir, "args.txt")
	script := writeScript(t, "tts.sh", `#!/usr/bin/env bash
set -euo pipefail
printf '%s\n' "$*" > "`+argsFile+`.tmp"
cat > "`+textFile+`"
mv "`+argsFile+`.tmp" "`+argsFile+`"
`)

	synth := NewCommandSynthesizer([]string{script, "-v", "{voice}", "-l", "{lang}", "-r", "{rate}", "-p", "{pitch}"}, nil, nil)
	err := synth.Speak(context.Background(), speak.Utterance{
		Text:  "hello there",
		Lang:  "en-US",
		Pitch: 1.0,
		Rate:  1.1,
		Voice: &speak.Voice{Name: "en-us+m3", Lang: "en-US"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := os.Stat(argsFile)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "-v en-us+m3 -l en-US -r 1.1 -p 1", strings.TrimSpace(string(args)))

	text, err := os.ReadFile(textFile)
	require.NoError(t, err)
	require.Equal(t, "hello there", string(text))
}

func TestCommandSynthesizerDropsVoiceFlagForEngineDefault(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, "tts.sh", `#!/usr/bin/env bash
cat > /dev/null
printf '%s\n' "$*" > "`+argsFile+`.tmp"
mv "`+argsFile+`.tmp" "`+argsFile+`"
`)

	synth := NewCommandSynthesizer([]string{script, "-v", "{voice}", "-l", "{lang}"}, nil, nil)
	require.NoError(t, synth.Speak(context.Background(), speak.Utterance{Text: "hi", Lang: "en-US"}))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(argsFile)
		return err == nil && strings.TrimSpace(string(data)) == "-l en-US"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCommandSynthesizerSkipsEmptyText(t *testing.T) {
	synth := NewCommandSynthesizer([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	require.NoError(t, synth.Speak(context.Background(), speak.Utterance{Text: "  "}))
}

func TestCommandSynthesizerCancelKillsActiveUtterance(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "finished")
	script := writeScript(t, "tts.sh", `#!/usr/bin/env bash
cat > /dev/null
sleep 2
touch "`+marker+`"
`)

	synth := NewCommandSynthesizer([]string{script}, nil, nil)
	require.NoError(t, synth.Speak(context.Background(), speak.Utterance{Text: "long reply"}))
	require.NoError(t, synth.Cancel(context.Background()))
	require.NoError(t, synth.Cancel(context.Background()))

	time.Sleep(2500 * time.Millisecond)
	_, err := os.Stat(marker)
	require.True(t, os.IsNotExist(err))
}

func TestCommandSynthesizerVoicesAreCopied(t *testing.T) {
	voices := []speak.Voice{{Name: "en-us", Lang: "en-US"}}
	synth := NewCommandSynthesizer([]string{"true"}, voices, nil)
	voices[0].Name = "mutated"

	got := synth.Voices()
	require.Equal(t, "en-us", got[0].Name)
	got[0].Name = "changed"
	require.Equal(t, "en-us", synth.Voices()[0].Name)
}

func TestCommandSynthesizerStartFailure(t *testing.T) {
	synth := NewCommandSynthesizer([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	err := synth.Speak(context.Background(), speak.Utterance{Text: "hi"})
	require.ErrorContains(t, err, "start synthesizer")
}

func TestCommandSynthesizerRefreshVoicesNotifiesOnChange(t *testing.T) {
	listFile := filepath.Join(t.TempDir(), "voices.txt")
	require.NoError(t, os.WriteFile(listFile, []byte("# installed\nen-us\ten-US\n\nde\tde-DE\n"), 0o600))
	lister := writeScript(t, "voices.sh", "#!/usr/bin/env bash\ncat '"+listFile+"'\n")

	synth := NewCommandSynthesizer([]string{"true"}, []speak.Voice{{Name: "configured", Lang: "en-US"}}, nil)
	synth.UseVoiceList([]string{lister})

	var lists [][]speak.Voice
	synth.OnVoicesChanged(func(v []speak.Voice) { lists = append(lists, v) })
	require.Equal(t, [][]speak.Voice{{{Name: "configured", Lang: "en-US"}}}, lists)

	require.NoError(t, synth.RefreshVoices(context.Background()))
	require.Len(t, lists, 2)
	require.Equal(t, []speak.Voice{{Name: "en-us", Lang: "en-US"}, {Name: "de", Lang: "de-DE"}}, lists[1])
	require.Equal(t, lists[1], synth.Voices())

	require.NoError(t, synth.RefreshVoices(context.Background()))
	require.Len(t, lists, 2)

	require.NoError(t, os.WriteFile(listFile, []byte("Microsoft David\ten-US\n"), 0o600))
	require.NoError(t, synth.RefreshVoices(context.Background()))
	require.Len(t, lists, 3)
	require.Equal(t, []speak.Voice{{Name: "Microsoft David", Lang: "en-US"}}, lists[2])
}

func TestCommandSynthesizerRefreshVoicesFailureKeepsList(t *testing.T) {
	lister := writeScript(t, "voices.sh", "#!/usr/bin/env bash\necho 'no voices installed' >&2\nexit 3\n")

	synth := NewCommandSynthesizer([]string{"true"}, []speak.Voice{{Name: "configured"}}, nil)
	synth.UseVoiceList([]string{lister})

	err := synth.RefreshVoices(context.Background())
	require.ErrorContains(t, err, "list voices")
	require.ErrorContains(t, err, "no voices installed")
	require.Equal(t, []speak.Voice{{Name: "configured"}}, synth.Voices())
}

func TestCommandSynthesizerRefreshVoicesWithoutListCommand(t *testing.T) {
	synth := NewCommandSynthesizer([]string{"true"}, nil, nil)
	require.NoError(t, synth.RefreshVoices(context.Background()))
	require.Empty(t, synth.Voices())
}
