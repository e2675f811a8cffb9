// Package engine runs external speech-to-text and text-to-speech commands.
package engine

import "strings"

// expandArgv substitutes {name} placeholders in argv.
//
// An element that is exactly one placeholder with an empty value is dropped
// together with a preceding flag ("-v {voice}"). Any other element that
// references an empty placeholder is dropped on its own ("--voice={voice}").
func expandArgv(argv []string, values map[string]string) []string {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		expanded, empty := expandArg(arg, values)
		if !empty {
			out = append(out, expanded)
			continue
		}
		if isPlaceholder(arg) {
			if n := len(out); n > 0 && strings.HasPrefix(out[n-1], "-") {
				out = out[:n-1]
			}
		}
	}
	return out
}

func expandArg(arg string, values map[string]string) (string, bool) {
	empty := false
	for name, value := range values {
		token := "{" + name + "}"
		if !strings.Contains(arg, token) {
			continue
		}
		if value == "" {
			empty = true
		}
		arg = strings.ReplaceAll(arg, token, value)
	}
	return arg, empty
}

func isPlaceholder(arg string) bool {
	return len(arg) > 2 && arg[0] == '{' && arg[len(arg)-1] == '}' && !strings.ContainsAny(arg[1:len(arg)-1], "{}")
}
