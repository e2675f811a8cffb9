// Package cli parses the damien command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandAsk     Command = "ask"
	CommandToggle  Command = "toggle"
	CommandListen  Command = "listen"
	CommandStop    Command = "stop"
	CommandStatus  Command = "status"
	CommandParse   Command = "parse"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:     {},
	CommandAsk:     {},
	CommandToggle:  {},
	CommandListen:  {},
	CommandStop:    {},
	CommandStatus:  {},
	CommandParse:   {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Parsed is the resolved invocation. Text is only set for ask.
type Parsed struct {
	Command    Command
	ConfigPath string
	Text       string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if cmd == CommandAsk {
				parsed.Text = strings.TrimSpace(strings.Join(rest, " "))
				if parsed.Text == "" {
					return Parsed{}, errors.New("ask requires a message")
				}
				return parsed, nil
			}
			if len(rest) != 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run       Start the assistant: chat on stdin, voice input, IPC control
  ask TEXT  Send one message to the running assistant and print the reply
  toggle    Start listening, or stop when already listening
  listen    Start listening
  stop      Stop listening
  status    Print the listen state (idle or listening) and current suggestions
  parse     Read an AI reply on stdin and print the parsed response as JSON
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Chat commands (run):
  /N                 Send quick-reply suggestion N
  /file PATH [TEXT]  Attach a file, optionally with a question
  /listen, /stop     Control the microphone
  /quiet             Stop speaking
  /voices            Refresh and list speech voices (* marks the one in use)
  /stats             Print interaction counts
  /quit, /exit       Leave the chat (EOF works too)

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/damien/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
