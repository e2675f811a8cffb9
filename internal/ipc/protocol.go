package ipc

// Commands accepted by the owner process.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandListen = "listen"
	CommandStop   = "stop"
	CommandAsk    = "ask"
)

// Request is one newline-delimited JSON command sent to the owner process.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Response is the owner's reply. State carries the listen state; Message the
// human-readable outcome (assistant reply text for ask).
type Response struct {
	OK          bool     `json:"ok"`
	State       string   `json:"state,omitempty"`
	Message     string   `json:"message,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Failure builds an error response.
func Failure(state string, err error) Response {
	return Response{OK: false, State: state, Error: err.Error()}
}
