package assistant

import (
	"context"
	"time"

	"github.com/rbright/damien/internal/directive"
)

// Kind is how a turn entered the pipeline.
type Kind string

const (
	KindText  Kind = "text"
	KindVoice Kind = "voice"
	KindFile  Kind = "file"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser   Role = "user"
	RoleDamien Role = "damien"
)

const (
	// Greeting seeds every conversation.
	Greeting = "Hello! I am DAMIEN, your intelligent assistant. How can I help you today?"
	// ErrorReply replaces the assistant message when generation fails.
	ErrorReply = "Sorry, I encountered an error. Please try again."
)

// Attachment is a file sent alongside a prompt.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Prompt is one generation request.
type Prompt struct {
	Text       string
	Attachment *Attachment
}

// Generator produces the raw reply text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Dispatcher performs the side effect of a parsed directive.
type Dispatcher interface {
	Dispatch(ctx context.Context, d directive.Directive)
}

// Speaker voices reply text.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Input is one user turn.
type Input struct {
	Text       string
	Kind       Kind
	Attachment *Attachment
}

// Message is one chat history entry.
type Message struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Attachment string    `json:"attachment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalyticsEntry records one successful interaction.
type AnalyticsEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Response  string    `json:"response"`
	Kind      Kind      `json:"type"`
}

// Reply is the outcome of one turn.
type Reply struct {
	Input   Input
	Message Message
	Parsed  directive.ParsedResponse
	Err     error
}
