package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rbright/damien/internal/assistant"
	"github.com/rbright/damien/internal/speak"
)

// maxAttachmentBytes bounds inline file uploads.
const maxAttachmentBytes = 20 << 20

// chat reads one turn per stdin line until EOF, /quit or ctx cancellation.
func (o *owner) chat(ctx context.Context, in io.Reader) error {
	if in == nil {
		<-ctx.Done()
		return nil
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read chat input: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := o.handleLine(ctx, line); quit {
				return nil
			}
		}
	}
}

// handleLine runs one chat line and reports whether the session should end.
func (o *owner) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		o.send(ctx, assistant.Input{Text: line, Kind: assistant.KindText})
		return false
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	if n, err := strconv.Atoi(name); err == nil {
		suggestion, ok := o.assistant.SuggestionAt(n)
		if !ok {
			o.console.warn(fmt.Sprintf("no suggestion %d", n))
			return false
		}
		o.send(ctx, assistant.Input{Text: suggestion, Kind: assistant.KindText})
		return false
	}

	switch name {
	case "quit", "exit":
		return true
	case "file":
		o.sendFile(ctx, rest)
	case "listen":
		if err := o.listen.StartListening(ctx); err != nil {
			o.console.warn(err.Error())
		}
	case "stop":
		if err := o.listen.StopListening(ctx); err != nil {
			o.console.warn(err.Error())
		}
	case "quiet":
		o.speech.Cancel(ctx)
	case "stats":
		o.console.stats(o.assistant.InteractionCounts())
	case "voices":
		if err := o.voiceRefresh(ctx); err != nil {
			o.console.warn(err.Error())
		}
		o.console.voices(o.speech.Voices())
	default:
		o.console.warn(fmt.Sprintf("unknown chat command /%s", name))
	}
	return false
}

func (o *owner) send(ctx context.Context, in assistant.Input) {
	reply, ok := o.assistant.Send(ctx, in)
	if ok {
		o.console.reply(reply)
	}
}

// sendFile parses "PATH [prompt]" and sends the file as a turn.
func (o *owner) sendFile(ctx context.Context, args string) {
	path, prompt, _ := strings.Cut(args, " ")
	if path == "" {
		o.console.warn("usage: /file PATH [prompt]")
		return
	}

	attachment, err := readAttachment(path)
	if err != nil {
		o.console.warn(err.Error())
		return
	}
	o.send(ctx, assistant.Input{
		Text:       strings.TrimSpace(prompt),
		Kind:       assistant.KindFile,
		Attachment: &attachment,
	})
}

// readAttachment loads path and infers its MIME type from the extension,
// falling back to content sniffing.
func readAttachment(path string) (assistant.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return assistant.Attachment{}, fmt.Errorf("attach %s: %w", path, err)
	}
	if info.IsDir() {
		return assistant.Attachment{}, fmt.Errorf("attach %s: is a directory", path)
	}
	if info.Size() > maxAttachmentBytes {
		return assistant.Attachment{}, fmt.Errorf("attach %s: file exceeds %d MiB", path, maxAttachmentBytes>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return assistant.Attachment{}, fmt.Errorf("attach %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}

	return assistant.Attachment{Name: filepath.Base(path), MIMEType: mimeType, Data: data}, nil
}

// console serializes chat output from the REPL, IPC and voice turns.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	if out == nil {
		out = io.Discard
	}
	return &console{out: out}
}

// Write lets other components (the stdout notify backend) share the console.
func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *console) greet(history []assistant.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range history {
		fmt.Fprintf(c.out, "damien> %s\n", msg.Content)
	}
}

func (c *console) userLine(kind assistant.Kind, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "you (%s)> %s\n", kind, text)
}

func (c *console) reply(reply assistant.Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "damien> %s\n", reply.Message.Content)
	for i, suggestion := range reply.Parsed.Suggestions {
		fmt.Fprintf(c.out, "  [%d] %s\n", i+1, suggestion)
	}
}

// voiceReply echoes the transcript of a voice turn before its reply.
func (c *console) voiceReply(reply assistant.Reply) {
	c.userLine(reply.Input.Kind, reply.Input.Text)
	c.reply(reply)
}

func (c *console) warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "! %s\n", msg)
}

// voices lists the voice cache and marks the one replies are spoken with.
func (c *console) voices(voices []speak.Voice) {
	selected, ok := speak.SelectVoice(voices)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(voices) == 0 {
		fmt.Fprintln(c.out, "voices: none (engine default)")
		return
	}
	fmt.Fprintf(c.out, "voices: %d\n", len(voices))
	for _, v := range voices {
		mark := " "
		if ok && v == selected {
			mark = "*"
		}
		lang := v.Lang
		if lang == "" {
			lang = "?"
		}
		fmt.Fprintf(c.out, "  %s %s (%s)\n", mark, v.Name, lang)
	}
}

func (c *console) stats(counts map[assistant.Kind]int) {
	kinds := make([]string, 0, len(counts))
	total := 0
	for kind, n := range counts {
		kinds = append(kinds, string(kind))
		total += n
	}
	sort.Strings(kinds)

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "interactions: %d\n", total)
	for _, kind := range kinds {
		fmt.Fprintf(c.out, "  %s: %d\n", kind, counts[assistant.Kind(kind)])
	}
}
