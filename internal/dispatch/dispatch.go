// Package dispatch turns parsed directives into desktop side effects.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/damien/internal/directive"
)

// DefaultSearchURL is the query prefix used for web searches.
const DefaultSearchURL = "https://www.google.com/search?q="

// Platform is the desktop surface a dispatcher acts on.
type Platform interface {
	Notify(ctx context.Context, message string) error
	OpenURL(ctx context.Context, url string) error
}

// Dispatcher performs the side effect for one directive per reply.
type Dispatcher struct {
	platform  Platform
	searchURL string
	logger    *slog.Logger
}

// New constructs a dispatcher. An empty searchURL selects DefaultSearchURL.
func New(platform Platform, searchURL string, logger *slog.Logger) *Dispatcher {
	if strings.TrimSpace(searchURL) == "" {
		searchURL = DefaultSearchURL
	}
	return &Dispatcher{platform: platform, searchURL: searchURL, logger: logger}
}

// Dispatch fires the side effect for d. Platform failures are not reported
// back to the caller; they only reach the debug log.
func (d *Dispatcher) Dispatch(ctx context.Context, dir directive.Directive) {
	if d.platform == nil {
		return
	}
	d.logInfo("dispatch directive", "kind", string(dir.Kind), "payload", dir.Payload)

	switch dir.Kind {
	case directive.KindOpenApp:
		d.notify(ctx, fmt.Sprintf(`Simulating: Opening application "%s"`, dir.Payload))
	case directive.KindWriteExcel:
		d.notify(ctx, fmt.Sprintf(`Simulating: Writing to Excel with data: "%s"`, dir.Payload))
	case directive.KindTypeText:
		d.notify(ctx, fmt.Sprintf(`Simulating: Typing text: "%s"`, dir.Payload))
	case directive.KindSearchWeb:
		d.open(ctx, SearchURL(d.searchURL, dir.Payload))
	case directive.KindOpenWebsite:
		d.open(ctx, ResolveWebsite(dir.Payload, d.searchURL))
	}
}

func (d *Dispatcher) notify(ctx context.Context, message string) {
	if err := d.platform.Notify(ctx, message); err != nil {
		d.logDebug("notify failed", err)
	}
}

func (d *Dispatcher) open(ctx context.Context, url string) {
	if err := d.platform.OpenURL(ctx, url); err != nil {
		d.logDebug("open url failed", err)
	}
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.logger == nil {
		return
	}
	d.logger.Info(msg, args...)
}

func (d *Dispatcher) logDebug(msg string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(msg, "error", err.Error())
}
