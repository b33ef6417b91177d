package notify

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRoute is returned by Router when no notifier is configured for the
// channel's kind.
var ErrNoRoute = errors.New("notify: no route for channel")

// Sender delivers one message to a normalized channel. Every notifier in
// this package implements it, and so does anything that satisfies
// goCred.Notifier.
type Sender interface {
	Send(ctx context.Context, channel, subject, body string) error
}

// isEmail reports whether channel is an email address. Channels reaching a
// notifier are already normalized, so the presence of '@' is enough.
func isEmail(channel string) bool {
	return strings.Contains(channel, "@")
}

// isHTML reports whether body should be sent as text/html.
func isHTML(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), "<")
}
