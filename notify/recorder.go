package notify

import (
	"context"
	"sync"
)

// Message is one notification captured by a Recorder.
type Message struct {
	Channel string
	Subject string
	Body    string
}

// Recorder keeps every message in memory. It is safe for concurrent use
// and is meant for tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the message, or returns the error set by FailWith without
// recording anything.
func (r *Recorder) Send(ctx context.Context, channel, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, Message{Channel: channel, Subject: subject, Body: body})
	return nil
}

// FailWith makes subsequent sends fail with err. A nil err restores
// normal behaviour.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns the number of recorded messages.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Last returns the most recent message sent to channel.
func (r *Recorder) Last(channel string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Channel == channel {
			return r.messages[i], true
		}
	}
	return Message{}, false
}

// Reset drops every recorded message.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
