// Package notify provides goCred notifiers and the message bodies the engine
// sends through them.
//
// [SMTP] delivers email over STARTTLS. [Log] writes messages to a slog
// logger for development, [Recorder] captures them for tests, and [Router]
// splits email and mobile channels between two notifiers. There is no SMS
// gateway; mobile channels are usually routed to [Log].
package notify
