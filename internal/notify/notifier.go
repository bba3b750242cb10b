package notify

import "sync"

// Channel identifies an ON/OFF event channel.
type Channel string

const (
	ChannelDelivery        Channel = "delivery"
	ChannelMailbox         Channel = "mailbox"
	ChannelMailboxEmptying Channel = "mailbox_emptying"
	ChannelBoxEmptying     Channel = "box_emptying"
)

// EventState is the payload of an event channel.
type EventState string

const (
	On  EventState = "ON"
	Off EventState = "OFF"
)

// StateOf maps a boolean to On or Off.
func StateOf(on bool) EventState {
	if on {
		return On
	}
	return Off
}

// Notifier publishes status text and channel events. Implementations must
// not block the caller.
type Notifier interface {
	PublishStatus(text string)
	PublishEvent(channel Channel, state EventState)
}

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Fanout forwards every call to each of its notifiers in order.
type Fanout []Notifier

// PublishStatus implements Notifier.
func (f Fanout) PublishStatus(text string) {
	for _, n := range f {
		n.PublishStatus(text)
	}
}

// PublishEvent implements Notifier.
func (f Fanout) PublishEvent(channel Channel, state EventState) {
	for _, n := range f {
		n.PublishEvent(channel, state)
	}
}

// Event is one recorded PublishEvent call.
type Event struct {
	Channel Channel
	State   EventState
}

// Recorder is a Notifier that keeps everything it is given.
// It backs tests and the dry-run bench.
type Recorder struct {
	mu       sync.Mutex
	statuses []string
	events   []Event
}

// PublishStatus implements Notifier.
func (r *Recorder) PublishStatus(text string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, text)
	r.mu.Unlock()
}

// PublishEvent implements Notifier.
func (r *Recorder) PublishEvent(channel Channel, state EventState) {
	r.mu.Lock()
	r.events = append(r.events, Event{Channel: channel, State: state})
	r.mu.Unlock()
}

// Statuses returns a copy of the recorded status lines.
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
