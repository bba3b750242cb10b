// Package notify reports box activity to the outside world.
//
// The control core talks to a Notifier with two fire-and-forget calls:
// PublishStatus for a human-readable status line and PublishEvent for the
// ON/OFF event channels. Neither call blocks; delivery, retries and
// failure logging belong to the implementation.
//
// MQTTNotifier queues messages and publishes them from its own goroutine.
// ErrorReporter turns a persistent error condition into a single, throttled
// status report and remembers that it did so until recovery clears it.
package notify
