package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/paketbox-core/internal/infrastructure/config"
)

// Event channel names understood by Topics.Event.
const (
	ChannelDelivery        = "delivery"
	ChannelMailbox         = "mailbox"
	ChannelMailboxEmptying = "mailbox_emptying"
	ChannelBoxEmptying     = "box_emptying"
)

// Topics builds the box's MQTT topics from configuration.
// Using these helpers keeps topic naming in one place.
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	topics.Event(mqtt.ChannelDelivery) // "paketbox/event/paketbox"
type Topics struct {
	cfg config.MQTTTopicsConfig
}

// NewTopics returns a topic builder over the configured topic names.
func NewTopics(cfg config.MQTTTopicsConfig) Topics {
	return Topics{cfg: cfg}
}

// Status returns the topic of the human-readable status line.
func (t Topics) Status() string {
	return t.cfg.Status
}

// State returns the topic of the retained JSON state snapshot.
func (t Topics) State() string {
	return t.cfg.State
}

// Availability returns the online/offline topic, also used for the LWT.
func (t Topics) Availability() string {
	return t.cfg.Availability
}

// Event returns the topic for an event channel, or "" if the channel is unknown.
func (t Topics) Event(channel string) string {
	switch channel {
	case ChannelDelivery:
		return t.cfg.Delivery
	case ChannelMailbox:
		return t.cfg.Mailbox
	case ChannelMailboxEmptying:
		return t.cfg.MailboxEmptying
	case ChannelBoxEmptying:
		return t.cfg.BoxEmptying
	default:
		return ""
	}
}

// Command returns the subscription pattern for remote commands.
//
// Pattern: paketbox/command/+ (the last level is the command name)
func (t Topics) Command() string {
	return strings.TrimSuffix(t.cfg.Command, "/") + "/+"
}

// CommandName extracts the command name from a received command topic.
func (t Topics) CommandName(topic string) (string, bool) {
	prefix := strings.TrimSuffix(t.cfg.Command, "/") + "/"
	name, ok := strings.CutPrefix(topic, prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// Ack returns the acknowledgement topic for a command request.
//
// Example: paketbox/ack/3f6c...
func (t Topics) Ack(requestID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(t.cfg.Ack, "/"), requestID)
}
