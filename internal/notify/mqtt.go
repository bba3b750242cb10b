package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/mqtt"
)

const (
	defaultQueueSize = 64
	publishAttempts  = 3
	retryBackoff     = 500 * time.Millisecond
	drainTimeout     = 2 * time.Second

	statusQoS byte = 1
)

// Publisher is the MQTT client surface the notifier needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// MQTTNotifier publishes status lines, events and the retained state
// snapshot through a bounded queue drained by Run.
//
// When the queue is full the newest message is dropped and logged; the
// control core never waits on the broker.
type MQTTNotifier struct {
	pub    Publisher
	topics mqtt.Topics
	logger Logger
	queue  chan message
}

// NewMQTTNotifier creates a notifier. Call Run to start publishing.
func NewMQTTNotifier(pub Publisher, topics mqtt.Topics, logger Logger) *MQTTNotifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTNotifier{
		pub:    pub,
		topics: topics,
		logger: logger,
		queue:  make(chan message, defaultQueueSize),
	}
}

// PublishStatus implements Notifier.
func (n *MQTTNotifier) PublishStatus(text string) {
	n.enqueue(message{topic: n.topics.Status(), payload: []byte(text)})
}

// PublishEvent implements Notifier.
func (n *MQTTNotifier) PublishEvent(channel Channel, state EventState) {
	topic := n.topics.Event(string(channel))
	if topic == "" {
		n.logger.Warn("no topic for event channel", "channel", channel)
		return
	}
	n.enqueue(message{topic: topic, payload: []byte(state)})
}

// PublishState queues a retained state document.
func (n *MQTTNotifier) PublishState(payload []byte) {
	n.enqueue(message{topic: n.topics.State(), payload: payload, retained: true})
}

// StateDocument is the retained state payload.
type StateDocument struct {
	box.Snapshot
	Error     bool      `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// StateChanged publishes snap as a retained StateDocument.
func (n *MQTTNotifier) StateChanged(snap box.Snapshot) {
	payload, err := json.Marshal(StateDocument{
		Snapshot:  snap,
		Error:     snap.AnyError(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("encoding state document failed", "error", err)
		return
	}
	n.PublishState(payload)
}

func (n *MQTTNotifier) enqueue(m message) {
	select {
	case n.queue <- m:
	default:
		n.logger.Warn("notifier queue full, message dropped", "topic", m.topic)
	}
}

// Run publishes queued messages until ctx is cancelled, then drains what
// is left for a short grace period.
func (n *MQTTNotifier) Run(ctx context.Context) error {
	for {
		select {
		case m := <-n.queue:
			n.publish(ctx, m)
		case <-ctx.Done():
			n.drain()
			return nil
		}
	}
}

func (n *MQTTNotifier) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case m := <-n.queue:
			n.publish(ctx, m)
		default:
			return
		}
		if ctx.Err() != nil {
			n.logger.Warn("notifier shutdown with pending messages", "pending", len(n.queue))
			return
		}
	}
}

func (n *MQTTNotifier) publish(ctx context.Context, m message) {
	var err error
retry:
	for attempt := 1; ; attempt++ {
		err = n.pub.Publish(m.topic, m.payload, statusQoS, m.retained)
		if err == nil {
			n.logger.Debug("published", "topic", m.topic)
			return
		}
		// Validation errors never succeed on retry.
		if errors.Is(err, mqtt.ErrInvalidTopic) || errors.Is(err, mqtt.ErrInvalidQoS) || attempt == publishAttempts {
			break
		}
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			break retry
		}
	}
	n.logger.Warn("publish failed", "topic", m.topic, "error", err)
}
