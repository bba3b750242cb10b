package command

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/infrastructure/mqtt"
)

const commandQoS byte = 1

// Client is the MQTT surface the handler needs. *mqtt.Client satisfies it.
type Client interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by the handler.
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

// Request is the optional JSON payload of a command message.
type Request struct {
	ID string `json:"id"`
}

// Ack is published after a command has run.
type Ack struct {
	ID        string       `json:"id"`
	Command   string       `json:"command"`
	OK        bool         `json:"ok"`
	Error     string       `json:"error,omitempty"`
	State     box.Snapshot `json:"state"`
	Locked    bool         `json:"locked"`
	Timestamp time.Time    `json:"timestamp"`
}

// Handler subscribes to command topics and acknowledges each command.
//
// Commands run on their own goroutine so the MQTT client's delivery
// goroutine is never held by a publish.
type Handler struct {
	client Client
	topics mqtt.Topics
	op     Operator
	logger Logger
	wg     sync.WaitGroup
}

// NewHandler creates a command handler.
func NewHandler(client Client, topics mqtt.Topics, op Operator, logger Logger) *Handler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Handler{client: client, topics: topics, op: op, logger: logger}
}

// Start subscribes to the command topic.
func (h *Handler) Start() error {
	if err := h.client.Subscribe(h.topics.Command(), commandQoS, h.handle); err != nil {
		return err
	}
	h.logger.Info("listening for remote commands", "topic", h.topics.Command())
	return nil
}

// Stop unsubscribes and waits for running commands to finish.
func (h *Handler) Stop() error {
	err := h.client.Unsubscribe(h.topics.Command())
	h.wg.Wait()
	return err
}

func (h *Handler) handle(topic string, payload []byte) error {
	name, ok := h.topics.CommandName(topic)
	if !ok {
		h.logger.Warn("ignoring malformed command topic", "topic", topic)
		return nil
	}

	var req Request
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			h.logger.Warn("command payload is not JSON, generating id", "command", name, "error", err)
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(name, req.ID)
	}()
	return nil
}

func (h *Handler) run(name, id string) {
	h.logger.Info("remote command received", "command", name, "id", id)

	err := Execute(h.op, name)
	ack := Ack{
		ID:        id,
		Command:   name,
		OK:        err == nil,
		State:     h.op.Snapshot(),
		Locked:    h.op.IsLocked(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		ack.Error = err.Error()
		h.logger.Warn("remote command failed", "command", name, "id", id, "error", err)
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		h.logger.Error("encoding command ack failed", "id", id, "error", err)
		return
	}
	if err := h.client.Publish(h.topics.Ack(id), payload, commandQoS, false); err != nil {
		h.logger.Error("publishing command ack failed", "id", id, "error", err)
	}
}
