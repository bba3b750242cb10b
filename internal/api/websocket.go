package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/paketbox-core/internal/command"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypeCommand     = "command"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	wsSendBufferSize = 64
)

// WSMessage is the envelope of every WebSocket frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// WSCommandPayload is the payload of a command message.
type WSCommandPayload struct {
	Name string `json:"name"`
}

// inbound decodes a client frame, keeping the payload raw until the type
// is known.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		// The ticket is the access control.
		return true
	},
}

type wsClient struct {
	srv  *Server
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]struct{}
}

// handleWebSocket upgrades a ticket-authenticated request and streams box
// events. Clients start subscribed to ChannelStateChanged.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	if !s.tickets.redeem(ticket) {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		srv:  s,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
		subs: map[string]struct{}{ChannelStateChanged: {}},
	}
	s.hub.add(c)

	snap, ok := s.hub.lastSnapshot()
	if !ok {
		snap = s.box.Snapshot()
	}
	if data, err := encodeEvent(ChannelStateChanged, snap); err == nil {
		c.enqueue(data)
	}

	go c.writeLoop()
	go c.readLoop()
}

func (c *wsClient) timing() (ping, pong time.Duration) {
	cfg := c.srv.wsCfg
	return time.Duration(cfg.PingInterval) * time.Second, time.Duration(cfg.PongTimeout) * time.Second
}

func (c *wsClient) readLoop() {
	defer func() {
		c.srv.hub.remove(c)
		c.conn.Close() //nolint:errcheck // connection is done
	}()

	ping, pong := c.timing()
	deadline := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pong)) }

	c.conn.SetReadLimit(int64(c.srv.wsCfg.MaxMessageSize))
	deadline() //nolint:errcheck // best effort
	c.conn.SetPongHandler(func(string) error { return deadline() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.srv.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		deadline() //nolint:errcheck // best effort
		c.dispatch(data)
	}
}

func (c *wsClient) writeLoop() {
	ping, pong := c.timing()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // connection is done
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(pong)) //nolint:errcheck // write error caught below
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) dispatch(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var p WSSubscribePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid channels payload"})
			return
		}
		c.setSubscribed(p.Channels, msg.Type == WSTypeSubscribe)
		c.reply(msg.ID, WSTypeResponse, map[string]any{msg.Type + "d": p.Channels})
	case WSTypeCommand:
		c.runCommand(msg)
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

// runCommand executes an operator command. The ticket already proved the
// client holds a valid access token.
func (c *wsClient) runCommand(msg inbound) {
	var p WSCommandPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Name == "" {
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid command payload"})
		return
	}

	err := command.Execute(c.srv.box, p.Name)
	if errors.Is(err, command.ErrUnknownCommand) {
		c.reply(msg.ID, WSTypeError, map[string]string{"message": err.Error()})
		return
	}

	resp := map[string]any{"command": p.Name, "ok": err == nil, "state": c.srv.boxView()}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.srv.logger.Info("websocket command executed", "command", p.Name, "ok", err == nil)
	c.reply(msg.ID, WSTypeResponse, resp)
}

func (c *wsClient) setSubscribed(channels []string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if on {
			c.subs[ch] = struct{}{}
		} else {
			delete(c.subs, ch)
		}
	}
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[channel]
	return ok
}

// enqueue queues data for the write loop. A full queue drops the frame; a
// closed queue means the client already left.
func (c *wsClient) enqueue(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) reply(id, kind string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      kind,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}
