package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-doorsense/internal/door"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/logging"
)

// Stream frame types. Clients send subscribe, unsubscribe and ping; the
// server sends ack, pong, event and error.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameAck         = "ack"
	FrameEvent       = "event"
	FrameError       = "error"
)

// streamQueueLen is the per-connection outbound queue. Transitions are rare,
// so a full queue means the client has stopped reading.
const streamQueueLen = 16

// StreamFrame is one JSON message on the door stream.
type StreamFrame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Channel string `json:"channel,omitempty"`
	Time    string `json:"time,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	// Diagnostics routes are opt-in and served to the LAN only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans door transitions out to WebSocket clients.
//
// The only channel is door.ChannelStateChanged. A client that subscribes is
// sent the monitor's latest reading straight away, then every transition
// after it.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger
	latest func() (door.Reading, bool)

	// mu guards conns and every send on a connection queue, so queues are
	// only closed while no send is in flight and frames keep their order.
	mu    sync.Mutex
	conns map[*streamConn]struct{}
}

type streamConn struct {
	ws         *websocket.Conn
	queue      chan []byte
	subscribed bool // guarded by Hub.mu
}

// NewHub creates a hub. latest supplies the snapshot sent on subscribe and
// may be nil.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, latest func() (door.Reading, bool)) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		latest: latest,
		conns:  make(map[*streamConn]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		delete(h.conns, c)
		close(c.queue)
	}
}

// Broadcast sends payload to every subscribed client.
// Channels other than door.ChannelStateChanged are dropped.
func (h *Hub) Broadcast(channel string, payload any) {
	if channel != door.ChannelStateChanged {
		h.logger.Debug("dropping broadcast on unknown channel", "channel", channel)
		return
	}
	data, err := encodeFrame(StreamFrame{Type: FrameEvent, Channel: channel, Data: payload})
	if err != nil {
		h.logger.Error("encoding door event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if c.subscribed {
			h.enqueueLocked(c, data)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) add(c *streamConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(c *streamConn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	if ok {
		delete(h.conns, c)
		close(c.queue)
	}
	n := len(h.conns)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// send queues one frame for c. It is a no-op once c has been removed.
func (h *Hub) send(c *streamConn, f StreamFrame) {
	data, err := encodeFrame(f)
	if err != nil {
		h.logger.Error("encoding stream frame", "type", f.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		h.enqueueLocked(c, data)
	}
}

// subscribe marks c subscribed and queues the latest reading as one atomic
// step, so a concurrent Broadcast is delivered after the snapshot.
func (h *Hub) subscribe(c *streamConn, id string) {
	ack, _ := encodeFrame(StreamFrame{Type: FrameAck, ID: id, Channel: door.ChannelStateChanged}) //nolint:errcheck // static frame

	var snapshot []byte
	if h.latest != nil {
		if r, ok := h.latest(); ok {
			var err error
			snapshot, err = encodeFrame(StreamFrame{
				Type:    FrameEvent,
				Channel: door.ChannelStateChanged,
				Data:    door.NewStateMessage(r),
			})
			if err != nil {
				h.logger.Error("encoding door snapshot", "error", err)
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	c.subscribed = true
	h.enqueueLocked(c, ack)
	if snapshot != nil {
		h.enqueueLocked(c, snapshot)
	}
}

func (h *Hub) unsubscribe(c *streamConn, id string) {
	h.mu.Lock()
	c.subscribed = false
	h.mu.Unlock()
	h.send(c, StreamFrame{Type: FrameAck, ID: id})
}

// enqueueLocked drops the frame when the client is not keeping up.
// Caller holds h.mu.
func (h *Hub) enqueueLocked(c *streamConn, data []byte) {
	select {
	case c.queue <- data:
	default:
		h.logger.Warn("websocket client queue full, dropping frame")
	}
}

func encodeFrame(f StreamFrame) ([]byte, error) {
	if f.Time == "" {
		f.Time = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(f)
}

// handleWebSocket upgrades the request and streams door transitions.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &streamConn{ws: ws, queue: make(chan []byte, streamQueueLen)}
	s.hub.add(c)

	go s.hub.writeLoop(c)
	go s.hub.readLoop(c)
}

func (h *Hub) readLoop(c *streamConn) {
	defer func() {
		h.remove(c)
		c.ws.Close()
	}()

	keepalive := time.Duration(h.cfg.PingInterval+h.cfg.PongTimeout) * time.Second
	extend := func() error { return c.ws.SetReadDeadline(time.Now().Add(keepalive)) }

	c.ws.SetReadLimit(int64(h.cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.ws.SetPongHandler(func(string) error { return extend() })

	for {
		var f StreamFrame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				return
			}
			h.send(c, StreamFrame{Type: FrameError, Data: map[string]string{"message": "invalid JSON frame"}})
			continue
		}
		extend() //nolint:errcheck // a failed deadline surfaces as a read error

		switch f.Type {
		case FrameSubscribe, FrameUnsubscribe:
			if f.Channel != door.ChannelStateChanged {
				h.send(c, StreamFrame{Type: FrameError, ID: f.ID, Data: map[string]string{
					"message": "unknown channel: " + f.Channel,
				}})
				continue
			}
			if f.Type == FrameSubscribe {
				h.subscribe(c, f.ID)
			} else {
				h.unsubscribe(c, f.ID)
			}
		case FramePing:
			h.send(c, StreamFrame{Type: FramePong, ID: f.ID})
		default:
			h.send(c, StreamFrame{Type: FrameError, ID: f.ID, Data: map[string]string{
				"message": "unknown frame type: " + f.Type,
			}})
		}
	}
}

func (h *Hub) writeLoop(c *streamConn) {
	ticker := time.NewTicker(time.Duration(h.cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	writeWait := time.Duration(h.cfg.PongTimeout) * time.Second
	for {
		select {
		case data, ok := <-c.queue:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error caught below
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck // closing anyway
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error caught below
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
