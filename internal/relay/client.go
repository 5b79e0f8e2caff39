package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin policy is enforced by the CORS middleware in front
		return true
	},
}

// HandshakeFunc authenticates an upgrade request and returns the user id
// bound to the connection. Returning an error (typically wrapping
// ErrUnauthorized) rejects the connection before it is registered. A nil
// hook admits anonymous connections.
type HandshakeFunc func(r *http.Request) (string, error)

// Client is one registered connection. A connection id is assigned at
// connect time and never reused: a reconnect produces a fresh client that
// must rejoin its rooms.
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte

	// Connection state management
	ctx        context.Context
	cancel     context.CancelFunc
	closed     int32 // atomic flag to track if client is closed
	sendClosed int32 // atomic flag to track if send channel is closed

	wg sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:     uuid.New().String(),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) GetID() string {
	return c.id
}

func (c *Client) GetUserID() string {
	return c.userID
}

// principal is the identifier stamped on messages and receipts: the
// authenticated user when the handshake produced one, the connection id
// otherwise.
func (c *Client) principal() string {
	if c.userID != "" {
		return c.userID
	}
	return c.id
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		slog.Debug("Client marked as closed", "connectionID", c.id, "userID", c.userID)
	}
}

// closeSendChannel safely closes the send channel
func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// enqueue queues an event for delivery. A full send buffer means the
// reader is gone or hopelessly behind; the client is closed and the event
// dropped.
func (c *Client) enqueue(event *Event) error {
	if c.isClosed() || atomic.LoadInt32(&c.sendClosed) == 1 {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "connectionID", c.id, "userID", c.userID)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) sendError(code, message string) {
	if err := c.enqueue(NewErrorEvent(code, message)); err != nil {
		slog.Debug("Failed to send error event", "connectionID", c.id, "error", err)
	}
}

func (c *Client) readPump() {
	c.wg.Add(1)
	defer func() {
		c.wg.Done()
		c.close()

		// Notify the hub; this is the disconnect signal that triggers room
		// membership cleanup.
		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending unregister request", "connectionID", c.id, "userID", c.userID)
		}

		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "connectionID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "connectionID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "connectionID", c.id, "error", err)
			}
			break
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.sendError("INVALID_EVENT", "invalid event format")
			continue
		}
		if err := event.Validate(); err != nil {
			c.sendError("INVALID_EVENT", err.Error())
			continue
		}

		cmd, err := c.decodeCommand(event)
		if err != nil {
			c.sendError("INVALID_EVENT", err.Error())
			continue
		}

		select {
		case c.hub.commands <- cmd:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout dispatching event to hub", "connectionID", c.id, "type", event.Type)
		case <-c.ctx.Done():
			return
		}
	}
}

// decodeCommand turns a validated inbound event into a typed hub command.
func (c *Client) decodeCommand(event Event) (command, error) {
	switch event.Type {
	case EventJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return nil, err
		}
		return joinCommand{client: c, data: data}, nil
	case EventSendMessage:
		var data SendMessageData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return nil, err
		}
		return messageCommand{client: c, data: data}, nil
	default: // EventMessageRead, guaranteed by Validate
		var data MessageReadData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return nil, err
		}
		return readCommand{client: c, data: data}, nil
	}
}

func (c *Client) writePump() {
	c.wg.Add(1)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()
		// readPump owns closing the connection
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "connectionID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "connectionID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ServeWS runs the handshake hook, upgrades the request and registers the
// new connection with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, auth HandshakeFunc) {
	var userID string
	if auth != nil {
		id, err := auth(r)
		if err != nil {
			slog.Warn("Handshake rejected", "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", userID, "error", err)
		return
	}

	client := NewClient(hub, conn, userID)
	slog.Info("New WebSocket connection established", "connectionID", client.id, "userID", client.userID)

	select {
	case hub.register <- client:
	case <-time.After(5 * time.Second):
		slog.Error("Timeout sending registration request", "connectionID", client.id)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
