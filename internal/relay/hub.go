package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"alo17-service/internal/models"

	"github.com/google/uuid"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	// ErrUnauthorized is returned by handshake hooks to reject a connection
	// before it is registered.
	ErrUnauthorized = errors.New("unauthorized handshake")
)

// MessageStore persists relayed messages. The relay does not own message
// storage; persistence failures are logged and never block a broadcast.
type MessageStore interface {
	Create(ctx context.Context, message *models.Message) error
	MarkRead(ctx context.Context, messageID string) error
}

// EventPublisher feeds relayed messages to the notification pipeline.
type EventPublisher interface {
	PublishChatMessage(ctx context.Context, message *models.Message) error
}

// Presence tracks which users currently hold at least one connection.
type Presence interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// command is one inbound client event, dispatched to the hub loop.
type command interface {
	origin() *Client
}

type joinCommand struct {
	client *Client
	data   JoinRoomData
}

type messageCommand struct {
	client *Client
	data   SendMessageData
}

type readCommand struct {
	client *Client
	data   MessageReadData
}

func (c joinCommand) origin() *Client    { return c.client }
func (c messageCommand) origin() *Client { return c.client }
func (c readCommand) origin() *Client    { return c.client }

// delivery is one outbound event addressed to one connection. Command
// handlers return deliveries instead of writing to the network so the
// fan-out logic is testable without live connections.
type delivery struct {
	target *Client
	event  *Event
}

// Hub multiplexes chat traffic between connections grouped into rooms.
//
// The connection registry and the room membership map are owned by the
// Run loop: every mutation happens on that single goroutine, so room
// broadcasts are serialized in arrival order and the maps need no lock.
type Hub struct {
	// Registered connections by connection id
	connections map[string]*Client

	// Room membership: room id -> connection id -> client
	rooms map[string]map[string]*Client

	// Register requests from new connections
	register chan *Client

	// Unregister requests from disconnecting connections
	unregister chan *Client

	// Inbound client events
	commands chan command

	// External collaborators, all optional
	messages MessageStore
	events   EventPublisher
	presence Presence

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(messages MessageStore, events EventPublisher, presence Presence) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections: make(map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		commands:    make(chan command),
		messages:    messages,
		events:      events,
		presence:    presence,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case cmd := <-h.commands:
			h.apply(h.dispatch(cmd))

		case <-h.ctx.Done():
			slog.Info("Relay hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// dispatch routes one command to its handler and returns the resulting
// deliveries.
func (h *Hub) dispatch(cmd command) []delivery {
	switch c := cmd.(type) {
	case joinCommand:
		return h.handleJoin(c)
	case messageCommand:
		return h.handleMessage(c)
	case readCommand:
		return h.handleRead(c)
	default:
		return nil
	}
}

// apply writes deliveries to the targets' send buffers. A dead target is
// skipped silently; it gets pruned when its disconnect notification
// arrives.
func (h *Hub) apply(deliveries []delivery) {
	for _, d := range deliveries {
		if err := d.target.enqueue(d.event); err != nil {
			slog.Debug("Skipping dead connection", "connectionID", d.target.id, "error", err)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.connections[client.id] = client

	slog.Info("Connection registered", "connectionID", client.id, "userID", client.userID)

	if h.presence != nil && client.userID != "" {
		if err := h.presence.SetUserOnline(h.ctx, client.userID); err != nil {
			slog.Error("Failed to set user online", "userID", client.userID, "error", err)
		}
	}
}

// unregisterClient is the single point of membership cleanup: the
// connection leaves every room it joined, and emptied rooms are dropped. A
// later join recreates a room from scratch.
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.connections[client.id]; !ok {
		return
	}
	delete(h.connections, client.id)

	for roomID, members := range h.rooms {
		if _, ok := members[client.id]; ok {
			delete(members, client.id)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	client.closeSendChannel()

	slog.Info("Connection unregistered", "connectionID", client.id, "userID", client.userID)

	if h.presence != nil && client.userID != "" {
		if err := h.presence.SetUserOffline(h.ctx, client.userID); err != nil {
			slog.Error("Failed to set user offline", "userID", client.userID, "error", err)
		}
	}
}

// handleJoin adds the connection to a room. Joining is idempotent and a
// room springs into existence on first join; there is no distinction
// between an absent and an empty room.
func (h *Hub) handleJoin(cmd joinCommand) []delivery {
	if cmd.data.RoomID == "" {
		return []delivery{{
			target: cmd.client,
			event:  NewErrorEvent("INVALID_ROOM", "room id must not be empty"),
		}}
	}

	members, ok := h.rooms[cmd.data.RoomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[cmd.data.RoomID] = members
	}
	members[cmd.client.id] = cmd.client

	slog.Debug("Connection joined room", "connectionID", cmd.client.id, "roomID", cmd.data.RoomID)
	return nil
}

// handleMessage stamps the message server-side and fans it out to every
// room member, the sender included; the sender's UI reconciles the echo by
// message id.
func (h *Hub) handleMessage(cmd messageCommand) []delivery {
	if cmd.data.RoomID == "" {
		return []delivery{{
			target: cmd.client,
			event:  NewErrorEvent("INVALID_ROOM", "room id must not be empty"),
		}}
	}
	if cmd.data.Content == "" {
		return []delivery{{
			target: cmd.client,
			event:  NewErrorEvent("INVALID_MESSAGE", "message content must not be empty"),
		}}
	}

	msg := ChatMessageData{
		ID:                 uuid.New().String(),
		Content:            cmd.data.Content,
		RoomID:             cmd.data.RoomID,
		SenderID:           cmd.client.principal(),
		ReceiverID:         cmd.data.ReceiverID,
		ListingID:          cmd.data.ListingID,
		SenderConnectionID: cmd.client.id,
		Timestamp:          time.Now().UTC(),
	}

	h.storeMessage(msg)

	event := NewChatMessageEvent(msg)
	deliveries := make([]delivery, 0, len(h.rooms[msg.RoomID]))
	for _, member := range h.rooms[msg.RoomID] {
		deliveries = append(deliveries, delivery{target: member, event: event})
	}
	return deliveries
}

// handleRead fans a read receipt out to the other members of the room.
func (h *Hub) handleRead(cmd readCommand) []delivery {
	if cmd.data.MessageID == "" || cmd.data.RoomID == "" {
		return []delivery{{
			target: cmd.client,
			event:  NewErrorEvent("INVALID_RECEIPT", "message id and room id are required"),
		}}
	}

	receipt := MessageReadData{
		MessageID: cmd.data.MessageID,
		RoomID:    cmd.data.RoomID,
		ReaderID:  cmd.client.principal(),
	}

	if h.messages != nil {
		go func() {
			if err := h.messages.MarkRead(h.ctx, receipt.MessageID); err != nil {
				slog.Error("Failed to mark message read", "messageID", receipt.MessageID, "error", err)
			}
		}()
	}

	event := NewMessageReadEvent(receipt)
	var deliveries []delivery
	for _, member := range h.rooms[receipt.RoomID] {
		if member.id == cmd.client.id {
			continue
		}
		deliveries = append(deliveries, delivery{target: member, event: event})
	}
	return deliveries
}

// storeMessage hands the message to the store and the notification
// pipeline off the dispatch loop. Both are best effort; broadcast order is
// already fixed by the time this runs.
func (h *Hub) storeMessage(msg ChatMessageData) {
	if h.messages == nil && h.events == nil {
		return
	}

	record := &models.Message{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		ListingID:  msg.ListingID,
		Content:    msg.Content,
		CreatedAt:  msg.Timestamp,
	}

	go func() {
		if h.messages != nil {
			if err := h.messages.Create(h.ctx, record); err != nil {
				slog.Error("Failed to persist message", "messageID", record.ID, "error", err)
			}
		}
		if h.events != nil {
			if err := h.events.PublishChatMessage(h.ctx, record); err != nil {
				slog.Error("Failed to publish message event", "messageID", record.ID, "error", err)
			}
		}
	}()
}
