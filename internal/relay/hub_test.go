package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"alo17-service/internal/models"
)

// Helper functions for tests

func newTestHub() *Hub {
	return NewHub(nil, nil, nil)
}

func newTestClient(hub *Hub, userID string) *Client {
	client := NewClient(hub, nil, userID)
	hub.registerClient(client)
	return client
}

func join(t *testing.T, hub *Hub, client *Client, roomID string) {
	t.Helper()
	deliveries := hub.handleJoin(joinCommand{client: client, data: JoinRoomData{RoomID: roomID}})
	if len(deliveries) != 0 {
		t.Fatalf("expected no deliveries on join, got %d", len(deliveries))
	}
}

// drainEvents decodes everything queued on the client's send buffer.
func drainEvents(t *testing.T, client *Client) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case raw := <-client.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("failed to decode queued event: %v", err)
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func decodeChatMessage(t *testing.T, ev Event) ChatMessageData {
	t.Helper()
	if ev.Type != EventReceiveMessage {
		t.Fatalf("expected %s event, got %s", EventReceiveMessage, ev.Type)
	}
	var data ChatMessageData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("failed to decode chat message: %v", err)
	}
	return data
}

func TestJoinRoomIdempotent(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, "user-a")

	join(t, hub, client, "conv-42")
	join(t, hub, client, "conv-42")

	if got := len(hub.rooms["conv-42"]); got != 1 {
		t.Errorf("expected 1 member after double join, got %d", got)
	}
}

func TestJoinRoomEmptyIDReportsOnlyToSender(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")

	deliveries := hub.handleJoin(joinCommand{client: a, data: JoinRoomData{}})

	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	if deliveries[0].target != a {
		t.Error("error event should target the originating connection")
	}
	if deliveries[0].event.Type != EventError {
		t.Errorf("expected %s event, got %s", EventError, deliveries[0].event.Type)
	}

	hub.apply(deliveries)
	if got := len(drainEvents(t, b)); got != 0 {
		t.Errorf("other connections should receive nothing, got %d events", got)
	}
}

// The relay intentionally echoes a message back to its sender; clients
// reconcile the echo against their optimistic render by message id.
func TestSendMessageIncludesSender(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")
	join(t, hub, a, "conv-42")
	join(t, hub, b, "conv-42")

	before := time.Now().UTC()
	deliveries := hub.handleMessage(messageCommand{
		client: a,
		data:   SendMessageData{Content: "hi", RoomID: "conv-42", ReceiverID: "user-b"},
	})
	hub.apply(deliveries)

	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries (sender included), got %d", len(deliveries))
	}

	for _, client := range []*Client{a, b} {
		events := drainEvents(t, client)
		if len(events) != 1 {
			t.Fatalf("client %s: expected 1 event, got %d", client.id, len(events))
		}
		msg := decodeChatMessage(t, events[0])
		if msg.Content != "hi" {
			t.Errorf("expected content %q, got %q", "hi", msg.Content)
		}
		if msg.RoomID != "conv-42" {
			t.Errorf("expected room %q, got %q", "conv-42", msg.RoomID)
		}
		if msg.SenderID != "user-a" {
			t.Errorf("expected sender %q, got %q", "user-a", msg.SenderID)
		}
		if msg.SenderConnectionID != a.id {
			t.Errorf("expected sender connection %q, got %q", a.id, msg.SenderConnectionID)
		}
		if msg.ID == "" {
			t.Error("message id should be stamped server-side")
		}
		if msg.Timestamp.Before(before) {
			t.Error("timestamp should be stamped server-side at receipt time")
		}
	}
}

func TestSendMessagePreservesOrderPerRoom(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")
	join(t, hub, a, "conv-42")
	join(t, hub, b, "conv-42")

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		hub.apply(hub.handleMessage(messageCommand{
			client: a,
			data:   SendMessageData{Content: content, RoomID: "conv-42"},
		}))
	}

	for _, client := range []*Client{a, b} {
		events := drainEvents(t, client)
		if len(events) != len(contents) {
			t.Fatalf("client %s: expected %d events, got %d", client.id, len(contents), len(events))
		}
		for i, ev := range events {
			if msg := decodeChatMessage(t, ev); msg.Content != contents[i] {
				t.Errorf("position %d: expected %q, got %q", i, contents[i], msg.Content)
			}
		}
	}
}

func TestSendMessageToUnknownRoomIsNoop(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")

	// Never joined, room does not exist: not an error, nobody to deliver to
	deliveries := hub.handleMessage(messageCommand{
		client: a,
		data:   SendMessageData{Content: "hello?", RoomID: "conv-nobody"},
	})
	if len(deliveries) != 0 {
		t.Errorf("expected no deliveries for an unknown room, got %d", len(deliveries))
	}
}

func TestMessageReadFansOutToOtherMembers(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")
	join(t, hub, a, "conv-42")
	join(t, hub, b, "conv-42")

	deliveries := hub.handleRead(readCommand{
		client: b,
		data:   MessageReadData{MessageID: "msg-1", RoomID: "conv-42"},
	})
	hub.apply(deliveries)

	events := drainEvents(t, a)
	if len(events) != 1 {
		t.Fatalf("expected 1 receipt for the other member, got %d", len(events))
	}
	if events[0].Type != EventMessageRead {
		t.Errorf("expected %s event, got %s", EventMessageRead, events[0].Type)
	}
	var receipt MessageReadData
	if err := json.Unmarshal(events[0].Data, &receipt); err != nil {
		t.Fatalf("failed to decode receipt: %v", err)
	}
	if receipt.MessageID != "msg-1" || receipt.RoomID != "conv-42" {
		t.Errorf("unexpected receipt payload: %+v", receipt)
	}
	if receipt.ReaderID != "user-b" {
		t.Errorf("expected reader %q, got %q", "user-b", receipt.ReaderID)
	}

	if got := len(drainEvents(t, b)); got != 0 {
		t.Errorf("reader should not receive its own receipt, got %d events", got)
	}
}

func TestDisconnectRemovesFromAllRooms(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")
	join(t, hub, a, "conv-1")
	join(t, hub, a, "conv-2")
	join(t, hub, b, "conv-1")

	hub.unregisterClient(a)

	if _, ok := hub.connections[a.id]; ok {
		t.Error("disconnected client should leave the connection registry")
	}
	if _, ok := hub.rooms["conv-1"][a.id]; ok {
		t.Error("disconnected client should leave conv-1")
	}
	if _, ok := hub.rooms["conv-2"]; ok {
		t.Error("emptied room conv-2 should be dropped")
	}

	// Subsequent broadcasts never reach the disconnected client
	deliveries := hub.handleMessage(messageCommand{
		client: b,
		data:   SendMessageData{Content: "anyone?", RoomID: "conv-1"},
	})
	for _, d := range deliveries {
		if d.target == a {
			t.Error("broadcast should not target a disconnected client")
		}
	}
}

func TestRejoinAfterRoomEmptied(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	join(t, hub, a, "conv-1")
	hub.unregisterClient(a)

	b := newTestClient(hub, "user-b")
	join(t, hub, b, "conv-1")

	if got := len(hub.rooms["conv-1"]); got != 1 {
		t.Errorf("expected recreated room with 1 member, got %d", got)
	}
}

func TestDeadConnectionSkippedOnBroadcast(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")
	join(t, hub, a, "conv-42")
	join(t, hub, b, "conv-42")

	// b's pump died but its disconnect notification has not arrived yet
	b.close()

	hub.apply(hub.handleMessage(messageCommand{
		client: a,
		data:   SendMessageData{Content: "hi", RoomID: "conv-42"},
	}))

	if got := len(drainEvents(t, a)); got != 1 {
		t.Errorf("live member should still receive the message, got %d events", got)
	}
}

// mockMessageStore records persisted messages for assertions. Create runs
// off the dispatch loop, so results arrive on channels.
type mockMessageStore struct {
	created chan *models.Message
	read    chan string
}

func newMockMessageStore() *mockMessageStore {
	return &mockMessageStore{
		created: make(chan *models.Message, 8),
		read:    make(chan string, 8),
	}
}

func (m *mockMessageStore) Create(_ context.Context, message *models.Message) error {
	m.created <- message
	return nil
}

func (m *mockMessageStore) MarkRead(_ context.Context, messageID string) error {
	m.read <- messageID
	return nil
}

func TestSendMessagePersistsViaStore(t *testing.T) {
	store := newMockMessageStore()
	hub := NewHub(store, nil, nil)
	a := newTestClient(hub, "user-a")
	join(t, hub, a, "conv-42")

	hub.apply(hub.handleMessage(messageCommand{
		client: a,
		data:   SendMessageData{Content: "hi", RoomID: "conv-42"},
	}))

	select {
	case record := <-store.created:
		if record.Content != "hi" || record.RoomID != "conv-42" || record.SenderID != "user-a" {
			t.Errorf("unexpected persisted message: %+v", record)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message persistence")
	}
}

func TestHubRunDispatchesEndToEnd(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	a := NewClient(hub, nil, "user-a")
	b := NewClient(hub, nil, "user-b")
	hub.register <- a
	hub.register <- b

	hub.commands <- joinCommand{client: a, data: JoinRoomData{RoomID: "conv-42"}}
	hub.commands <- joinCommand{client: b, data: JoinRoomData{RoomID: "conv-42"}}
	hub.commands <- messageCommand{client: a, data: SendMessageData{Content: "hi", RoomID: "conv-42"}}

	for _, client := range []*Client{a, b} {
		select {
		case raw := <-client.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("failed to decode event: %v", err)
			}
			if msg := decodeChatMessage(t, ev); msg.Content != "hi" {
				t.Errorf("expected content %q, got %q", "hi", msg.Content)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s: timed out waiting for broadcast", client.id)
		}
	}
}
