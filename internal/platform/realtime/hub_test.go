package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(topics ...string) *Client {
	return &Client{
		ID:     "test-client",
		Topics: topics,
		Send:   make(chan []byte, 8),
	}
}

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}

func TestRegisterAndBroadcast(t *testing.T) {
	hub := newTestHub()
	topic := QueueTopic("doc-1", "2026-08-31")
	client := newTestClient(topic)
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}
	if hub.TopicCount(topic) != 1 {
		t.Fatalf("TopicCount = %d, want 1", hub.TopicCount(topic))
	}

	hub.Broadcast(topic, NewEvent(EventQueueUpdate, topic, map[string]int{"waiting": 3}))

	select {
	case raw := <-client.Send:
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatalf("unmarshalling event: %v", err)
		}
		if evt.Type != EventQueueUpdate {
			t.Errorf("event type = %q, want %q", evt.Type, EventQueueUpdate)
		}
		if evt.Topic != topic {
			t.Errorf("event topic = %q, want %q", evt.Topic, topic)
		}
	default:
		t.Fatal("expected event on client Send channel")
	}
}

func TestBroadcastOnlyToSubscribers(t *testing.T) {
	hub := newTestHub()
	a := newTestClient(QueueTopic("doc-1", "2026-08-31"))
	b := newTestClient(QueueTopic("doc-2", "2026-08-31"))
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(QueueTopic("doc-1", "2026-08-31"), NewEvent(EventQueueUpdate, QueueTopic("doc-1", "2026-08-31"), nil))

	if len(a.Send) != 1 {
		t.Errorf("subscriber should receive event, got %d", len(a.Send))
	}
	if len(b.Send) != 0 {
		t.Errorf("non-subscriber should not receive event, got %d", len(b.Send))
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	hub := newTestHub()
	topic := AppointmentTopic("apt-1")
	client := newTestClient(topic)
	hub.Register(client)

	hub.Broadcast(topic, NewEvent(EventQueueUpdate, topic, map[string]int{"seq": 1}))
	hub.Broadcast(topic, NewEvent(EventYourTurn, topic, map[string]int{"seq": 2}))

	var first, second Event
	if err := json.Unmarshal(<-client.Send, &first); err != nil {
		t.Fatalf("unmarshalling first: %v", err)
	}
	if err := json.Unmarshal(<-client.Send, &second); err != nil {
		t.Fatalf("unmarshalling second: %v", err)
	}
	if first.Type != EventQueueUpdate || second.Type != EventYourTurn {
		t.Errorf("events out of order: %q then %q", first.Type, second.Type)
	}
}

func TestSlowClientIsSkipped(t *testing.T) {
	hub := newTestHub()
	topic := QueueTopic("doc-1", "2026-08-31")
	client := &Client{ID: "slow", Topics: []string{topic}, Send: make(chan []byte, 1)}
	hub.Register(client)

	// Fill the buffer, then broadcast again. The hub must not block.
	hub.Broadcast(topic, NewEvent(EventQueueUpdate, topic, nil))
	hub.Broadcast(topic, NewEvent(EventQueueUpdate, topic, nil))

	if len(client.Send) != 1 {
		t.Errorf("expected exactly one buffered event, got %d", len(client.Send))
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := newTestHub()
	topic := QueueTopic("doc-1", "2026-08-31")
	client := newTestClient(topic)
	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after unregister, want 0", hub.ClientCount())
	}
	if hub.TopicCount(topic) != 0 {
		t.Errorf("TopicCount = %d after unregister, want 0", hub.TopicCount(topic))
	}
	if _, open := <-client.Send; open {
		t.Error("Send channel should be closed after unregister")
	}

	// Unregistering twice must not panic.
	hub.Unregister(client)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := newTestHub()
	client := newTestClient()
	hub.Register(client)

	topic := AppointmentTopic("apt-9")
	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{topic}})
	if hub.TopicCount(topic) != 1 {
		t.Fatalf("TopicCount = %d after subscribe, want 1", hub.TopicCount(topic))
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{topic}})
	if hub.TopicCount(topic) != 0 {
		t.Fatalf("TopicCount = %d after unsubscribe, want 0", hub.TopicCount(topic))
	}
	if len(client.Topics) != 0 {
		t.Errorf("client.Topics = %v after unsubscribe, want empty", client.Topics)
	}
}

func TestPublishImplementsEventPublisher(t *testing.T) {
	var _ EventPublisher = newTestHub()

	hub := newTestHub()
	topic := QueueTopic("doc-1", "2026-08-31")
	client := newTestClient(topic)
	hub.Register(client)

	if err := hub.Publish(context.Background(), NewEvent(EventQueueUpdate, topic, nil)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(client.Send) != 1 {
		t.Errorf("expected one event after Publish, got %d", len(client.Send))
	}
}
