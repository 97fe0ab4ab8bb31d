package server

import (
	"context"
	"testing"
	"time"
)

func TestRealtimeDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "user-1")
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{
		UserID:    "user-1",
		EventType: RealtimeEventLinksChanged,
	})

	select {
	case received := <-stream:
		if received.EventType != RealtimeEventLinksChanged {
			t.Fatalf("expected event type %s, got %s", RealtimeEventLinksChanged, received.EventType)
		}
		if received.Timestamp.IsZero() {
			t.Fatalf("expected publish to stamp the message")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message within deadline")
	}
}

func TestRealtimeDispatcherIsolatedByUser(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userStream, cleanup := dispatcher.Subscribe(ctx, "user-2")
	defer cleanup()

	otherStream, otherCleanup := dispatcher.Subscribe(ctx, "user-3")
	defer otherCleanup()

	dispatcher.AnalyticsChanged("user-3")

	select {
	case <-userStream:
		t.Fatal("did not expect realtime message for unrelated user")
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case msg := <-otherStream:
		if msg.UserID != "user-3" || msg.EventType != RealtimeEventAnalyticsChanged {
			t.Fatalf("unexpected message %#v", msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message for subscribed user")
	}
}

func TestRealtimeDispatcherDropsWhenSubscriberIsSlow(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "user-1")
	defer cleanup()

	for i := 0; i < dispatcher.bufferSize+5; i++ {
		dispatcher.Publish(RealtimeMessage{UserID: "user-1", EventType: RealtimeEventProfileChanged})
	}
	if len(stream) != dispatcher.bufferSize {
		t.Fatalf("expected buffer to be full at %d, got %d", dispatcher.bufferSize, len(stream))
	}
}

func TestRealtimeDispatcherUnsubscribesOnCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, cleanup := dispatcher.Subscribe(ctx, "user-1")
	defer cleanup()
	if dispatcher.SubscriberCount("user-1") != 1 {
		t.Fatalf("expected one subscriber")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount("user-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRealtimeDispatcherIgnoresEmptyUser(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	stream, cleanup := dispatcher.Subscribe(context.Background(), "")
	defer cleanup()
	if _, open := <-stream; open {
		t.Fatalf("expected closed stream for empty user")
	}
}

func TestRealtimeDispatcherCloseEndsStreams(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "user-1")
	dispatcher.Close()
	cleanup()

	select {
	case _, open := <-stream:
		if open {
			t.Fatalf("expected stream to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected closed stream within deadline")
	}

	dispatcher.Publish(RealtimeMessage{UserID: "user-1", EventType: RealtimeEventLinksChanged})
	dispatcher.Close()

	late, _ := dispatcher.Subscribe(ctx, "user-1")
	if _, open := <-late; open {
		t.Fatalf("expected subscriptions after close to be closed immediately")
	}
	if dispatcher.SubscriberCount("user-1") != 0 {
		t.Fatalf("expected no subscribers after close")
	}
}
