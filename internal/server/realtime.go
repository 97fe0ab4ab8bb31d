package server

import (
	"context"
	"sync"
	"time"
)

const (
	RealtimeEventLinksChanged     = "links-changed"
	RealtimeEventProfileChanged   = "profile-changed"
	RealtimeEventAnalyticsChanged = "analytics-changed"
	realtimeEventHeartbeat        = "heartbeat"
	realtimeSourceBackend         = "linkhub-backend"
	realtimeHeartbeatInterval     = 25 * time.Second
)

// RealtimeMessage tells an owner's open dashboards that something they show changed.
type RealtimeMessage struct {
	UserID    string
	EventType string
	Timestamp time.Time
}

// RealtimeDispatcher fans messages out to the subscribers of one user. Slow
// subscribers miss messages instead of blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
	closed      bool
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

func (d *RealtimeDispatcher) Subscribe(ctx context.Context, userID string) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	if userID == "" || !d.registerSubscriber(userID, subscriber) {
		close(subscriber.stream)
		return subscriber.stream, func() {}
	}
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(userID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.UserID == "" || message.EventType == "" {
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = d.clock().UTC()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, subscriber := range d.subscribers[message.UserID] {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// Close ends every open stream and refuses new subscribers. The HTTP server
// calls it on shutdown so long-lived event streams do not hold it open.
func (d *RealtimeDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for userID, subscribers := range d.subscribers {
		for _, subscriber := range subscribers {
			close(subscriber.stream)
		}
		delete(d.subscribers, userID)
	}
}

// AnalyticsChanged lets the analytics recorder notify the profile owner.
func (d *RealtimeDispatcher) AnalyticsChanged(profileID string) {
	d.Publish(RealtimeMessage{UserID: profileID, EventType: RealtimeEventAnalyticsChanged})
}

// SubscriberCount reports how many streams are open for a user.
func (d *RealtimeDispatcher) SubscriberCount(userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[userID])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(userID string, subscriber *realtimeSubscriber) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if _, ok := d.subscribers[userID]; !ok {
		d.subscribers[userID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[userID][subscriber.id] = subscriber
	return true
}

func (d *RealtimeDispatcher) unregisterSubscriber(userID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[userID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, userID)
		}
	}
	d.mu.Unlock()
}
