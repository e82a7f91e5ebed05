package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aditya/rideshare/internal/metrics"
	"github.com/google/uuid"
)

const defaultBufferSize = 64

func RideTopic(id string) string   { return "ride:" + id }
func DriverTopic(id string) string { return "driver:" + id }
func UserTopic(id string) string   { return "user:" + id }

// Message is one frame published on a topic. Origin is the subscription id of
// the sender and is never delivered back to it; server-side publishers leave it empty.
type Message struct {
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Broker fans frames out to topic subscribers.
type Broker interface {
	Subscribe(topic string) *Subscription
	Publish(ctx context.Context, topic string, msg Message) error
}

type Subscription struct {
	ID    string
	Topic string
	C     <-chan Message

	ch   chan Message
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub is the in-process broker. Delivery never blocks: a subscriber whose
// buffer is full loses the frame.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[string]*Subscription
	bufferSize int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		topics:     make(map[string]map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Message, h.bufferSize)
	sub := &Subscription{
		ID:    uuid.New().String(),
		Topic: topic,
		C:     ch,
		ch:    ch,
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*Subscription)
	}
	h.topics[topic][sub.ID] = sub
	return sub
}

func (h *Hub) Publish(_ context.Context, topic string, msg Message) error {
	h.deliver(topic, msg)
	return nil
}

// Subscribers reports how many subscriptions a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// deliver runs under the read lock so a concurrent Close cannot close a
// channel mid-send. Frames from one publisher keep their order.
func (h *Hub) deliver(topic string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.topics[topic] {
		if id == msg.Origin {
			continue
		}
		select {
		case sub.ch <- msg:
			metrics.RealtimeMessages.WithLabelValues("delivered").Inc()
		default:
			metrics.RealtimeMessages.WithLabelValues("dropped").Inc()
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[sub.Topic]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.topics, sub.Topic)
		}
	}
	close(sub.ch)
}

type originKey struct{}

// WithOrigin marks frames published under ctx as coming from subscription id.
func WithOrigin(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, originKey{}, id)
}

// OriginFrom returns the subscription id set by WithOrigin, or "".
func OriginFrom(ctx context.Context) string {
	id, _ := ctx.Value(originKey{}).(string)
	return id
}
