package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/edupay/ipn-gateway/internal/pkg/cache"
)

// EventsChannel is the Redis pub/sub channel for event status changes. Going
// through Redis means every gateway instance sees changes made by any other.
const EventsChannel = "ipn:events"

// subscriberBuffer bounds the per-subscriber channel. A subscriber that stops
// reading loses its oldest notices instead of stalling the hub.
const subscriberBuffer = 10

// EventNotice is one status change on the stream.
type EventNotice struct {
	EventUUID     string    `json:"event_uuid"`
	IntegrationID uint      `json:"integration_id"`
	Status        string    `json:"status"`
	At            time.Time `json:"at"`
}

// Hub fans event status changes out to stream subscribers. It implements the
// pipeline's Notifier on the publish side and feeds the SSE endpoint on the
// subscribe side.
type Hub struct {
	client *redis.Client

	mu          sync.Mutex
	subscribers map[chan EventNotice]struct{}
	cancel      context.CancelFunc
	running     bool
}

// NewHub creates a hub on the shared Redis client.
func NewHub() *Hub {
	return &Hub{
		client:      cache.GetClient(),
		subscribers: make(map[chan EventNotice]struct{}),
	}
}

// Start begins relaying the Redis channel to local subscribers.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.running = true

	pubsub := h.client.Subscribe(ctx, EventsChannel)
	go h.relay(ctx, pubsub)
	log.Info("[Realtime] Hub started")
}

// Stop ends relaying and closes all subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.cancel()
	h.running = false

	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
	log.Info("[Realtime] Hub stopped")
}

// EventChanged publishes a status change. Implements the pipeline Notifier;
// publish failures are logged and swallowed so the stream can never block or
// fail payment processing.
func (h *Hub) EventChanged(uuid string, integrationID uint, status string) {
	notice := EventNotice{
		EventUUID:     uuid,
		IntegrationID: integrationID,
		Status:        status,
		At:            time.Now().UTC(),
	}

	data, err := json.Marshal(notice)
	if err != nil {
		log.Errorf("[Realtime] Failed to encode notice: %v", err)
		return
	}

	if err := h.client.Publish(context.Background(), EventsChannel, data).Err(); err != nil {
		log.Errorf("[Realtime] Failed to publish notice for event %s: %v", uuid, err)
	}
}

// Subscribe registers a stream consumer. The returned channel is closed when
// the hub stops; callers must invoke the returned function when done.
func (h *Hub) Subscribe() (<-chan EventNotice, func()) {
	ch := make(chan EventNotice, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// SubscriberCount returns the number of connected stream consumers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var notice EventNotice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				log.Errorf("[Realtime] Dropping malformed notice: %v", err)
				continue
			}
			h.broadcast(notice)
		}
	}
}

// broadcast delivers a notice to every subscriber without ever blocking; a
// full subscriber loses its oldest notice to make room.
func (h *Hub) broadcast(notice EventNotice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- notice:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- notice:
			default:
			}
		}
	}
}
