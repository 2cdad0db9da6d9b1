package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "notifications:"
	channelSuffix = ":broadcast"
)

// Hub fans notification payloads out to the websocket clients of a user.
// With redis, every payload goes through pub/sub so clients connected to any
// instance receive it exactly once.
type Hub struct {
	redis   *redis.Client
	sub     *redis.PubSub
	logger  *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		sub := redisClient.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
		if _, err := sub.Receive(ctx); err != nil {
			logger.Warn("redis subscribe failed, push stays local", "error", err)
			_ = sub.Close()
		} else {
			h.sub = sub
			go h.forward(sub.Channel())
		}
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		if _, ok := userClients[client]; !ok {
			return
		}
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
		close(client.Send)
	}
}

// Broadcast delivers payload to every client of userID. Slow clients drop
// messages instead of blocking the sender.
func (h *Hub) Broadcast(userID string, payload []byte) {
	if h.sub != nil {
		err := h.redis.Publish(context.Background(), redisChannel(userID), payload).Err()
		if err == nil {
			return
		}
		h.logger.Warn("redis publish failed, delivering locally", "user_id", userID, "error", err)
	}
	h.deliver(userID, payload)
}

// Close stops the redis subscription.
func (h *Hub) Close() error {
	if h.sub == nil {
		return nil
	}
	return h.sub.Close()
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(ch <-chan *redis.Message) {
	for msg := range ch {
		if userID := userIDFromChannel(msg.Channel); userID != "" {
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

func userIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(ch, channelPrefix), channelSuffix)
}
