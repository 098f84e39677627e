package ws

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisstore "github.com/gosuda/aegis/internal/store/redis"
)

// Event is the wire shape of a lifecycle update pushed to watchers. It
// mirrors what the policy engine publishes to Redis.
type Event struct {
	Type      string    `json:"type"` // "action_created", "action_approved", "action_rejected", "action_cancelled", "action_executed"
	Action    any       `json:"action,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	pubsub *redisstore.PubSub
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub *redisstore.PubSub) *Hub {
	return &Hub{pubsub: pubsub}
}

// ServeEvents handles WebSocket connections for the engine-wide event
// firehose. Subscribes to the events channel and forwards every lifecycle
// update to the connected client.
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, redisstore.EventsChannel)
}

// ServeAction handles WebSocket connections following a single action.
// Subscribes to the action's own channel so an approval watcher does not
// have to filter the firehose.
func (h *Hub) ServeAction(w http.ResponseWriter, r *http.Request) {
	actionIDStr := chi.URLParam(r, "actionID")
	actionID, err := uuid.Parse(actionIDStr)
	if err != nil {
		http.Error(w, "invalid action id", http.StatusBadRequest)
		return
	}

	h.serve(w, r, redisstore.ActionChannel(actionID))
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
