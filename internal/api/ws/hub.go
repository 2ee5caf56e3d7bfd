// Package ws streams live turn events to connected clients over
// WebSocket, backed by Redis pub/sub. The feed is a convenience for
// open conversation views; the event log remains the durable record
// and clients reconcile through the history endpoint.
package ws

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gosuda/parley/internal/server/middleware"
	"github.com/gosuda/parley/internal/store/redispubsub"
)

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	pubsub *redispubsub.PubSub
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub *redispubsub.PubSub) *Hub {
	return &Hub{pubsub: pubsub}
}

// ServeTurns handles WebSocket connections for a session's live turn
// feed. Subscribes to the session's turn channel and forwards each
// appended turn to the client as a JSON text message.
func (h *Hub) ServeTurns(w http.ResponseWriter, r *http.Request) {
	actorKey, ok := middleware.ActorKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusBadRequest)
		return
	}

	sessionIDStr := chi.URLParam(r, "sessionID")
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	channel := redispubsub.TurnChannel(actorKey, sessionID)

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
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
