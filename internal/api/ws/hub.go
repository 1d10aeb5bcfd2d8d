package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fontmanifest/internal/pipeline"
	redisstore "github.com/gosuda/fontmanifest/internal/store/redis"
)

// EventSource provides live and recorded build events.
// *redis.PubSub satisfies this interface.
type EventSource interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
	History(ctx context.Context, buildID uuid.UUID) ([][]byte, error)
}

// Hub streams build events to WebSocket clients.
type Hub struct {
	events EventSource
}

// NewHub creates a new WebSocket hub.
func NewHub(events EventSource) *Hub {
	return &Hub{events: events}
}

// ServeBuild streams the events of one build: recorded events first, then
// live ones. The connection closes after the build completes or fails.
func (h *Hub) ServeBuild(w http.ResponseWriter, r *http.Request) {
	buildID, err := uuid.Parse(chi.URLParam(r, "buildID"))
	if err != nil {
		http.Error(w, "invalid build id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	// Subscribe before reading history so no event falls in between.
	messages, cleanup, err := h.events.Subscribe(ctx, redisstore.BuildChannel(buildID))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	history, err := h.events.History(ctx, buildID)
	if err != nil {
		log.Error().Err(err).Str("build_id", buildID.String()).Msg("websocket history")
		_ = conn.Close(websocket.StatusInternalError, "history failed")
		return
	}

	replayed := make(map[string]struct{}, len(history))
	for _, msg := range history {
		if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
			log.Debug().Err(writeErr).Msg("websocket write")
			return
		}
		replayed[string(msg)] = struct{}{}
		if isTerminal(msg) {
			_ = conn.Close(websocket.StatusNormalClosure, "build finished")
			return
		}
	}

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
			if _, dup := replayed[string(msg)]; dup {
				delete(replayed, string(msg))
				continue
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
			if isTerminal(msg) {
				_ = conn.Close(websocket.StatusNormalClosure, "build finished")
				return
			}
		}
	}
}

// ServeBuilds streams live events of every build.
func (h *Hub) ServeBuilds(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.events.Subscribe(ctx, redisstore.BuildsChannel)
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

func isTerminal(payload []byte) bool {
	var ev pipeline.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return false
	}
	return ev.Type == pipeline.EventBuildCompleted || ev.Type == pipeline.EventBuildFailed
}
