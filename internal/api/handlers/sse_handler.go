package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/feediq/internal/domain/entities"
)

const defaultHeartbeat = 30 * time.Second

// FeedbackWatcher subscribes to records becoming visible in the store
type FeedbackWatcher interface {
	Watch(ctx context.Context) (<-chan *entities.FeedbackEvent, error)
}

// SSEHandler streams feedback events as Server-Sent Events
type SSEHandler struct {
	watcher   FeedbackWatcher
	heartbeat time.Duration
	clients   atomic.Int64
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(watcher FeedbackWatcher) *SSEHandler {
	return &SSEHandler{
		watcher:   watcher,
		heartbeat: defaultHeartbeat,
	}
}

// SetHeartbeat changes the keep-alive interval
func (h *SSEHandler) SetHeartbeat(interval time.Duration) {
	if interval > 0 {
		h.heartbeat = interval
	}
}

// StreamFeedback handles GET /api/feedback/stream
func (h *SSEHandler) StreamFeedback(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.watcher.Watch(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to subscribe to feedback events")
		respondWithError(w, http.StatusServiceUnavailable, "change notifications unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	count := h.clients.Add(1)
	defer h.clients.Add(-1)
	log.Debug().Int64("clients", count).Msg("feedback stream client connected")

	h.sendEvent(w, "connected", map[string]interface{}{
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("feedback stream client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// ClientCount returns the number of connected stream clients
func (h *SSEHandler) ClientCount() int {
	return int(h.clients.Load())
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
