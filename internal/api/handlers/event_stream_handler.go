package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/providers"
	"github.com/queueup/backend/internal/infrastructure/observability"
	"github.com/queueup/backend/pkg/encoding"
)

// EventSubscriber is the read side of the queue event bus.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error)
}

// EventStreamHandler pushes a shop's queue events to clients over
// Server-Sent Events, so waiting customers and display boards refresh
// their position without polling.
type EventStreamHandler struct {
	events    EventSubscriber
	codec     *encoding.Codec
	heartbeat time.Duration
}

// NewEventStreamHandler creates a new event stream handler
func NewEventStreamHandler(events EventSubscriber, codec *encoding.Codec) *EventStreamHandler {
	return &EventStreamHandler{
		events:    events,
		codec:     codec,
		heartbeat: 30 * time.Second,
	}
}

// StreamShopEvents handles SSE connections for one shop's queue
// GET /api/shops/{shopId}/events
func (h *EventStreamHandler) StreamShopEvents(w http.ResponseWriter, r *http.Request) {
	shopID, err := h.codec.Decode(r.PathValue("shopId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The subscription dies with the request context.
	eventChan, err := h.events.Subscribe(r.Context(), providers.ShopChannel(shopID))
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).
			Int32("shop_id", shopID).
			Msg("failed to subscribe to queue events")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]interface{}{
		"shop_id":   r.PathValue("shopId"),
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
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
			h.sendEvent(w, string(event.Type), newQueueEventView(h.codec, event))
			flusher.Flush()
		}
	}
}

// sendEvent writes one SSE frame
func (h *EventStreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).
			Str("event_type", eventType).
			Msg("failed to marshal stream event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
