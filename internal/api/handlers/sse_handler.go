package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// HeartbeatInterval is how often idle streams receive a heartbeat event
var HeartbeatInterval = 30 * time.Second

// reconnectDelay is sent as the stream's retry hint
const reconnectDelay = 3 * time.Second

// SSEHandler streams booking events over Server-Sent Events
type SSEHandler struct {
	eventBus providers.EventBus
	clients  map[string]map[chan *entities.DomainEvent]bool // channel -> clients
	mu       sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus: eventBus,
		clients:  make(map[string]map[chan *entities.DomainEvent]bool),
	}
}

// StreamUserEvents handles GET /api/stream/users/{id}. The user receives
// their booking lifecycle and conflict events.
func (h *SSEHandler) StreamUserEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user ID is required")
		return
	}
	h.stream(w, r, providers.GetUserChannel(userID), map[string]interface{}{"user_id": userID}, nil)
}

// StreamProviderEvents handles GET /api/stream/providers/{id}. Only booking
// events naming the provider are forwarded.
func (h *SSEHandler) StreamProviderEvents(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}
	h.stream(w, r, providers.EventChannelBookings, map[string]interface{}{"provider_id": providerID},
		func(event *entities.DomainEvent) bool {
			id, _ := event.Data["provider_id"].(string)
			return id == providerID
		})
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel string, hello map[string]interface{}, keep func(*entities.DomainEvent) bool) {
	logger := observability.LoggerFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan *entities.DomainEvent, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	fmt.Fprintf(w, "retry: %d\n\n", reconnectDelay.Milliseconds())
	hello["timestamp"] = time.Now().UTC()
	h.sendEvent(w, "", "connected", hello)
	flusher.Flush()

	go h.forwardEvents(r.Context(), eventChan, clientChan, keep)

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Str("channel", channel).Msg("stream client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "", "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, event.ID, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents copies matching events to the client, dropping them when the
// client falls behind
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.DomainEvent, clientChan chan<- *entities.DomainEvent, keep func(*entities.DomainEvent) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || (keep != nil && !keep(event)) {
				continue
			}
			select {
			case clientChan <- event:
			default:
			}
		}
	}
}

func (h *SSEHandler) registerClient(channel string, clientChan chan *entities.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.DomainEvent]bool)
	}
	h.clients[channel][clientChan] = true
}

func (h *SSEHandler) unregisterClient(channel string, clientChan chan *entities.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

// sendEvent writes one SSE frame; id is omitted for synthetic events so
// Last-Event-ID keeps pointing at the last domain event
func (h *SSEHandler) sendEvent(w http.ResponseWriter, id, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event")
		return
	}

	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
