package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/story-grid/internal/events"
	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/redis/go-redis/v9"
)

// EventsHandler handles Server-Sent Events (SSE) for live draft updates
type EventsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	keepalive   time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(redisClient *redis.Client, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		logger:      logger,
		keepalive:   30 * time.Second,
	}
}

// ServeHTTP handles SSE requests for draft events
// GET /v1/events/drafts/{respondentID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for events endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	// Extract respondentID from path
	// Expected: /v1/events/drafts/{respondentID}
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "events" || pathParts[2] != "drafts" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/events/drafts/{respondentID}")
		return
	}

	respondentID := pathParts[3]
	if err := storage.ValidateRespondentID(respondentID); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid respondent ID format.")
		return
	}

	h.logger.Info("SSE connection established",
		"respondent_id", respondentID,
		"remote_addr", r.RemoteAddr)

	// Subscribe to the respondent's draft channel before sending headers, so
	// no event published after the connected event is missed
	pubsub := h.redisClient.Subscribe(r.Context(), events.Channel(respondentID))
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe", "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}
	// Create message channel
	msgChan := pubsub.Channel()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Keepalive ticker (30 seconds unless overridden)
	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	// Send initial connection event
	h.sendSSE(w, "connected", map[string]any{
		"respondent_id": respondentID,
		"message":       "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			// Client disconnected
			h.logger.Info("SSE client disconnected",
				"respondent_id", respondentID)
			return

		case msg, ok := <-msgChan:
			// Received event from Redis
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			// Forward event to client
			h.sendSSE(w, string(event.Type), event.Data)

		case <-keepaliveTicker.C:
			// Send keepalive comment
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
