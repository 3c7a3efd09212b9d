package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const KeepAliveInterval = 25 * time.Second

// StreamHandler serves order events as Server-Sent Events
type StreamHandler struct {
	hub       Hub
	logger    *zap.Logger
	keepAlive time.Duration
}

func NewStreamHandler(hub Hub, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: logger, keepAlive: KeepAliveInterval}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	events, err := h.hub.Subscribe(ctx)
	if err != nil {
		h.logger.Error("Failed to open order stream", zap.Error(err))
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}

	// The server's WriteTimeout would otherwise cut long-lived streams.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Could not clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: order\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
