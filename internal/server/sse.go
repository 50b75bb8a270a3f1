package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/DFN-master/izing-main/internal/event"
)

// SSEHeartbeatInterval is the interval for SSE heartbeats.
const SSEHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE event and flushes it out.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back to
	// the plain flusher if it cannot.
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// subscribeEvents subscribes to session events, optionally filtered to one
// tenant via the tenantId query parameter. The returned channel drops events
// rather than block a slow consumer.
func (s *Server) subscribeEvents(r *http.Request) (<-chan event.Event, func(), error) {
	events := make(chan event.Event, 10)
	deliver := func(e event.Event) {
		select {
		case events <- e:
		default:
			s.log.Warn().Str("channel", e.Channel).Msg("event dropped: stream consumer too slow")
		}
	}

	if raw := r.URL.Query().Get("tenantId"); raw != "" {
		tenantID, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("tenantId must be an integer")
		}
		return events, s.bus.Subscribe(event.ChannelFor(tenantID), deliver), nil
	}
	return events, s.bus.SubscribeAll(deliver), nil
}

// events streams session events over SSE until the client disconnects.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	events, unsub, err := s.subscribeEvents(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	sse, sseErr := newSSEWriter(w)
	if sseErr != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, sseErr.Error())
		return
	}

	// Flush headers right away so the client sees the stream open.
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.writeEvent("message", e); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
