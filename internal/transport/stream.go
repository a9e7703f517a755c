// ABOUTME: Event-stream transport server: SSE downstream plus HTTP POST upstream.
// ABOUTME: Each POST is handled in its own goroutine; responses correlate by envelope ID.

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/farolabs/faro/internal/authgate"
	"github.com/farolabs/faro/internal/wire"
)

const (
	// streamBufferSize is the per-stream outbox channel buffer.
	streamBufferSize = 64

	// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
	MaxRequestBodySize = 1 << 20
)

// eventStream is one connected client's downstream channel.
type eventStream struct {
	id     string
	out    chan *wire.Response
	ctx    context.Context
	cancel context.CancelFunc
}

// send queues a response for delivery, dropping it if the stream is gone.
func (es *eventStream) send(resp *wire.Response) bool {
	select {
	case es.out <- resp:
		return true
	case <-es.ctx.Done():
		return false
	}
}

// StreamServer serves the event-stream transport over HTTP:
//
//	GET  /events            long-lived SSE channel; first event names the POST endpoint
//	POST /rpc?session=<id>  one request envelope; 202 Accepted, response arrives on SSE
//
// Both endpoints sit behind the auth gate. Multiple requests may be in
// flight per stream; a slow handler never blocks delivery of unrelated
// responses because each POST dispatches in its own goroutine.
type StreamServer struct {
	handler Handler
	gate    *authgate.Gate
	logger  *slog.Logger

	mu      sync.RWMutex
	streams map[string]*eventStream
}

// NewStreamServer creates a StreamServer. Pass nil logger for default.
func NewStreamServer(handler Handler, gate *authgate.Gate, logger *slog.Logger) *StreamServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamServer{
		handler: handler,
		gate:    gate,
		logger:  logger.With("component", "stream_server"),
		streams: make(map[string]*eventStream),
	}
}

// RegisterRoutes registers the transport endpoints on the given ServeMux,
// wrapped in the auth gate middleware. Denied requests never reach the
// dispatcher.
func (s *StreamServer) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/events", s.gate.Middleware(http.HandlerFunc(s.handleEvents)))
	mux.Handle("/rpc", s.gate.Middleware(http.HandlerFunc(s.handleRPC)))
}

// handleEvents opens the long-lived SSE channel for one client.
func (s *StreamServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	es := &eventStream{
		id:     uuid.New().String(),
		out:    make(chan *wire.Response, streamBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	s.mu.Lock()
	s.streams[es.id] = es
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.streams, es.id)
		s.mu.Unlock()
		s.logger.Debug("event stream closed", "stream_id", es.id)
	}()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Tell the client where to POST its requests
	s.writeSSEEvent(w, "endpoint", map[string]string{
		"url": "/rpc?session=" + es.id,
	})
	flusher.Flush()

	s.logger.Info("event stream opened", "stream_id", es.id, "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-es.out:
			s.writeSSEEvent(w, "message", resp)
			flusher.Flush()
		}
	}
}

// handleRPC accepts one request envelope, acknowledges with 202, and
// dispatches in a goroutine. The response goes out on the stream's SSE
// channel tagged with the request's envelope ID.
func (s *StreamServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "missing session parameter")
		return
	}

	s.mu.RLock()
	es, ok := s.streams[sessionID]
	s.mu.RUnlock()
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, "unknown session")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req wire.Request
	if err := json.Unmarshal(body, &req); err != nil {
		// Malformed envelope: protocol error for this request only, the
		// channel stays up.
		s.sendJSONError(w, http.StatusBadRequest, "malformed request envelope")
		return
	}
	if req.ID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "request id is required")
		return
	}

	s.logger.Debug("rpc accepted",
		"stream_id", es.id,
		"request_id", req.ID,
		"method", req.Method,
	)

	// Dispatch off the POST goroutine's lifetime: the call is bound to the
	// stream, not to the short-lived POST.
	go func() {
		resp := s.handler.Handle(es.ctx, &req)
		if !es.send(resp) {
			// Stream gone before completion: result is undelivered, the
			// handler's side effects stand.
			s.logger.Debug("response dropped, stream closed",
				"stream_id", es.id,
				"request_id", req.ID,
			)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// writeSSEEvent writes a single SSE event to the response writer.
func (s *StreamServer) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// sendJSONError writes a JSON error response.
func (s *StreamServer) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
