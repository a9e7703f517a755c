// ABOUTME: Client adapter for the event-stream transport.
// ABOUTME: Reads the SSE channel, posts request envelopes, correlates responses by ID.

package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/farolabs/faro/internal/authgate"
	"github.com/farolabs/faro/internal/wire"
)

// StreamAdapter is the client side of the event-stream transport. Multiple
// calls may be in flight at once; each response is matched to its pending
// call by envelope ID regardless of arrival order.
type StreamAdapter struct {
	postURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	cancel context.CancelFunc
	body   io.Closer

	mu      sync.Mutex
	pending map[string]chan *wire.Response
	closed  bool
	done    chan struct{}
}

// DialStream connects to a faro event-stream server at eventsURL, waits for
// the endpoint event naming the POST URL, and returns a ready adapter.
// Returns ErrUnauthorized if the server rejects the api key and ErrTransport
// if the server is unreachable or the handshake is cut short.
func DialStream(ctx context.Context, eventsURL, apiKey string, logger *slog.Logger) (*StreamAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, eventsURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set(authgate.HeaderAPIKey, apiKey)
	}

	// No client timeout here: the events stream is long-lived.
	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: connecting event stream: %v", ErrTransport, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		cancel()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: event stream returned status %d", ErrTransport, resp.StatusCode)
	}

	a := &StreamAdapter{
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With("component", "stream"),
		cancel:     cancel,
		body:       resp.Body,
		pending:    make(map[string]chan *wire.Response),
		done:       make(chan struct{}),
	}

	endpointCh := make(chan string, 1)
	go a.readEvents(resp.Body, endpointCh)

	// The handshake is complete once the server names the POST endpoint.
	select {
	case <-ctx.Done():
		a.Close()
		return nil, ctx.Err()
	case <-a.done:
		return nil, fmt.Errorf("%w: event stream closed during handshake", ErrTransport)
	case endpoint := <-endpointCh:
		postURL, err := resolvePostURL(eventsURL, endpoint)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%w: bad endpoint event: %v", ErrProtocol, err)
		}
		a.postURL = postURL
	}

	a.logger.Debug("event stream connected", "post_url", a.postURL)
	return a, nil
}

// resolvePostURL resolves the endpoint path from the endpoint event against
// the events URL.
func resolvePostURL(eventsURL, endpoint string) (string, error) {
	base, err := url.Parse(eventsURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// readEvents parses the SSE stream and routes message events to their
// pending calls. A malformed event is skipped; only stream loss stops the
// loop, at which point all pending calls fail with ErrTransport.
func (a *StreamAdapter) readEvents(body io.Reader, endpointCh chan<- string) {
	defer func() {
		a.mu.Lock()
		for id, ch := range a.pending {
			close(ch)
			delete(a.pending, id)
		}
		a.mu.Unlock()
		close(a.done)
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var event string
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			a.handleEvent(event, data.String(), endpointCh)
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}
}

func (a *StreamAdapter) handleEvent(event, data string, endpointCh chan<- string) {
	switch event {
	case "endpoint":
		var ep struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(data), &ep); err != nil || ep.URL == "" {
			a.logger.Warn("malformed endpoint event", "data", data)
			return
		}
		select {
		case endpointCh <- ep.URL:
		default:
		}
	case "message":
		var resp wire.Response
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			a.logger.Warn("malformed message event", "error", err)
			return
		}
		a.mu.Lock()
		ch, ok := a.pending[resp.ID]
		if ok {
			delete(a.pending, resp.ID)
		}
		a.mu.Unlock()
		if !ok {
			a.logger.Debug("response for unknown request id", "request_id", resp.ID)
			return
		}
		ch <- &resp
	}
}

// Call posts one request envelope and awaits the correlated response from
// the event stream. Safe for concurrent use; responses may interleave across
// in-flight calls and are matched strictly by ID.
func (a *StreamAdapter) Call(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	ch := make(chan *wire.Response, 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := a.pending[req.ID]; exists {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: duplicate request id %q", ErrProtocol, req.ID)
	}
	a.pending[req.ID] = ch
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.pending, req.ID)
		a.mu.Unlock()
	}()

	if err := a.post(ctx, req); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: event stream closed", ErrTransport)
		}
		return resp, nil
	}
}

func (a *StreamAdapter) post(ctx context.Context, req *wire.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrProtocol, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.postURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set(authgate.HeaderAPIKey, a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: posting request: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: server rejected envelope (status %d)", ErrProtocol, resp.StatusCode)
	default:
		return fmt.Errorf("%w: rpc post returned status %d", ErrTransport, resp.StatusCode)
	}
}

// Close tears down the event stream and fails all outstanding calls.
func (a *StreamAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	return a.body.Close()
}
