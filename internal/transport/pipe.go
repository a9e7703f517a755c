// ABOUTME: Local-pipe transport: newline-delimited JSON envelopes over stdio.
// ABOUTME: Parent side spawns a child server process; closing the parent ends the child.

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/farolabs/faro/internal/wire"
)

// maxLineSize bounds one envelope line (1MB, matching the HTTP body limit).
const maxLineSize = 1 << 20

// PipeAdapter is the parent side of the local-pipe transport. It writes
// request lines to the child's stdin and reads response lines from its
// stdout. One request is outstanding at a time; the duplex byte stream
// delivers responses in write order.
type PipeAdapter struct {
	w      io.WriteCloser
	lines  chan []byte // response lines from the reader goroutine
	cmd    *exec.Cmd   // nil when wrapping raw streams (tests)
	logger *slog.Logger

	callMu sync.Mutex // serializes in-flight requests

	closeMu sync.Mutex
	closed  bool
}

// SpawnPipe starts the given command as a child server process and attaches
// a PipeAdapter to its stdio. The child's stderr passes through to the
// parent's stderr so server logs stay visible.
func SpawnPipe(ctx context.Context, name string, args []string, extraEnv []string, logger *slog.Logger) (*PipeAdapter, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening child stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening child stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting child process: %v", ErrTransport, err)
	}

	a := NewPipeAdapter(stdout, stdin, logger)
	a.cmd = cmd
	return a, nil
}

// NewPipeAdapter wraps an existing duplex byte stream. Used directly in
// tests with in-memory pipes; SpawnPipe uses it for real child processes.
func NewPipeAdapter(r io.Reader, w io.WriteCloser, logger *slog.Logger) *PipeAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &PipeAdapter{
		w:      w,
		lines:  make(chan []byte, 1),
		logger: logger.With("component", "pipe"),
	}

	go func() {
		defer close(a.lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			a.lines <- line
		}
		if err := scanner.Err(); err != nil {
			a.logger.Debug("pipe reader stopped", "error", err)
		}
	}()

	return a
}

// Call sends one request and awaits its response. Responses arrive in write
// order on the pipe; a malformed line is reported as ErrProtocol without
// tearing the channel down. A response whose ID does not match can only be
// the stale answer to an earlier call whose context expired before the line
// arrived, so it is discarded and the read continues.
func (a *PipeAdapter) Call(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	a.callMu.Lock()
	defer a.callMu.Unlock()

	if a.isClosed() {
		return nil, ErrClosed
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrProtocol, err)
	}
	data = append(data, '\n')

	if _, err := a.w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: writing request: %v", ErrTransport, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-a.lines:
			if !ok {
				return nil, fmt.Errorf("%w: channel closed by peer", ErrTransport)
			}
			var resp wire.Response
			if err := json.Unmarshal(line, &resp); err != nil {
				return nil, fmt.Errorf("%w: malformed response envelope: %v", ErrProtocol, err)
			}
			if resp.ID != req.ID {
				a.logger.Debug("discarding stale response",
					"response_id", resp.ID,
					"request_id", req.ID,
				)
				continue
			}
			return &resp, nil
		}
	}
}

// Close closes the parent side of the pipe, which terminates the child.
func (a *PipeAdapter) Close() error {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	err := a.w.Close()
	if a.cmd != nil {
		// Child reads EOF on stdin and exits; reap it.
		if werr := a.cmd.Wait(); werr != nil && err == nil {
			var exitErr *exec.ExitError
			if !errors.As(werr, &exitErr) {
				err = werr
			}
		}
	}
	return err
}

func (a *PipeAdapter) isClosed() bool {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	return a.closed
}

// PipeServer is the child side of the local-pipe transport. It reads request
// lines from in, dispatches them sequentially, and writes response lines to
// out. One logical flow per connection: no interleaving.
type PipeServer struct {
	handler Handler
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

// NewPipeServer creates a pipe server. Pass os.Stdin/os.Stdout in production.
func NewPipeServer(handler Handler, in io.Reader, out io.Writer, logger *slog.Logger) *PipeServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipeServer{
		handler: handler,
		in:      in,
		out:     out,
		logger:  logger.With("component", "pipe_server"),
	}
}

// Serve processes requests until EOF on the input stream or ctx cancellation.
// A malformed line yields a protocol-error response and the loop continues;
// only a broken stream ends it.
func (s *PipeServer) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	w := bufio.NewWriter(s.out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req wire.Request
		var resp *wire.Response
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("malformed request envelope", "error", err)
			resp = ProtocolErrorResponse("", "malformed request envelope")
		} else {
			resp = s.handler.Handle(ctx, &req)
		}

		if err := s.writeLine(w, resp); err != nil {
			return fmt.Errorf("%w: writing response: %v", ErrTransport, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading requests: %v", ErrTransport, err)
	}
	// EOF: parent closed its side
	return nil
}

func (s *PipeServer) writeLine(w *bufio.Writer, resp *wire.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return w.Flush()
}
