// ABOUTME: Tests for the client session over a fake transport adapter.
// ABOUTME: Covers the initialize gate, result decoding, caching, and timeouts.

package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/transport"
	"github.com/farolabs/faro/internal/wire"
)

// fakeAdapter answers Call through a settable function.
type fakeAdapter struct {
	call   func(ctx context.Context, req *wire.Request) (*wire.Response, error)
	closed bool
}

func (f *fakeAdapter) Call(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return f.call(ctx, req)
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

// respondWith builds a Call function that always succeeds with the given
// result payload, echoing the request ID.
func respondWith(result any) func(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	return func(_ context.Context, req *wire.Request) (*wire.Response, error) {
		data, _ := json.Marshal(result)
		return &wire.Response{JSONRPC: wire.Version, ID: req.ID, Result: data}, nil
	}
}

func TestInitializeRequired(t *testing.T) {
	sess := New(&fakeAdapter{}, 0, nil)

	_, err := sess.List(context.Background(), capability.KindAction)
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = sess.Call(context.Background(), capability.KindAction, "sumar", nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeHandshake(t *testing.T) {
	adapter := &fakeAdapter{call: respondWith(wire.InitializeResult{
		ServerName:    "faro-simple",
		ServerVersion: "dev",
	})}
	sess := New(adapter, 0, nil)

	require.NoError(t, sess.Initialize(context.Background()))
	name, version := sess.ServerInfo()
	assert.Equal(t, "faro-simple", name)
	assert.Equal(t, "dev", version)
}

func TestListCachesSnapshot(t *testing.T) {
	caps := []wire.CapabilityInfo{
		{Kind: "action", Name: "sumar", Description: "suma dos enteros"},
	}
	adapter := &fakeAdapter{}
	adapter.call = respondWith(wire.InitializeResult{ServerName: "faro-simple"})
	sess := New(adapter, 0, nil)
	require.NoError(t, sess.Initialize(context.Background()))

	adapter.call = respondWith(wire.ListResult{Capabilities: caps})
	got, err := sess.List(context.Background(), capability.KindAction)
	require.NoError(t, err)
	assert.Equal(t, caps, got)
	assert.Equal(t, caps, sess.Cached())
}

func TestCallDecodesInvocationResult(t *testing.T) {
	adapter := &fakeAdapter{call: respondWith(wire.InitializeResult{ServerName: "faro-simple"})}
	sess := New(adapter, 0, nil)
	require.NoError(t, sess.Initialize(context.Background()))

	t.Run("ok result", func(t *testing.T) {
		adapter.call = respondWith(wire.InvocationResult{Status: wire.StatusOk, Payload: float64(30)})
		res, err := sess.Call(context.Background(), capability.KindAction, "sumar", map[string]any{"a": 10, "b": 20})
		require.NoError(t, err)
		assert.True(t, res.Ok())
		assert.Equal(t, float64(30), res.Payload)
	})

	t.Run("dispatcher error travels in the result, not the error return", func(t *testing.T) {
		adapter.call = respondWith(wire.InvocationResult{
			Status: wire.StatusError,
			Err:    &wire.ErrorDetail{Code: wire.CodeValidation, Message: "invalid arguments: missing required parameter \"b\""},
		})
		res, err := sess.Call(context.Background(), capability.KindAction, "sumar", map[string]any{"a": 10})
		require.NoError(t, err)
		assert.False(t, res.Ok())
		assert.Equal(t, wire.CodeValidation, res.Err.Code)
	})

	t.Run("envelope error maps to protocol error", func(t *testing.T) {
		adapter.call = func(_ context.Context, req *wire.Request) (*wire.Response, error) {
			return &wire.Response{
				JSONRPC: wire.Version,
				ID:      req.ID,
				Error:   &wire.ErrorDetail{Code: wire.CodeProtocol, Message: "method not found: bogus"},
			}, nil
		}
		_, err := sess.Call(context.Background(), capability.KindAction, "sumar", nil)
		require.ErrorIs(t, err, transport.ErrProtocol)
	})
}

func TestCallTimeout(t *testing.T) {
	adapter := &fakeAdapter{call: func(ctx context.Context, _ *wire.Request) (*wire.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	sess := New(adapter, 50*time.Millisecond, nil)
	sess.initialized = true

	start := time.Now()
	_, err := sess.Call(context.Background(), capability.KindAction, "sumar", nil)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCallerCancellationIsNotATimeout(t *testing.T) {
	adapter := &fakeAdapter{call: func(ctx context.Context, _ *wire.Request) (*wire.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	sess := New(adapter, time.Minute, nil)
	sess.initialized = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := sess.Call(ctx, capability.KindAction, "sumar", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestCloseReleasesAdapter(t *testing.T) {
	adapter := &fakeAdapter{}
	sess := New(adapter, 0, nil)
	require.NoError(t, sess.Close())
	assert.True(t, adapter.closed)
}
