package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/chroma-pulse/internal/dsp"
)

type recordingSink struct {
	mu        sync.Mutex
	connected []dsp.Source
}

func (r *recordingSink) Connect(src dsp.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = append(r.connected, src)
	return nil
}

func (r *recordingSink) sources() []dsp.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dsp.Source(nil), r.connected...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gatedOpener returns the stream only after release is closed, ignoring cancellation so
// a late success can be observed.
func gatedOpener(stream *Stream, release <-chan struct{}) Opener {
	return func(context.Context) (*Stream, error) {
		<-release
		return stream, nil
	}
}

func TestConnectorInstallsStream(t *testing.T) {
	sink := &recordingSink{}
	c := NewConnector(sink, quietLogger())
	stream := NewStream("mic", 16, 1, nil)

	c.Request(context.Background(), KindMicrophone, func(context.Context) (*Stream, error) {
		return stream, nil
	})
	c.Wait()

	require.Len(t, sink.sources(), 1)
	assert.Same(t, stream, sink.sources()[0])
	status := c.Status()
	assert.Equal(t, StateActive, status.State)
	assert.Equal(t, KindMicrophone, status.Kind)
	assert.Equal(t, "mic", status.Label)
}

func TestConnectorLastRequestWins(t *testing.T) {
	sink := &recordingSink{}
	c := NewConnector(sink, quietLogger())

	staleRelease := make(chan struct{})
	stale := NewStream("old", 16, 1, nil)
	fresh := NewStream("new", 16, 1, nil)

	c.Request(context.Background(), KindSystem, gatedOpener(stale, staleRelease))
	c.Request(context.Background(), KindMicrophone, func(context.Context) (*Stream, error) {
		return fresh, nil
	})

	// let the newer request finish before the stale one reports success
	require.Eventually(t, func() bool { return c.Status().State == StateActive }, timeout, tick)
	close(staleRelease)
	c.Wait()

	sources := sink.sources()
	require.Len(t, sources, 1)
	assert.Same(t, fresh, sources[0])
	assert.True(t, stale.Closed(), "superseded stream must be released")
	assert.False(t, fresh.Closed())
	assert.Equal(t, KindMicrophone, c.Status().Kind)
}

func TestConnectorCancelsSupersededRequest(t *testing.T) {
	c := NewConnector(&recordingSink{}, quietLogger())
	cancelled := make(chan struct{})

	c.Request(context.Background(), KindSystem, func(ctx context.Context) (*Stream, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ErrCancelled
	})
	c.Request(context.Background(), KindMicrophone, func(context.Context) (*Stream, error) {
		return NewStream("mic", 16, 1, nil), nil
	})
	c.Wait()

	select {
	case <-cancelled:
	default:
		t.Fatal("first request was not cancelled")
	}
	assert.Equal(t, StateActive, c.Status().State)
}

func TestConnectorReportsFailure(t *testing.T) {
	sink := &recordingSink{}
	c := NewConnector(sink, quietLogger())

	var seen []Status
	var mu sync.Mutex
	c.OnStatus(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	c.Request(context.Background(), KindMicrophone, func(context.Context) (*Stream, error) {
		return nil, eris.Wrap(ErrPermissionDenied, "open default input")
	})
	c.Wait()

	status := c.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.True(t, eris.Is(status.Err, ErrPermissionDenied))
	assert.Empty(t, sink.sources())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, StatePending, seen[0].State)
	assert.Equal(t, StateFailed, seen[1].State)
}

func TestConnectorCloseDropsLateStreams(t *testing.T) {
	sink := &recordingSink{}
	c := NewConnector(sink, quietLogger())
	late := NewStream("late", 16, 1, nil)

	c.Request(context.Background(), KindSystem, func(ctx context.Context) (*Stream, error) {
		<-ctx.Done()
		return late, nil
	})
	c.Close()

	assert.Empty(t, sink.sources())
	assert.True(t, late.Closed())
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
