package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/dsp"
)

// Kind identifies which capture path a request uses.
type Kind int

const (
	KindNone Kind = iota
	KindMicrophone
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindMicrophone:
		return "microphone"
	case KindSystem:
		return "system"
	default:
		return "none"
	}
}

// State is the lifecycle of the most recent connection request.
type State int

const (
	StateIdle State = iota
	StatePending
	StateActive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Status describes the outcome of the newest request.
type Status struct {
	Kind  Kind
	State State
	Label string
	Err   error
}

// Opener opens a capture stream. It should return promptly once ctx is cancelled.
type Opener func(ctx context.Context) (*Stream, error)

// Sink receives connected streams.
type Sink interface {
	Connect(src dsp.Source) error
}

// Connector resolves capture requests asynchronously. Only the newest request may
// install its stream: older requests are cancelled and any stream they still produce
// is disconnected.
type Connector struct {
	sink   Sink
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	status     Status
	onStatus   func(Status)

	wg sync.WaitGroup
}

// NewConnector builds a connector that installs streams into sink.
func NewConnector(sink Sink, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{sink: sink, logger: logger}
}

// OnStatus registers a callback fired after every status change. It runs with the
// connector lock released.
func (c *Connector) OnStatus(fn func(Status)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// Status returns the newest request's status.
func (c *Connector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Request starts opening a stream in the background and returns its generation.
func (c *Connector) Request(ctx context.Context, kind Kind, open Opener) uint64 {
	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.status = Status{Kind: kind, State: StatePending}
	status, notify := c.status, c.onStatus
	c.mu.Unlock()

	if notify != nil {
		notify(status)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		stream, err := open(reqCtx)
		c.resolve(gen, kind, stream, err)
	}()

	return gen
}

func (c *Connector) resolve(gen uint64, kind Kind, stream *Stream, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded audio connection",
			slog.String("kind", kind.String()),
			slog.Uint64("generation", gen))
		if stream != nil {
			if derr := stream.Disconnect(); derr != nil {
				c.logger.Warn("failed to close superseded stream", slog.Any("error", derr))
			}
		}
		return
	}

	switch {
	case err != nil:
		c.status = Status{Kind: kind, State: StateFailed, Err: err}
	case stream == nil:
		c.status = Status{Kind: kind, State: StateFailed, Err: eris.New("capture returned no stream")}
	default:
		if cerr := c.sink.Connect(stream); cerr != nil {
			c.logger.Warn("previous audio source did not disconnect cleanly", slog.Any("error", cerr))
		}
		c.status = Status{Kind: kind, State: StateActive, Label: stream.Label()}
	}
	c.cancel = nil
	status, notify := c.status, c.onStatus
	c.mu.Unlock()

	if status.State == StateFailed {
		c.logger.Warn("audio connection failed",
			slog.String("kind", kind.String()),
			slog.Any("error", status.Err))
	} else {
		c.logger.Info("audio source connected",
			slog.String("kind", kind.String()),
			slog.String("device", status.Label))
	}

	if notify != nil {
		notify(status)
	}
}

// Wait blocks until every in-flight request has resolved.
func (c *Connector) Wait() {
	c.wg.Wait()
}

// Close cancels the pending request, if any, and waits for outstanding work.
func (c *Connector) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.mu.Unlock()

	c.wg.Wait()
}
