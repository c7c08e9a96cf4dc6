package capture

import (
	"sync"

	"github.com/cybre/chroma-pulse/internal/dsp"
)

// Stream is a mono ring buffer fed by a capture callback and read by the spectrum
// analyzer. It implements dsp.Source.
type Stream struct {
	label    string
	channels int

	mu      sync.Mutex
	buf     []float64
	pos     int
	filled  int
	mono    []float64
	closed  bool
	closeFn func() error
}

var _ dsp.Source = (*Stream)(nil)

// NewStream allocates a stream holding the newest capacity mono samples. closeFn runs
// once when the stream is disconnected and may be nil.
func NewStream(label string, capacity, channels int, closeFn func() error) *Stream {
	if capacity <= 0 {
		capacity = dsp.FFTSize
	}
	if channels <= 0 {
		channels = 1
	}
	return &Stream{
		label:    label,
		channels: channels,
		buf:      make([]float64, capacity),
		closeFn:  closeFn,
	}
}

// Label names the device the stream was opened on.
func (s *Stream) Label() string {
	return s.label
}

// Write appends interleaved samples. Writes after Disconnect are dropped.
func (s *Stream) Write(interleaved []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.mono = dsp.ToMono(interleaved, s.channels, s.mono)
	for _, v := range s.mono {
		s.buf[s.pos] = v
		s.pos = (s.pos + 1) % len(s.buf)
	}
	s.filled = min(s.filled+len(s.mono), len(s.buf))
}

// Window copies the newest samples into dst, oldest first.
func (s *Stream) Window(dst []float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(len(dst), s.filled)
	start := s.pos - n
	if start < 0 {
		start += len(s.buf)
	}
	for i := range n {
		dst[i] = s.buf[(start+i)%len(s.buf)]
	}
	return n
}

// Disconnect stops the stream. Only the first call reaches closeFn.
func (s *Stream) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closeFn := s.closeFn
	s.mu.Unlock()

	if closeFn == nil {
		return nil
	}
	return closeFn()
}

// Closed reports whether Disconnect has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
