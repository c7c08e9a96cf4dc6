package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/dsp"
)

// streamWindows is the ring-buffer capacity in FFT windows.
const streamWindows = 4

// audioContext owns the PortAudio session and every capture stream opened through it.
type audioContext struct {
	logger *slog.Logger
	cfg    captureConfig

	mu          sync.Mutex
	initialized bool
	suspended   bool
	devices     []*portaudio.DeviceInfo
	streams     map[*portaudio.Stream]struct{}
}

func newAudioContext(logger *slog.Logger, cfg captureConfig) *audioContext {
	return &audioContext{
		logger:  logger,
		cfg:     cfg,
		streams: make(map[*portaudio.Stream]struct{}),
	}
}

// configure sets the capture parameters used by later requests.
func (a *audioContext) configure(cfg captureConfig) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
}

// Init starts PortAudio and enumerates devices.
func (a *audioContext) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return eris.Wrap(err, "initialize PortAudio")
	}
	devices, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return eris.Wrap(err, "enumerate audio devices")
	}
	a.devices = devices
	a.initialized = true
	return nil
}

func (a *audioContext) Devices() []*portaudio.DeviceInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.devices
}

// Suspend stops every running stream without closing it.
func (a *audioContext) Suspend() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.suspended {
		return
	}
	for s := range a.streams {
		if err := s.Stop(); err != nil {
			a.logger.Warn("failed to stop capture stream", slog.Any("error", err))
		}
	}
	a.suspended = true
}

// Resume restarts streams stopped by Suspend.
func (a *audioContext) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.suspended {
		return nil
	}
	for s := range a.streams {
		if err := s.Start(); err != nil {
			return eris.Wrap(err, "restart capture stream")
		}
	}
	a.suspended = false
	return nil
}

// Close releases all streams and terminates PortAudio.
func (a *audioContext) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for s := range a.streams {
		_ = s.Stop()
		_ = s.Close()
	}
	clear(a.streams)
	if a.initialized {
		portaudio.Terminate()
		a.initialized = false
	}
}

// RequestMicrophone opens the default input device.
func (a *audioContext) RequestMicrophone(ctx context.Context) (*capture.Stream, error) {
	if !a.ready() {
		return nil, eris.Wrap(capture.ErrPermissionDenied, "audio subsystem unavailable")
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, eris.Wrapf(capture.ErrPermissionDenied, "resolve default input device: %v", err)
	}
	return a.open(ctx, dev)
}

// RequestSystemAudio opens the configured device or the first loopback/monitor input.
// Without one the request is cancelled.
func (a *audioContext) RequestSystemAudio(ctx context.Context) (*capture.Stream, error) {
	if !a.ready() {
		return nil, eris.Wrap(capture.ErrPermissionDenied, "audio subsystem unavailable")
	}

	devices := a.Devices()
	idx := a.config().DeviceIndex
	if idx < 0 || idx >= len(devices) {
		idx = findLoopbackDevice(devices)
	}
	if idx < 0 {
		return nil, eris.Wrap(capture.ErrCancelled, "no loopback or monitor capture device found")
	}
	return a.open(ctx, devices[idx])
}

func (a *audioContext) config() captureConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *audioContext) ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

func (a *audioContext) open(ctx context.Context, dev *portaudio.DeviceInfo) (*capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dev.MaxInputChannels < 1 {
		return nil, eris.Wrapf(capture.ErrPermissionDenied, "device %s has no input channels", dev.Name)
	}
	if err := a.Resume(); err != nil {
		return nil, eris.Wrap(capture.ErrPermissionDenied, err.Error())
	}

	cfg := a.config()
	channels := sanitizeChannelCount(cfg.Channels, dev.MaxInputChannels)
	sampleRate := effectiveSampleRate(cfg.SampleRate, dev.DefaultSampleRate)
	frameSize := effectiveFrameSize(cfg.FrameSize)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: frameSize,
	}
	if cfg.Latency > 0 {
		params.Input.Latency = cfg.Latency
	}

	var ps *portaudio.Stream
	stream := capture.NewStream(dev.Name, dsp.FFTSize*streamWindows, channels, func() error {
		return a.release(ps)
	})

	ps, err := portaudio.OpenStream(params, stream.Write)
	if err != nil {
		return nil, eris.Wrapf(capture.ErrPermissionDenied, "open %s: %v", dev.Name, err)
	}
	if err := ps.Start(); err != nil {
		_ = ps.Close()
		return nil, eris.Wrapf(capture.ErrPermissionDenied, "start %s: %v", dev.Name, err)
	}

	a.mu.Lock()
	a.streams[ps] = struct{}{}
	a.mu.Unlock()

	a.logger.Info("using audio input device",
		slog.String("name", dev.Name),
		slog.Float64("sample_rate", sampleRate),
		slog.Int("channels", channels),
		slog.Int("frame_size", frameSize))
	return stream, nil
}

func (a *audioContext) release(ps *portaudio.Stream) error {
	if ps == nil {
		return nil
	}
	a.mu.Lock()
	_, ok := a.streams[ps]
	delete(a.streams, ps)
	a.mu.Unlock()
	if !ok {
		return nil
	}

	stopErr := ps.Stop()
	if err := ps.Close(); err != nil {
		return eris.Wrap(err, "close capture stream")
	}
	return eris.Wrap(stopErr, "stop capture stream")
}
