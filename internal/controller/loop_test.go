package controller

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/orchestrator"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
)

type eventLog struct {
	events []string
}

func (e *eventLog) add(ev string) {
	e.events = append(e.events, ev)
}

type fakeSampler struct {
	log   *eventLog
	frame dsp.Frame
}

func (s *fakeSampler) Sample() dsp.Frame {
	s.log.add("sample")
	return s.frame
}

type fakeSurface struct {
	log     *eventLog
	meshes  int
	width   int
	height  int
	drawErr error
}

func (s *fakeSurface) Attach(*scene.Mesh) { s.meshes++ }
func (s *fakeSurface) Detach(*scene.Mesh) { s.meshes-- }

func (s *fakeSurface) Draw() error {
	s.log.add("draw")
	return s.drawErr
}

func (s *fakeSurface) Resize(w, h int) {
	s.width, s.height = w, h
}

// recordingMode logs every update and the palette it was given.
type recordingMode struct {
	modes.Mode
	log      *eventLog
	lastPal  palette.Palette
	lastReac float64
	panics   bool
}

func (m *recordingMode) Update(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	m.log.add("update")
	if m.panics {
		panic("boom")
	}
	m.lastPal = pal
	m.lastReac = reactivity
	m.Mode.Update(frame, pal, reactivity)
}

type harness struct {
	log     *eventLog
	sampler *fakeSampler
	surface *fakeSurface
	orch    *orchestrator.Orchestrator
	loop    *Loop
	mode    *recordingMode
	reports []Report
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{log: &eventLog{}}
	h.sampler = &fakeSampler{log: h.log}
	h.surface = &fakeSurface{log: h.log}

	lookup := func(name modes.Name) (modes.Constructor, error) {
		ctor, err := modes.Lookup(name)
		if err != nil {
			return nil, err
		}
		return func(q modes.Quality) modes.Mode {
			h.mode = &recordingMode{Mode: ctor(q), log: h.log}
			return h.mode
		}, nil
	}
	h.orch = orchestrator.New(h.surface, quietLogger(), orchestrator.Options{
		Quality:    modes.QualityBalanced,
		Reactivity: orchestrator.DefaultReactivity,
		Lookup:     lookup,
	})
	require.NoError(t, h.orch.SelectMode(modes.MeshNet))

	opts.OnFrame = func(r Report) { h.reports = append(h.reports, r) }
	h.loop = NewLoop(h.sampler, h.orch, quietLogger(), opts)
	t.Cleanup(h.orch.Close)
	return h
}

var threeColors = palette.Palette{{R: 255}, {G: 255}, {B: 255}}

func TestFrameOrdering(t *testing.T) {
	h := newHarness(t, Options{})
	h.orch.InstallPalette(threeColors)

	require.NoError(t, h.loop.Frame())
	assert.Equal(t, []string{"sample", "update", "draw"}, h.log.events)
	assert.Equal(t, threeColors, h.mode.lastPal)
	assert.InDelta(t, orchestrator.DefaultReactivity, h.mode.lastReac, 1e-9)

	require.Len(t, h.reports, 1)
	r := h.reports[0]
	assert.Equal(t, modes.MeshNet, r.Mode)
	assert.Equal(t, modes.QualityBalanced, r.Quality)
	assert.Equal(t, uint64(1), r.Frames)
	assert.Equal(t, uint64(1), r.PaletteVersion)
	assert.Zero(t, r.Level)
}

func TestFrameReportsLevelAndFeatures(t *testing.T) {
	h := newHarness(t, Options{})
	frame := make(dsp.Frame, dsp.BinCount)
	for i := range frame {
		frame[i] = 255
	}
	h.sampler.frame = frame

	require.NoError(t, h.loop.Frame())
	r := h.loop.Last()
	assert.InDelta(t, 1.0, r.Level, 1e-9)
	assert.Positive(t, r.Bass)
	assert.Positive(t, r.Treble)
}

func TestFramePanicIsRecovered(t *testing.T) {
	h := newHarness(t, Options{})
	h.mode.panics = true

	err := h.loop.Frame()
	assert.ErrorIs(t, err, ErrFramePanic)
	assert.Empty(t, h.reports)

	h.mode.panics = false
	assert.NoError(t, h.loop.Frame())
	assert.Len(t, h.reports, 1)
}

func TestRunAppliesCommandsBeforeTick(t *testing.T) {
	h := newHarness(t, Options{})
	ticks := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx, ticks) }()

	h.loop.Send(SelectMode(modes.Spikes))
	ticks <- time.Now()
	close(ticks)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after ticks closed")
	}

	require.Len(t, h.reports, 1)
	assert.Equal(t, modes.Spikes, h.reports[0].Mode)
	assert.Equal(t, 1, h.surface.meshes)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.loop.Run(ctx, make(chan time.Time))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("quality clamps to range", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.loop.Apply(ctx, StepQuality(1))
		assert.Equal(t, modes.QualityHigh, h.orch.Quality())
		h.loop.Apply(ctx, StepQuality(5))
		assert.Equal(t, modes.QualityUltra, h.orch.Quality())
		assert.Equal(t, modes.QualityUltra, h.mode.Quality())
		h.loop.Apply(ctx, StepQuality(-9))
		assert.Equal(t, modes.QualityLow, h.orch.Quality())
	})

	t.Run("reactivity steps and clamps", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.loop.Apply(ctx, AdjustReactivity(0.1))
		assert.InDelta(t, 2.1, h.orch.Reactivity(), 1e-9)
		for range 40 {
			h.loop.Apply(ctx, AdjustReactivity(0.1))
		}
		assert.InDelta(t, orchestrator.MaxReactivity, h.orch.Reactivity(), 1e-9)
		for range 60 {
			h.loop.Apply(ctx, AdjustReactivity(-0.1))
		}
		assert.InDelta(t, orchestrator.MinReactivity, h.orch.Reactivity(), 1e-9)
	})

	t.Run("cursor wraps and promote moves swatch to front", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.orch.InstallPalette(threeColors)

		h.loop.Apply(ctx, MoveCursor(-1))
		assert.Equal(t, 2, h.loop.Cursor())
		h.loop.Apply(ctx, PromoteCursor())
		assert.Equal(t, 0, h.loop.Cursor())

		got := h.orch.Palette().Colors
		assert.Equal(t, palette.Palette{{B: 255}, {R: 255}, {G: 255}}, got)
	})

	t.Run("promote on empty palette is rejected", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.loop.Apply(ctx, PromoteCursor())
		assert.Equal(t, uint64(0), h.orch.Palette().Version)
	})

	t.Run("unknown mode keeps current", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.loop.Apply(ctx, SelectMode("lava"))
		assert.Equal(t, modes.MeshNet, h.orch.ModeName())
	})

	t.Run("resize reaches surface", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.loop.Apply(ctx, Resize(120, 40))
		assert.Equal(t, 120, h.surface.width)
		assert.Equal(t, 40, h.surface.height)
	})
}

func TestConnectCommandUsesOpener(t *testing.T) {
	analyzer := dsp.NewSpectrumAnalyzer()
	connector := capture.NewConnector(analyzer, quietLogger())
	defer connector.Close()

	stream := capture.NewStream("test mic", 1024, 1, nil)
	h := newHarness(t, Options{
		Connector: connector,
		Openers: map[capture.Kind]capture.Opener{
			capture.KindMicrophone: func(context.Context) (*capture.Stream, error) {
				return stream, nil
			},
		},
	})

	h.loop.Apply(context.Background(), Connect(capture.KindMicrophone))
	connector.Wait()
	assert.True(t, analyzer.Connected())

	require.NoError(t, h.loop.Frame())
	r := h.loop.Last()
	assert.Equal(t, capture.KindMicrophone, r.Audio.Kind)
	assert.Equal(t, capture.StateActive, r.Audio.State)

	// no opener registered for system audio
	h.loop.Apply(context.Background(), Connect(capture.KindSystem))
	assert.Equal(t, capture.KindMicrophone, connector.Status().Kind)
}

func TestSendDropsWhenFull(t *testing.T) {
	h := newHarness(t, Options{})
	for range commandBuffer + 5 {
		h.loop.Send(MoveCursor(1))
	}
	assert.Len(t, h.loop.commands, commandBuffer)
}
