package orchestrator

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
)

type fakeSurface struct {
	attached map[*scene.Mesh]bool
	attaches int
	detaches int
	draws    int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{attached: make(map[*scene.Mesh]bool)}
}

func (s *fakeSurface) Attach(m *scene.Mesh) {
	s.attaches++
	s.attached[m] = true
}

func (s *fakeSurface) Detach(m *scene.Mesh) {
	s.detaches++
	delete(s.attached, m)
}

func (s *fakeSurface) Draw() error {
	s.draws++
	return nil
}

func (s *fakeSurface) Resize(int, int) {}

// countingMode wraps a real mode and records how often Dispose reaches it.
type countingMode struct {
	modes.Mode
	disposals int
	updates   int
}

func (c *countingMode) Dispose() {
	c.disposals++
	c.Mode.Dispose()
}

func (c *countingMode) Update(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	c.updates++
	c.Mode.Update(frame, pal, reactivity)
}

type harness struct {
	surface *fakeSurface
	orch    *Orchestrator
	built   []*countingMode
	tiers   []modes.Quality
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{surface: newFakeSurface()}
	lookup := func(name modes.Name) (modes.Constructor, error) {
		ctor, err := modes.Lookup(name)
		if err != nil {
			return nil, err
		}
		return func(q modes.Quality) modes.Mode {
			m := &countingMode{Mode: ctor(q)}
			h.built = append(h.built, m)
			h.tiers = append(h.tiers, q)
			return m
		}, nil
	}
	h.orch = New(h.surface, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		Quality:    modes.QualityLow,
		Reactivity: DefaultReactivity,
		Lookup:     lookup,
	})
	return h
}

func TestSelectModeAttachesSingleInstance(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.orch.SelectMode(modes.MeshNet))
	require.NoError(t, h.orch.SelectMode(modes.InkFluid))
	require.NoError(t, h.orch.SelectMode(modes.Spikes))

	require.Len(t, h.built, 3)
	assert.Len(t, h.surface.attached, 1)
	assert.True(t, h.surface.attached[h.orch.Active().Mesh()])
	assert.Equal(t, modes.Spikes, h.orch.ModeName())

	for _, m := range h.built[:2] {
		assert.Equal(t, 1, m.disposals)
		assert.True(t, m.Mesh().Disposed())
	}
	assert.Equal(t, 0, h.built[2].disposals)
}

func TestSelectSameModeRebuilds(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.orch.SelectMode(modes.MeshNet))
	first := h.orch.Active()
	require.NoError(t, h.orch.SelectMode(modes.MeshNet))

	assert.NotSame(t, first, h.orch.Active())
	assert.Equal(t, 1, h.built[0].disposals)
	assert.Len(t, h.surface.attached, 1)
}

func TestSelectUnknownModeKeepsCurrent(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.SelectMode(modes.RippleWater))
	active := h.orch.Active()

	err := h.orch.SelectMode("strobe")
	assert.True(t, eris.Is(err, modes.ErrUnknownMode))
	assert.Same(t, active, h.orch.Active())
	assert.Equal(t, 0, h.built[0].disposals)
	assert.True(t, h.surface.attached[active.Mesh()])
}

func TestSetQualityRebuildsAtNewTier(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.SelectMode(modes.MeshNet))

	for range 20 {
		h.orch.Tick(bassFrame(), nil, 1)
	}
	require.Positive(t, h.orch.Active().Features().Bass)

	require.NoError(t, h.orch.SetQuality(modes.QualityHigh))
	require.Len(t, h.built, 2)
	assert.Equal(t, []modes.Quality{modes.QualityLow, modes.QualityHigh}, h.tiers)
	assert.Equal(t, 1, h.built[0].disposals)
	assert.Equal(t, modes.Features{}, h.orch.Active().Features(), "new instance starts at rest")
	assert.Equal(t, modes.QualityHigh, h.orch.Active().Quality())
	assert.Greater(t,
		h.orch.Active().Mesh().Geometry.TriangleCount(),
		modes.NewMeshNet(modes.QualityLow).Mesh().Geometry.TriangleCount())
}

func TestSetQualityUnchangedIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.SelectMode(modes.MeshNet))

	require.NoError(t, h.orch.SetQuality(modes.QualityLow))
	assert.Len(t, h.built, 1)
}

func TestSetQualityWithoutModeOnlyRecords(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.SetQuality(modes.QualityUltra))
	assert.Empty(t, h.built)
	assert.Equal(t, modes.QualityUltra, h.orch.Quality())

	err := h.orch.SetQuality(modes.Quality(9))
	assert.True(t, eris.Is(err, ErrInvalidQuality))
	assert.Equal(t, modes.QualityUltra, h.orch.Quality())
}

func TestTickWithoutModeIsNoop(t *testing.T) {
	h := newHarness(t)
	assert.NotPanics(t, func() { h.orch.Tick(bassFrame(), nil, 1) })
}

func TestTickForwardsToActiveMode(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.SelectMode(modes.RippleWater))

	h.orch.Tick(bassFrame(), nil, 1)
	assert.Equal(t, 1, h.built[0].updates)
	assert.InDelta(t, 0.8*0.1, h.orch.Active().Features().Bass, 1e-12)
	assert.Equal(t, 0.0, h.orch.Active().Features().Treble)
}

func TestCloseDisposesActive(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.SelectMode(modes.Spikes))
	h.orch.Close()
	h.orch.Close()

	assert.Nil(t, h.orch.Active())
	assert.Empty(t, h.surface.attached)
	assert.Equal(t, 1, h.built[0].disposals)
}

func TestReactivityClamped(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, DefaultReactivity, h.orch.Reactivity())
	assert.Equal(t, MaxReactivity, h.orch.SetReactivity(12))
	assert.Equal(t, MinReactivity, h.orch.SetReactivity(-1))
}

func TestPaletteInstallAndPromote(t *testing.T) {
	h := newHarness(t)
	assert.Empty(t, h.orch.Palette().Colors)

	a, b, c := palette.Color{R: 1}, palette.Color{R: 2}, palette.Color{R: 3}
	src := palette.Palette{a, b, c}
	v1 := h.orch.InstallPalette(src)
	src[0] = palette.Color{G: 99}

	snap := h.orch.Palette()
	assert.Equal(t, palette.Palette{a, b, c}, snap.Colors, "install copies the caller's slice")
	assert.Equal(t, v1, snap.Version)

	require.NoError(t, h.orch.PromoteSwatch(2))
	snap2 := h.orch.Palette()
	assert.Equal(t, palette.Palette{c, a, b}, snap2.Colors)
	assert.Greater(t, snap2.Version, v1)
	assert.Equal(t, palette.Palette{a, b, c}, snap.Colors, "old snapshots stay intact")

	err := h.orch.PromoteSwatch(7)
	assert.True(t, eris.Is(err, palette.ErrSwatchOutOfRange))
	assert.Equal(t, snap2.Version, h.orch.Palette().Version)
}

func TestConcurrentInstallsAreAtomic(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := palette.Color{R: uint8(i)}
			h.orch.InstallPalette(palette.Palette{c, c, c})
		}(i)
	}
	wg.Wait()

	snap := h.orch.Palette()
	assert.Equal(t, uint64(8), snap.Version)
	require.Len(t, snap.Colors, 3)
	assert.Equal(t, snap.Colors[0], snap.Colors[2], "no torn palette")
}

func bassFrame() dsp.Frame {
	f := make(dsp.Frame, dsp.BinCount)
	f[dsp.BassBin] = 255
	return f
}
