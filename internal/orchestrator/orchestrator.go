package orchestrator

import (
	"log/slog"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
	"github.com/cybre/chroma-pulse/internal/utils"
)

const (
	MinReactivity     = 0.0
	MaxReactivity     = 5.0
	DefaultReactivity = 2.0
)

var ErrInvalidQuality = eris.New("invalid quality tier")

// Surface is the render target. It holds at most the meshes attached to it and draws
// them on demand.
type Surface interface {
	Attach(mesh *scene.Mesh)
	Detach(mesh *scene.Mesh)
	Draw() error
	Resize(width, height int)
}

// PaletteSnapshot is an immutable published palette. Version increases with every
// install or promotion.
type PaletteSnapshot struct {
	Colors  palette.Palette
	Version uint64
}

// Options tunes the initial state of an Orchestrator.
type Options struct {
	Quality    modes.Quality
	Reactivity float64
	// Lookup resolves mode names; defaults to modes.Lookup.
	Lookup func(modes.Name) (modes.Constructor, error)
}

// Orchestrator owns the active mode, the quality tier and the published palette. Mode,
// quality, reactivity and Tick must be driven from the render goroutine; the palette
// methods are safe from any goroutine.
type Orchestrator struct {
	surface Surface
	logger  *slog.Logger
	lookup  func(modes.Name) (modes.Constructor, error)

	name       modes.Name
	quality    modes.Quality
	active     modes.Mode
	reactivity float64

	palette atomic.Pointer[PaletteSnapshot]
}

// New returns an orchestrator with no active mode.
func New(surface Surface, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Lookup == nil {
		opts.Lookup = modes.Lookup
	}
	if !opts.Quality.Valid() {
		opts.Quality = modes.QualityBalanced
	}

	o := &Orchestrator{
		surface:    surface,
		logger:     logger,
		lookup:     opts.Lookup,
		quality:    opts.Quality,
		reactivity: utils.Clamp(opts.Reactivity, MinReactivity, MaxReactivity),
	}
	o.palette.Store(&PaletteSnapshot{})
	return o
}

// SelectMode replaces the active mode with a fresh instance of name at the current
// tier. Selecting the active name again still rebuilds it. Unknown names leave the
// current mode running and return modes.ErrUnknownMode.
func (o *Orchestrator) SelectMode(name modes.Name) error {
	ctor, err := o.lookup(name)
	if err != nil {
		o.logger.Warn("ignoring unknown visual mode", slog.String("mode", string(name)))
		return err
	}

	o.release()

	next := ctor(o.quality)
	o.surface.Attach(next.Mesh())
	o.active = next
	o.name = name

	o.logger.Info("visual mode active",
		slog.String("mode", string(name)),
		slog.String("quality", o.quality.String()),
		slog.Int("triangles", next.Mesh().Geometry.TriangleCount()))
	return nil
}

// SetQuality records a new tier and rebuilds the active mode for it.
func (o *Orchestrator) SetQuality(q modes.Quality) error {
	if !q.Valid() {
		return eris.Wrapf(ErrInvalidQuality, "quality %d", int(q))
	}
	if q == o.quality {
		return nil
	}
	o.quality = q
	if o.active == nil {
		return nil
	}
	return o.SelectMode(o.name)
}

// Tick advances the active mode by one frame.
func (o *Orchestrator) Tick(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	if o.active == nil {
		return
	}
	o.active.Update(frame, pal, reactivity)
}

// Draw renders the surface.
func (o *Orchestrator) Draw() error {
	return o.surface.Draw()
}

// Resize forwards new surface dimensions.
func (o *Orchestrator) Resize(width, height int) {
	o.surface.Resize(width, height)
}

// Active returns the running mode, or nil.
func (o *Orchestrator) Active() modes.Mode {
	return o.active
}

// ModeName returns the name of the running mode, or "" when none is active.
func (o *Orchestrator) ModeName() modes.Name {
	if o.active == nil {
		return ""
	}
	return o.name
}

// Quality returns the current tier.
func (o *Orchestrator) Quality() modes.Quality {
	return o.quality
}

// Reactivity returns the current audio multiplier.
func (o *Orchestrator) Reactivity() float64 {
	return o.reactivity
}

// SetReactivity stores v clamped to the supported range and returns the stored value.
func (o *Orchestrator) SetReactivity(v float64) float64 {
	o.reactivity = utils.Clamp(v, MinReactivity, MaxReactivity)
	return o.reactivity
}

// Palette returns the currently published palette.
func (o *Orchestrator) Palette() PaletteSnapshot {
	return *o.palette.Load()
}

// InstallPalette publishes a copy of p and returns its version.
func (o *Orchestrator) InstallPalette(p palette.Palette) uint64 {
	for {
		cur := o.palette.Load()
		next := &PaletteSnapshot{Colors: p.Clone(), Version: cur.Version + 1}
		if o.palette.CompareAndSwap(cur, next) {
			return next.Version
		}
	}
}

// PromoteSwatch moves the swatch at idx to the front of the published palette.
func (o *Orchestrator) PromoteSwatch(idx int) error {
	for {
		cur := o.palette.Load()
		colors, err := cur.Colors.Promote(idx)
		if err != nil {
			return err
		}
		next := &PaletteSnapshot{Colors: colors, Version: cur.Version + 1}
		if o.palette.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// Close detaches and disposes the active mode.
func (o *Orchestrator) Close() {
	o.release()
}

func (o *Orchestrator) release() {
	if o.active == nil {
		return
	}
	mesh := o.active.Mesh()
	o.surface.Detach(mesh)
	o.active.Dispose()
	o.active = nil
}
