package controller

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/orchestrator"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/utils"
)

const (
	commandBuffer   = 32
	reactivityStep  = 0.1
	defaultStatsGap = 2 * time.Second
)

var ErrFramePanic = eris.New("frame panicked")

// Sampler yields the newest byte spectrum, or nil when no source is connected.
type Sampler interface {
	Sample() dsp.Frame
}

// Report describes the state after one rendered frame.
type Report struct {
	Mode           modes.Name
	Quality        modes.Quality
	Reactivity     float64
	Bass           float64
	Treble         float64
	Level          float64
	Palette        palette.Palette
	PaletteVersion uint64
	Cursor         int
	Audio          capture.Status
	Frames         uint64
}

// Options configures a Loop.
type Options struct {
	Connector *capture.Connector
	Openers   map[capture.Kind]capture.Opener
	// OnFrame receives a report after every drawn frame.
	OnFrame func(Report)
	// StatsInterval is the period of the audio state log line; 0 uses two seconds.
	StatsInterval time.Duration
	// Meter logs the audio state line at info level instead of debug.
	Meter bool
}

// Loop is the render goroutine. It owns the orchestrator and applies control commands
// between frames.
type Loop struct {
	sampler   Sampler
	orch      *orchestrator.Orchestrator
	connector *capture.Connector
	openers   map[capture.Kind]capture.Opener
	logger    *slog.Logger
	onFrame   func(Report)

	statsInterval time.Duration
	statsLevel    slog.Level

	commands chan Command
	cursor   int
	frames   uint64
	last     Report
}

// NewLoop wires a loop around sampler and orch.
func NewLoop(sampler Sampler, orch *orchestrator.Orchestrator, logger *slog.Logger, opts Options) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = defaultStatsGap
	}
	statsLevel := slog.LevelDebug
	if opts.Meter {
		statsLevel = slog.LevelInfo
	}

	return &Loop{
		sampler:       sampler,
		orch:          orch,
		connector:     opts.Connector,
		openers:       opts.Openers,
		logger:        logger,
		onFrame:       opts.OnFrame,
		statsInterval: opts.StatsInterval,
		statsLevel:    statsLevel,
		commands:      make(chan Command, commandBuffer),
	}
}

// Send queues cmd for the next frame boundary. It drops the command when the queue is
// full rather than blocking the caller.
func (l *Loop) Send(cmd Command) {
	select {
	case l.commands <- cmd:
	default:
		l.logger.Warn("dropping control command", slog.String("kind", cmd.Kind.String()))
	}
}

// Run renders one frame per tick until ctx is done or ticks is closed. Commands queued
// before a tick are applied before that tick's frame.
func (l *Loop) Run(ctx context.Context, ticks <-chan time.Time) error {
	stats := time.NewTicker(l.statsInterval)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.commands:
			l.Apply(ctx, cmd)
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			l.drain(ctx)
			if err := l.Frame(); err != nil {
				l.logger.Warn("frame failed", slog.Any("error", err))
			}
		case <-stats.C:
			l.logger.Log(ctx, l.statsLevel, "audio reactive state",
				slog.String("mode", string(l.last.Mode)),
				slog.Float64("bass", l.last.Bass),
				slog.Float64("treble", l.last.Treble),
				slog.Float64("level", l.last.Level),
				slog.String("audio", l.last.Audio.State.String()),
				slog.Uint64("frames", l.last.Frames))
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-l.commands:
			l.Apply(ctx, cmd)
		default:
			return
		}
	}
}

// Frame samples audio, reads the published palette and reactivity, advances the active
// mode and draws it. A panic inside the frame is recovered and returned as an error.
func (l *Loop) Frame() (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered from frame panic", slog.Any("panic", r))
			err = eris.Wrapf(ErrFramePanic, "%v", r)
		}
	}()

	frame := l.sampler.Sample()
	snap := l.orch.Palette()
	reactivity := l.orch.Reactivity()

	l.orch.Tick(frame, snap.Colors, reactivity)
	if err := l.orch.Draw(); err != nil {
		return eris.Wrap(err, "draw frame")
	}

	l.frames++
	l.cursor = utils.ClampIndex(l.cursor, len(snap.Colors))
	l.last = l.report(frame, snap, reactivity)
	if l.onFrame != nil {
		l.onFrame(l.last)
	}
	return nil
}

func (l *Loop) report(frame dsp.Frame, snap orchestrator.PaletteSnapshot, reactivity float64) Report {
	r := Report{
		Mode:           l.orch.ModeName(),
		Quality:        l.orch.Quality(),
		Reactivity:     reactivity,
		Level:          dsp.AverageMagnitude(frame) / 255,
		Palette:        snap.Colors,
		PaletteVersion: snap.Version,
		Cursor:         l.cursor,
		Frames:         l.frames,
	}
	if active := l.orch.Active(); active != nil {
		f := active.Features()
		r.Bass, r.Treble = f.Bass, f.Treble
	}
	if l.connector != nil {
		r.Audio = l.connector.Status()
	}
	return r
}

// Apply executes one control command immediately. Callers other than Run must own the
// render goroutine.
func (l *Loop) Apply(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CommandSelectMode:
		// unknown names are logged by the orchestrator
		_ = l.orch.SelectMode(cmd.Mode)
	case CommandQuality:
		q := utils.Clamp(l.orch.Quality()+modes.Quality(cmd.Step), modes.QualityLow, modes.QualityUltra)
		if err := l.orch.SetQuality(q); err != nil {
			l.logger.Warn("quality change rejected", slog.Any("error", err))
		}
	case CommandReactivity:
		next := math.Round((l.orch.Reactivity()+cmd.Delta)/reactivityStep) * reactivityStep
		l.orch.SetReactivity(next)
	case CommandCursor:
		l.cursor = utils.WrapIndex(l.cursor+cmd.Step, len(l.orch.Palette().Colors))
	case CommandPromote:
		if err := l.orch.PromoteSwatch(l.cursor); err != nil {
			l.logger.Warn("swatch promotion rejected", slog.Int("index", l.cursor), slog.Any("error", err))
			return
		}
		l.cursor = 0
	case CommandResize:
		l.orch.Resize(cmd.Width, cmd.Height)
	case CommandConnect:
		l.connect(ctx, cmd.Source)
	default:
		l.logger.Warn("unknown control command", slog.Int("kind", int(cmd.Kind)))
	}
}

func (l *Loop) connect(ctx context.Context, kind capture.Kind) {
	open, ok := l.openers[kind]
	if l.connector == nil || !ok {
		l.logger.Warn("audio source unavailable", slog.String("source", kind.String()))
		return
	}
	l.connector.Request(ctx, kind, open)
}

// Cursor returns the selected swatch index.
func (l *Loop) Cursor() int {
	return l.cursor
}

// Last returns the most recent frame report.
func (l *Loop) Last() Report {
	return l.last
}
