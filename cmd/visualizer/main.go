package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/controller"
	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/orchestrator"
	"github.com/cybre/chroma-pulse/internal/render"
	"github.com/cybre/chroma-pulse/internal/ui"
)

func main() {
	cfg := parseCLIFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runVisualizer(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runVisualizer(ctx context.Context, cfg runtimeOptions) error {
	logger := setupLogger(cfg.debug, !cfg.headless)

	audio := newAudioContext(logger, captureConfig{})
	if err := audio.Init(); err != nil {
		logger.Warn("audio capture unavailable; animating without audio", slog.Any("error", err))
	}
	defer audio.Close()

	cfg, err := selectSettings(audio.Devices(), cfg)
	if err != nil {
		return eris.Wrap(err, "select mode/device")
	}

	loopCfg, err := buildLoopConfig(cfg)
	if err != nil {
		return err
	}
	audio.configure(loopCfg.Capture)

	if err := run(ctx, logger, audio, loopCfg); err != nil && !eris.Is(err, context.Canceled) {
		logger.Error("visualizer loop failed", slog.Any("error", err))
		return err
	}

	return nil
}

func setupLogger(debug, visualize bool) *slog.Logger {
	logOutput := os.Stdout
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	if visualize && !debug {
		logLevel = slog.LevelWarn
	}
	if visualize {
		logOutput = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return logger
}

func run(ctx context.Context, logger *slog.Logger, audio *audioContext, cfg loopConfig) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	termWidth, termHeight := terminalSize()
	width, height := effectiveCanvasSize(cfg.Width, cfg.Height, termWidth, termHeight, cfg.Visualize)

	var viz *ui.Visualizer
	surface := render.NewSurface(width, height, func(c *render.Canvas) {
		if viz != nil {
			viz.Present(c)
		}
	})

	orch := orchestrator.New(surface, logger, orchestrator.Options{
		Quality:    cfg.Quality,
		Reactivity: cfg.Reactivity,
	})
	defer orch.Close()

	if err := orch.SelectMode(cfg.Mode); err != nil {
		logger.Warn("falling back to default mode", slog.String("requested", string(cfg.Mode)))
		if err := orch.SelectMode(modes.MeshNet); err != nil {
			return err
		}
	}

	analyzer := dsp.NewSpectrumAnalyzer()
	defer analyzer.Disconnect()
	connector := capture.NewConnector(analyzer, logger)
	defer connector.Close()

	loop := controller.NewLoop(analyzer, orch, logger, controller.Options{
		Connector: connector,
		Openers: map[capture.Kind]capture.Opener{
			capture.KindMicrophone: audio.RequestMicrophone,
			capture.KindSystem:     audio.RequestSystemAudio,
		},
		OnFrame: func(r controller.Report) {
			if viz != nil {
				viz.Update(r)
			}
		},
		Meter: !cfg.Visualize,
	})

	if cfg.Visualize {
		viz = ui.NewVisualizer(cancel, loop.Send)
		defer viz.Close()
	}

	connector.OnStatus(func(s capture.Status) {
		level := slog.LevelInfo
		if s.State == capture.StateFailed {
			level = slog.LevelWarn
		}
		logger.Log(loopCtx, level, "audio source status",
			slog.String("source", s.Kind.String()),
			slog.String("state", s.State.String()),
			slog.String("device", s.Label),
			slog.Any("error", s.Err))
	})
	if cfg.Source != capture.KindNone {
		loop.Send(controller.Connect(cfg.Source))
	}

	g, gctx := errgroup.WithContext(loopCtx)

	if cfg.ImagePath != "" {
		g.Go(func() error {
			pal, format, err := loadPalette(cfg.ImagePath, cfg.Colors)
			if err != nil {
				logger.Warn("palette extraction failed; keeping default colours", slog.Any("error", err))
				return nil
			}
			version := orch.InstallPalette(pal)
			logger.Info("palette installed",
				slog.String("format", format),
				slog.Int("colors", len(pal)),
				slog.Any("hex", pal.Hex()),
				slog.Uint64("version", version))
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
		defer ticker.Stop()
		defer audio.Suspend()
		return loop.Run(gctx, ticker.C)
	})

	if err := g.Wait(); err != nil {
		if eris.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return nil
}

func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return w, h
}
