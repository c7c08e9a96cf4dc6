package main

import (
	"flag"
	"time"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/orchestrator"
	"github.com/cybre/chroma-pulse/internal/palette"
)

type runtimeOptions struct {
	imagePath   string
	colors      int
	mode        string
	quality     int
	reactivity  float64
	fps         int
	source      string
	deviceIndex int
	sampleRate  float64
	frameSize   int
	channels    int
	latency     time.Duration
	width       int
	height      int
	debug       bool
	headless    bool

	// set records which flags were given explicitly
	set map[string]bool
}

func parseCLIFlags() runtimeOptions {
	var (
		cfg       runtimeOptions
		latencyMs int
	)

	flag.StringVar(&cfg.imagePath, "image", "", "image to extract the colour palette from (png, jpeg, gif, webp, bmp)")
	flag.IntVar(&cfg.colors, "colors", palette.DefaultColorCount, "number of palette colours to extract")
	flag.StringVar(&cfg.mode, "mode", string(modes.MeshNet), "initial visual mode (spikes, meshnet, inkfluid, ripplewater)")
	flag.IntVar(&cfg.quality, "quality", int(modes.QualityBalanced), "geometry quality tier (0 low … 3 ultra)")
	flag.Float64Var(&cfg.reactivity, "reactivity", orchestrator.DefaultReactivity, "audio reactivity multiplier (0-5)")
	flag.IntVar(&cfg.fps, "fps", 60, "target frames per second")
	flag.StringVar(&cfg.source, "source", sourceMic, "initial audio source (mic, system, none)")
	flag.IntVar(&cfg.deviceIndex, "device", -1, "capture device index for system audio (leave blank to detect or choose interactively)")
	flag.Float64Var(&cfg.sampleRate, "sample-rate", 0, "capture sample rate (0 = device default)")
	flag.IntVar(&cfg.frameSize, "frame-size", dsp.FFTSize, "capture buffer size in frames")
	flag.IntVar(&cfg.channels, "channels", 1, "number of input channels to capture (<= device max)")
	flag.IntVar(&latencyMs, "latency-ms", 0, "override input latency in milliseconds (0 = device default)")
	flag.IntVar(&cfg.width, "width", 0, "canvas width in cells (0 = terminal width)")
	flag.IntVar(&cfg.height, "height", 0, "canvas height in cells (0 = terminal height)")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&cfg.headless, "headless", false, "render without the terminal view and log the audio meter")
	flag.Parse()

	cfg.latency = time.Duration(latencyMs) * time.Millisecond
	cfg.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	return cfg
}
