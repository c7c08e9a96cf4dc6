package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/ui"
)

const (
	sourceMic    = "mic"
	sourceSystem = "system"
	sourceNone   = "none"
)

var sourceNames = []string{sourceMic, sourceSystem, sourceNone}

// loopbackHints are substrings of capture device names that carry system output.
var loopbackHints = []string{"monitor", "loopback", "stereo mix", "what u hear", "blackhole", "soundflower"}

type loopConfig struct {
	Mode       modes.Name
	Quality    modes.Quality
	Reactivity float64
	Source     capture.Kind
	FPS        int
	Capture    captureConfig
	ImagePath  string
	Colors     int
	Width      int
	Height     int
	Visualize  bool
}

type captureConfig struct {
	DeviceIndex int
	SampleRate  float64
	FrameSize   int
	Channels    int
	Latency     time.Duration
}

// selectSettings fills the mode, source and system device from flags, asking
// interactively for whatever was not given.
func selectSettings(devices []*portaudio.DeviceInfo, opts runtimeOptions) (runtimeOptions, error) {
	if opts.deviceIndex >= len(devices) {
		return opts, eris.Errorf("invalid device index %d", opts.deviceIndex)
	}
	if opts.headless {
		return opts, nil
	}

	names := modes.Names()
	var pickers []ui.Picker
	var modeStep, sourceStep, deviceStep = -1, -1, -1

	if !opts.set["mode"] {
		modeStep = len(pickers)
		pickers = append(pickers, ui.Picker{
			Title:   "Select a visual mode",
			Label:   "Mode",
			Options: buildModeOptions(names),
			Initial: max(slices.Index(names, modes.Name(opts.mode)), 0),
		})
	}
	if !opts.set["source"] {
		sourceStep = len(pickers)
		pickers = append(pickers, ui.Picker{
			Title:   "Select an audio source",
			Label:   "Source",
			Options: buildSourceOptions(),
			Initial: max(slices.Index(sourceNames, opts.source), 0),
		})
	}
	if opts.deviceIndex < 0 && len(devices) > 0 {
		step := sourceStep
		wantSystem := opts.source == sourceSystem
		deviceStep = len(pickers)
		pickers = append(pickers, ui.Picker{
			Title:   "Select a system audio capture device",
			Label:   "Device",
			Options: buildDeviceOptions(devices),
			Initial: effectiveInitialDeviceIndex(findLoopbackDevice(devices), 0, len(devices)),
			When: func(choices []int) bool {
				if step >= 0 {
					return sourceNames[choices[step]] == sourceSystem
				}
				return wantSystem
			},
		})
	}

	choices, err := ui.RunSetup(pickers)
	if err != nil && !eris.Is(err, ui.ErrNoInteractiveTTY) {
		return opts, err
	}
	if eris.Is(err, ui.ErrNoInteractiveTTY) {
		// keep flag values and let system audio detection pick the device
		return opts, nil
	}

	if modeStep >= 0 {
		opts.mode = string(names[choices[modeStep]])
	}
	if sourceStep >= 0 {
		opts.source = sourceNames[choices[sourceStep]]
	}
	if deviceStep >= 0 && opts.source == sourceSystem {
		opts.deviceIndex = choices[deviceStep]
	}
	return opts, nil
}

func buildModeOptions(names []modes.Name) []ui.Option {
	options := make([]ui.Option, len(names))
	for i, name := range names {
		options[i] = ui.Option{Label: fmt.Sprintf("[%d] %s", i+1, name)}
	}
	return options
}

func buildSourceOptions() []ui.Option {
	return []ui.Option{
		{Label: "Microphone · default input device"},
		{Label: "System audio · loopback or monitor device"},
		{Label: "None · animate without audio"},
	}
}

func buildDeviceOptions(devices []*portaudio.DeviceInfo) []ui.Option {
	options := make([]ui.Option, len(devices))
	for i, dev := range devices {
		options[i] = ui.Option{
			Label: fmt.Sprintf(
				"[%d] %s · %.0fHz · in:%d · latency:%.1fms",
				i,
				dev.Name,
				dev.DefaultSampleRate,
				dev.MaxInputChannels,
				dev.DefaultLowInputLatency.Seconds()*1000,
			),
		}
	}
	return options
}

// findLoopbackDevice returns the index of the first input device whose name suggests
// it captures system output, or -1.
func findLoopbackDevice(devices []*portaudio.DeviceInfo) int {
	for i, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if isLoopbackName(dev.Name) {
			return i
		}
	}
	return -1
}

func isLoopbackName(name string) bool {
	name = strings.ToLower(name)
	for _, hint := range loopbackHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func effectiveInitialDeviceIndex(requested, fallback, length int) int {
	if length == 0 {
		return 0
	}
	if requested >= 0 && requested < length {
		return requested
	}
	if fallback >= 0 && fallback < length {
		return fallback
	}
	return 0
}

func buildLoopConfig(opts runtimeOptions) (loopConfig, error) {
	source, err := parseSource(opts.source)
	if err != nil {
		return loopConfig{}, err
	}

	return loopConfig{
		Mode:       modes.Name(strings.ToLower(strings.TrimSpace(opts.mode))),
		Quality:    sanitizeQuality(opts.quality),
		Reactivity: opts.reactivity,
		Source:     source,
		FPS:        effectiveFPS(opts.fps),
		Capture: captureConfig{
			DeviceIndex: opts.deviceIndex,
			SampleRate:  opts.sampleRate,
			FrameSize:   opts.frameSize,
			Channels:    opts.channels,
			Latency:     opts.latency,
		},
		ImagePath: opts.imagePath,
		Colors:    opts.colors,
		Width:     opts.width,
		Height:    opts.height,
		Visualize: !opts.headless,
	}, nil
}

func parseSource(name string) (capture.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case sourceMic, "microphone":
		return capture.KindMicrophone, nil
	case sourceSystem:
		return capture.KindSystem, nil
	case sourceNone, "":
		return capture.KindNone, nil
	default:
		return capture.KindNone, eris.Errorf("unknown audio source %q (want mic, system or none)", name)
	}
}

func sanitizeQuality(q int) modes.Quality {
	switch {
	case q < int(modes.QualityLow):
		return modes.QualityLow
	case q > int(modes.QualityUltra):
		return modes.QualityUltra
	default:
		return modes.Quality(q)
	}
}

func sanitizeChannelCount(requested, max int) int {
	if requested <= 0 {
		return 1
	}

	if max > 0 && requested > max {
		return max
	}

	return requested
}

func effectiveSampleRate(requested, deviceDefault float64) float64 {
	if requested > 0 {
		return requested
	}

	if deviceDefault > 0 {
		return deviceDefault
	}

	return 44100
}

func effectiveFrameSize(requested int) int {
	if requested > 0 {
		return requested
	}

	return 512
}

func effectiveFPS(requested int) int {
	if requested > 0 {
		return min(requested, 240)
	}
	return 60
}

// effectiveCanvasSize prefers explicit flags, then the terminal size, then 80×24.
func effectiveCanvasSize(width, height, termWidth, termHeight int, visualize bool) (int, int) {
	if termWidth <= 0 || termHeight <= 0 {
		termWidth, termHeight = 80, 24
	}
	w, h := termWidth, termHeight
	if visualize {
		w, h = ui.CanvasSize(termWidth, termHeight)
	}
	if width > 0 {
		w = width
	}
	if height > 0 {
		h = height
	}
	return w, h
}
