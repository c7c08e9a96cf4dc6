package main

import (
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/ui"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in   string
		want capture.Kind
	}{
		{"mic", capture.KindMicrophone},
		{"Microphone", capture.KindMicrophone},
		{" system ", capture.KindSystem},
		{"none", capture.KindNone},
		{"", capture.KindNone},
	}
	for _, tt := range tests {
		got, err := parseSource(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSource("radio")
	assert.Error(t, err)
}

func TestFindLoopbackDevice(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", MaxInputChannels: 1},
		{Name: "Monitor of Speakers", MaxInputChannels: 0},
		{Name: "Monitor of Built-in Audio", MaxInputChannels: 2},
		{Name: "BlackHole 2ch", MaxInputChannels: 2},
	}
	assert.Equal(t, 2, findLoopbackDevice(devices), "devices without inputs are skipped")
	assert.Equal(t, -1, findLoopbackDevice(devices[:2]))
	assert.True(t, isLoopbackName("Stereo Mix (Realtek)"))
	assert.False(t, isLoopbackName("USB Headset"))
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, modes.QualityLow, sanitizeQuality(-3))
	assert.Equal(t, modes.QualityHigh, sanitizeQuality(2))
	assert.Equal(t, modes.QualityUltra, sanitizeQuality(9))

	assert.Equal(t, 1, sanitizeChannelCount(0, 2))
	assert.Equal(t, 2, sanitizeChannelCount(4, 2))
	assert.Equal(t, 2, sanitizeChannelCount(2, 0))

	assert.Equal(t, 48000.0, effectiveSampleRate(48000, 44100))
	assert.Equal(t, 44100.0, effectiveSampleRate(0, 44100))
	assert.Equal(t, 44100.0, effectiveSampleRate(0, 0))

	assert.Equal(t, 256, effectiveFrameSize(256))
	assert.Equal(t, 512, effectiveFrameSize(0))

	assert.Equal(t, 60, effectiveFPS(0))
	assert.Equal(t, 30, effectiveFPS(30))
	assert.Equal(t, 240, effectiveFPS(1000))

	assert.Equal(t, 3, effectiveInitialDeviceIndex(3, 0, 5))
	assert.Equal(t, 1, effectiveInitialDeviceIndex(-1, 1, 5))
	assert.Equal(t, 0, effectiveInitialDeviceIndex(-1, -1, 5))
}

func TestEffectiveCanvasSize(t *testing.T) {
	w, h := effectiveCanvasSize(0, 0, 100, 40, true)
	ew, eh := ui.CanvasSize(100, 40)
	assert.Equal(t, ew, w)
	assert.Equal(t, eh, h)

	w, h = effectiveCanvasSize(0, 0, 0, 0, false)
	assert.Equal(t, 80, w)
	assert.Equal(t, 24, h)

	w, h = effectiveCanvasSize(50, 0, 100, 40, false)
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)
}

func TestBuildLoopConfig(t *testing.T) {
	cfg, err := buildLoopConfig(runtimeOptions{
		mode:        " InkFluid ",
		quality:     7,
		reactivity:  1.5,
		source:      "system",
		deviceIndex: 2,
		channels:    2,
		colors:      6,
	})
	require.NoError(t, err)
	assert.Equal(t, modes.InkFluid, cfg.Mode)
	assert.Equal(t, modes.QualityUltra, cfg.Quality)
	assert.Equal(t, capture.KindSystem, cfg.Source)
	assert.Equal(t, 2, cfg.Capture.DeviceIndex)
	assert.Equal(t, 60, cfg.FPS)
	assert.True(t, cfg.Visualize)

	_, err = buildLoopConfig(runtimeOptions{source: "tape"})
	assert.Error(t, err)
}

func TestSelectSettingsHeadlessKeepsFlags(t *testing.T) {
	opts := runtimeOptions{mode: "spikes", source: "none", deviceIndex: -1, headless: true}
	got, err := selectSettings(nil, opts)
	require.NoError(t, err)
	assert.Equal(t, opts.mode, got.mode)

	_, err = selectSettings(nil, runtimeOptions{deviceIndex: 3})
	assert.Error(t, err)
}
