package controller

import (
	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/modes"
)

// CommandKind identifies a control action applied between frames.
type CommandKind int

const (
	CommandSelectMode CommandKind = iota
	CommandQuality
	CommandReactivity
	CommandCursor
	CommandPromote
	CommandResize
	CommandConnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandSelectMode:
		return "select-mode"
	case CommandQuality:
		return "quality"
	case CommandReactivity:
		return "reactivity"
	case CommandCursor:
		return "cursor"
	case CommandPromote:
		return "promote"
	case CommandResize:
		return "resize"
	case CommandConnect:
		return "connect"
	default:
		return "unknown"
	}
}

// Command is one control input. Only the fields used by Kind are read.
type Command struct {
	Kind   CommandKind
	Mode   modes.Name
	Step   int
	Delta  float64
	Width  int
	Height int
	Source capture.Kind
}

func SelectMode(name modes.Name) Command {
	return Command{Kind: CommandSelectMode, Mode: name}
}

// StepQuality moves the tier by step, clamped to the supported range.
func StepQuality(step int) Command {
	return Command{Kind: CommandQuality, Step: step}
}

func AdjustReactivity(delta float64) Command {
	return Command{Kind: CommandReactivity, Delta: delta}
}

// MoveCursor moves the swatch cursor by step, wrapping around the palette.
func MoveCursor(step int) Command {
	return Command{Kind: CommandCursor, Step: step}
}

// PromoteCursor moves the swatch under the cursor to the front of the palette.
func PromoteCursor() Command {
	return Command{Kind: CommandPromote}
}

func Resize(width, height int) Command {
	return Command{Kind: CommandResize, Width: width, Height: height}
}

func Connect(kind capture.Kind) Command {
	return Command{Kind: CommandConnect, Source: kind}
}
