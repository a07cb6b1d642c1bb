package easel

import (
	"fmt"
	"strings"

	"github.com/gogpu/easel/internal/blend"
)

// Mode identifies one of the engine's drawing modes. Each mode owns an
// isolated layer and participates in compositing at a fixed position:
// modes are always composited in declaration order, Freehand first.
type Mode uint8

const (
	// Freehand is direct pointer painting, composited with alpha-over.
	Freehand Mode = iota
	// Parametric paints generated geometry, composited with multiply.
	Parametric
	// Scripted paints programmatic strokes, composited with screen.
	Scripted
	// Growth paints simulation output, composited with overlay.
	Growth

	// NumModes is the number of drawing modes.
	NumModes
)

// Valid reports whether m names one of the drawing modes.
func (m Mode) Valid() bool {
	return m < NumModes
}

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case Freehand:
		return "freehand"
	case Parametric:
		return "parametric"
	case Scripted:
		return "scripted"
	case Growth:
		return "growth"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode returns the mode named by s (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "freehand":
		return Freehand, nil
	case "parametric":
		return Parametric, nil
	case "scripted":
		return Scripted, nil
	case "growth":
		return Growth, nil
	}
	return 0, fmt.Errorf("easel: unknown mode %q", s)
}

// BlendMode returns the compositing operator assigned to the mode.
// The assignment is fixed: it is part of each mode's visual identity.
func (m Mode) BlendMode() blend.Mode {
	switch m {
	case Parametric:
		return blend.Multiply
	case Scripted:
		return blend.Screen
	case Growth:
		return blend.Overlay
	}
	return blend.Over
}

// stampColors are the default paint colors used by the built-in stamp
// engines, one per mode, chosen to keep the modes visually distinct.
var stampColors = [NumModes]RGBA{
	Freehand:   Hex("#1a2a4a"),
	Parametric: Hex("#d97b29"),
	Scripted:   Hex("#2c8c4a"),
	Growth:     Hex("#7a3fa8"),
}

// feedbackColors tint the interaction ripples drawn at presentation,
// one per mode.
var feedbackColors = [NumModes]RGBA{
	Freehand:   Hex("#4a7ae8"),
	Parametric: Hex("#f0a050"),
	Scripted:   Hex("#50c878"),
	Growth:     Hex("#b070e0"),
}
