package easel

// ModeEngine is the per-mode collaborator that paints in response to
// pointer gestures. Each active mode owns one engine instance; the router
// invokes it with the mode's own layer pixmap, so an engine can never
// touch another mode's pixels.
//
// The target pixmap is borrowed for the duration of the call and must not
// be retained. Calls arrive strictly ordered (Begin, zero or more Extends,
// Finish) and are serialized by the engine; implementations need no
// locking but must not share gesture state across modes.
type ModeEngine interface {
	// Begin starts a gesture at p with the given pressure in [0, 1].
	Begin(target *Pixmap, p Point, pressure float64)

	// Extend continues the current gesture to p.
	Extend(target *Pixmap, p Point, pressure float64)

	// Finish ends the current gesture.
	Finish(target *Pixmap)
}

// defaultStampRadius is the base stamp radius in canvas pixels at full
// pressure.
const defaultStampRadius = 6.0

// StampEngine is the built-in ModeEngine. It stamps pressure-scaled round
// marks along the pointer path, interpolating between events so fast
// strokes stay solid. Every mode gets one by default (with a per-mode
// preset color) so the engine paints out of the box.
type StampEngine struct {
	color  RGBA
	radius float64
	last   Point
	down   bool
}

// NewStampEngine creates a stamp engine painting in the given color.
// A radius <= 0 falls back to the default.
func NewStampEngine(c RGBA, radius float64) *StampEngine {
	if radius <= 0 {
		radius = defaultStampRadius
	}
	return &StampEngine{color: c, radius: radius}
}

// defaultStampEngine returns the built-in engine for a mode.
func defaultStampEngine(m Mode) *StampEngine {
	return NewStampEngine(stampColors[m], defaultStampRadius)
}

// Begin implements ModeEngine.
func (e *StampEngine) Begin(target *Pixmap, p Point, pressure float64) {
	e.down = true
	e.last = p
	e.stamp(target, p, pressure)
}

// Extend implements ModeEngine.
func (e *StampEngine) Extend(target *Pixmap, p Point, pressure float64) {
	if !e.down {
		e.Begin(target, p, pressure)
		return
	}

	// Stamp at fixed spacing along the segment so stroke density does
	// not depend on event rate.
	dist := e.last.Distance(p)
	spacing := e.radius * 0.35
	if spacing < 1 {
		spacing = 1
	}
	steps := int(dist/spacing) + 1
	for i := 1; i <= steps; i++ {
		q := e.last.Lerp(p, float64(i)/float64(steps))
		e.stamp(target, q, pressure)
	}
	e.last = p
}

// Finish implements ModeEngine.
func (e *StampEngine) Finish(*Pixmap) {
	e.down = false
}

// stamp draws one antialiased disc. Pressure scales the radius but never
// to zero, so zero-pressure devices (mice) still paint a thin line.
func (e *StampEngine) stamp(target *Pixmap, p Point, pressure float64) {
	r := e.radius * (0.25 + 0.75*clamp01(pressure))

	x0 := int(p.X - r - 1)
	x1 := int(p.X + r + 1)
	y0 := int(p.Y - r - 1)
	y1 := int(p.Y + r + 1)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := Pt(float64(x)+0.5, float64(y)+0.5).Distance(p)
			cov := r - d + 0.5
			if cov <= 0 {
				continue
			}
			target.BlendPixel(x, y, e.color, cov)
		}
	}
}
