package easel

import "time"

// Ripple animation parameters. A ripple expands and fades over its
// lifetime, re-excited every time the gesture moves.
const (
	rippleLifetime  = 600 * time.Millisecond
	rippleMinRadius = 8.0
	rippleMaxRadius = 36.0
	rippleWidth     = 3.0
	rippleAlpha     = 0.6
)

// renderFeedback draws one ripple per engaged mode onto the view image,
// in mode order, tinted with the mode's feedback color. It runs at
// presentation time and writes only to the view pixmap: layer and
// backdrop pixels are never touched, so feedback cannot contaminate
// mode content or survive into the next composite.
//
// Gesture positions are canvas-space; they map through the view matrix
// so ripples stay glued to the stroke under pan and zoom.
func renderFeedback(dst *Pixmap, interactions *[NumModes]*Interaction, view Matrix, now time.Time) {
	for m := Mode(0); m < NumModes; m++ {
		ia := interactions[m]
		if ia == nil {
			continue
		}
		age := now.Sub(ia.Time)
		if age < 0 {
			age = 0
		}
		if age >= rippleLifetime {
			continue
		}

		t := float64(age) / float64(rippleLifetime)
		radius := rippleMinRadius + (rippleMaxRadius-rippleMinRadius)*t
		color := feedbackColors[m].WithAlpha(rippleAlpha * (1 - t))
		center := view.TransformPoint(ia.Point)
		drawRing(dst, center, radius, rippleWidth, color)
	}
}

// drawRing rasterizes an antialiased circle outline.
func drawRing(dst *Pixmap, center Point, radius, width float64, c RGBA) {
	outer := radius + width/2
	inner := radius - width/2
	if inner < 0 {
		inner = 0
	}

	x0 := int(center.X - outer - 1)
	x1 := int(center.X + outer + 1)
	y0 := int(center.Y - outer - 1)
	y1 := int(center.Y + outer + 1)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := Pt(float64(x)+0.5, float64(y)+0.5).Distance(center)
			cov := min(outer-d+0.5, d-inner+0.5)
			if cov <= 0 {
				continue
			}
			dst.BlendPixel(x, y, c, cov)
		}
	}
}
