package easel

import (
	"time"

	"github.com/google/uuid"
)

// InteractionKind classifies a pointer event within a gesture.
type InteractionKind uint8

const (
	// Started begins a gesture (pointer down).
	Started InteractionKind = iota
	// Continued extends a gesture in progress (pointer move).
	Continued
	// Ended completes a gesture (pointer up).
	Ended
)

// String returns the lower-case kind name.
func (k InteractionKind) String() string {
	switch k {
	case Started:
		return "started"
	case Continued:
		return "continued"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// PointerEvent is one raw pointer sample in view (output) coordinates.
// The engine maps the position into canvas pixels through the inverse
// view transform before dispatching it to the modes.
type PointerEvent struct {
	// Pos is the pointer position in view pixels.
	Pos Point

	// Pressure is the stylus pressure in [0, 1]; values outside the
	// range are clamped. Devices without pressure report 0, which the
	// built-in engines treat as a minimum-width stroke.
	Pressure float64

	// Time stamps the sample. A zero Time means now.
	Time time.Time
}

// Interaction is one mode's live gesture: created on Started, updated on
// Continued, discarded on Ended. The feedback overlay reads it to place
// the mode's ripple.
type Interaction struct {
	// ID uniquely identifies the gesture within this mode.
	ID uuid.UUID

	// Mode is the mode the gesture belongs to.
	Mode Mode

	// Kind is the kind of the most recent event applied.
	Kind InteractionKind

	// Point is the last known position in canvas pixels.
	Point Point

	// Pressure is the last known pressure.
	Pressure float64

	// Time is when the gesture was last updated.
	Time time.Time
}

// interactionRouter fans pointer input out to every active mode and keeps
// each mode's gesture state. Dispatch order is fixed (mode declaration
// order) so multi-mode side effects are deterministic.
type interactionRouter struct {
	active  [NumModes]bool
	engines [NumModes]ModeEngine
	current [NumModes]*Interaction
}

func newInteractionRouter(engines [NumModes]ModeEngine) *interactionRouter {
	return &interactionRouter{engines: engines}
}

// handle dispatches one event to every active mode and returns the modes
// that were touched, in dispatch order.
//
// Events that do not fit a mode's gesture state are dropped for that mode
// without side effects: a Continued or Ended with no gesture in progress
// (pointer pressed before the mode was activated, or a missed pointer-up)
// must not paint or dirty anything.
func (r *interactionRouter) handle(kind InteractionKind, p Point, pressure float64, ts time.Time, ls *LayerSet) []Mode {
	var touched []Mode
	for m := Mode(0); m < NumModes; m++ {
		if !r.active[m] {
			continue
		}
		l := ls.layer(m)

		switch kind {
		case Started:
			if r.current[m] != nil {
				// Missed pointer-up: close the orphaned gesture
				// before starting the new one.
				r.engines[m].Finish(l.pix)
			}
			r.current[m] = &Interaction{
				ID:       uuid.New(),
				Mode:     m,
				Kind:     Started,
				Point:    p,
				Pressure: pressure,
				Time:     ts,
			}
			r.engines[m].Begin(l.pix, p, pressure)

		case Continued:
			cur := r.current[m]
			if cur == nil {
				continue
			}
			cur.Kind = Continued
			cur.Point = p
			cur.Pressure = pressure
			cur.Time = ts
			r.engines[m].Extend(l.pix, p, pressure)

		case Ended:
			if r.current[m] == nil {
				continue
			}
			r.current[m] = nil
			r.engines[m].Finish(l.pix)

		default:
			continue
		}

		// Conservative: the engine may have painted anywhere on the
		// layer, so any dispatched call marks it dirty.
		l.dirty = true
		touched = append(touched, m)
	}
	return touched
}

// setActive toggles a mode's dispatch eligibility. Deactivating a mode
// with a gesture in progress finishes the gesture first so the stroke is
// not left open.
func (r *interactionRouter) setActive(m Mode, on bool, ls *LayerSet) {
	if !m.Valid() || r.active[m] == on {
		return
	}
	if !on && r.current[m] != nil {
		l := ls.layer(m)
		r.current[m] = nil
		r.engines[m].Finish(l.pix)
		l.dirty = true
	}
	r.active[m] = on
}

// activeCount returns how many modes are currently active.
func (r *interactionRouter) activeCount() int {
	n := 0
	for _, on := range r.active {
		if on {
			n++
		}
	}
	return n
}

// engagedCount returns how many modes have a gesture in progress.
func (r *interactionRouter) engagedCount() int {
	n := 0
	for _, cur := range r.current {
		if cur != nil {
			n++
		}
	}
	return n
}
