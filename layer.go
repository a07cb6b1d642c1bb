package easel

import (
	"errors"
	"fmt"

	"github.com/gogpu/easel/device"
)

// ErrIncompleteTarget is returned when a backend hands out a render target
// that does not match the requested dimensions. Construction treats this
// as fatal: rendering cannot proceed on a partial target.
var ErrIncompleteTarget = errors.New("easel: render target incomplete")

// Layer is one mode's isolated drawing surface. Pixels are authored into
// the CPU pixmap by the mode's engine and mirrored into the device target
// when dirty. No other mode ever reads or writes them.
type Layer struct {
	mode    Mode
	pix     *Pixmap
	target  device.Target
	opacity float64
	visible bool
	dirty   bool
}

// Mode returns the mode this layer belongs to.
func (l *Layer) Mode() Mode { return l.mode }

// Opacity returns the layer's compositing opacity in [0, 1].
func (l *Layer) Opacity() float64 { return l.opacity }

// Visible reports whether the compositor includes this layer.
func (l *Layer) Visible() bool { return l.visible }

// newLayer allocates the layer's pixmap and device target as a unit.
func newLayer(dev device.Device, m Mode, width, height int) (*Layer, error) {
	t, err := dev.NewTarget(width, height)
	if err != nil {
		return nil, fmt.Errorf("easel: creating %s layer target: %w", m, err)
	}
	if err := verifyTarget(t, width, height); err != nil {
		t.Destroy()
		return nil, fmt.Errorf("easel: %s layer: %w", m, err)
	}
	return &Layer{
		mode:    m,
		pix:     NewPixmap(width, height),
		target:  t,
		opacity: 1,
		visible: true,
	}, nil
}

// flush mirrors dirty pixels into the device target.
func (l *Layer) flush() error {
	if !l.dirty {
		return nil
	}
	if err := l.target.Upload(l.pix.Data()); err != nil {
		return fmt.Errorf("easel: uploading %s layer: %w", l.mode, err)
	}
	l.dirty = false
	return nil
}

// destroy releases the device target. Idempotent.
func (l *Layer) destroy() {
	if l.target != nil {
		l.target.Destroy()
		l.target = nil
	}
}

// verifyTarget checks that an allocated target is complete and usable at
// the requested size.
func verifyTarget(t device.Target, width, height int) error {
	w, h := t.Size()
	if w != width || h != height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrIncompleteTarget, w, h, width, height)
	}
	return nil
}

// backdrop is the persistent base the layers composite over. It has no
// blend mode or opacity of its own: each frame starts as a copy of it.
type backdrop struct {
	pix    *Pixmap
	target device.Target
	dirty  bool
}

func (b *backdrop) flush() error {
	if !b.dirty {
		return nil
	}
	if err := b.target.Upload(b.pix.Data()); err != nil {
		return fmt.Errorf("easel: uploading backdrop: %w", err)
	}
	b.dirty = false
	return nil
}

func (b *backdrop) destroy() {
	if b.target != nil {
		b.target.Destroy()
		b.target = nil
	}
}

// LayerSet owns one layer per mode plus the backdrop. All targets are
// created together at construction and resize, and destroyed together;
// there is never a partially-sized set.
type LayerSet struct {
	width, height int
	modes         [NumModes]*Layer
	base          *backdrop
}

// newLayerSet allocates every layer target and the backdrop. Any failure
// destroys whatever was already created and reports a fatal error.
func newLayerSet(dev device.Device, width, height int, background RGBA) (*LayerSet, error) {
	ls := &LayerSet{width: width, height: height}

	for m := Mode(0); m < NumModes; m++ {
		l, err := newLayer(dev, m, width, height)
		if err != nil {
			ls.destroy()
			return nil, err
		}
		ls.modes[m] = l
	}

	t, err := dev.NewTarget(width, height)
	if err != nil {
		ls.destroy()
		return nil, fmt.Errorf("easel: creating backdrop target: %w", err)
	}
	if err := verifyTarget(t, width, height); err != nil {
		t.Destroy()
		ls.destroy()
		return nil, fmt.Errorf("easel: backdrop: %w", err)
	}

	pix := NewPixmap(width, height)
	pix.Clear(background)
	ls.base = &backdrop{pix: pix, target: t, dirty: true}

	return ls, nil
}

// layer returns the layer for a mode. The mode must be valid.
func (ls *LayerSet) layer(m Mode) *Layer {
	return ls.modes[m]
}

// flush mirrors every dirty pixmap into its device target.
func (ls *LayerSet) flush() error {
	for _, l := range ls.modes {
		if err := l.flush(); err != nil {
			return err
		}
	}
	return ls.base.flush()
}

// destroy releases every target in the set. Idempotent.
func (ls *LayerSet) destroy() {
	for m, l := range ls.modes {
		if l != nil {
			l.destroy()
			ls.modes[m] = nil
		}
	}
	if ls.base != nil {
		ls.base.destroy()
		ls.base = nil
	}
}
