package easel

import (
	"fmt"

	"github.com/gogpu/easel/device"
	"github.com/gogpu/easel/internal/blend"
)

// compositor turns the layer set into the presented frame. Every pass
// recomputes the full frame from the backdrop and the layers in fixed
// mode order, so identical inputs yield bit-identical output. It owns
// the presentation target the final view image is uploaded to.
type compositor struct {
	dev     device.Device
	blender device.LayerBlender // non-nil when blend offload is in use
	frame   *Pixmap             // canvas-space composite
	view    *Pixmap             // view-space output after transform and feedback
	target  device.Target       // presentation target
}

// newCompositor allocates the presentation target and, when requested and
// supported, binds the device's blend offload path.
func newCompositor(dev device.Device, width, height int, accelerate bool) (*compositor, error) {
	t, err := dev.NewTarget(width, height)
	if err != nil {
		return nil, fmt.Errorf("easel: creating presentation target: %w", err)
	}
	if err := verifyTarget(t, width, height); err != nil {
		t.Destroy()
		return nil, fmt.Errorf("easel: presentation: %w", err)
	}

	c := &compositor{
		dev:    dev,
		frame:  NewPixmap(width, height),
		view:   NewPixmap(width, height),
		target: t,
	}
	if accelerate && dev.Capabilities().BlendOffload {
		if b, ok := dev.(device.LayerBlender); ok {
			c.blender = b
		}
	}
	return c, nil
}

// composite recomputes the canvas-space frame. Layers must be flushed to
// their targets first when the device path is active.
func (c *compositor) composite(ls *LayerSet) error {
	if c.blender != nil {
		return c.compositeDevice(ls)
	}
	c.compositeCPU(ls)
	return nil
}

// compositeCPU is the reference path: start from the backdrop and blend
// each eligible layer's pixmap in mode order.
func (c *compositor) compositeCPU(ls *LayerSet) {
	c.frame.CopyFrom(ls.base.pix)
	for m := Mode(0); m < NumModes; m++ {
		l := ls.layer(m)
		if !l.visible || l.opacity <= 0 {
			continue
		}
		blend.Composite(c.frame.Data(), l.pix.Data(), l.mode.BlendMode(), l.opacity)
	}
}

// compositeDevice runs the same pass on the device: reset the presentation
// target to the backdrop, blend each eligible layer target onto it, then
// read the result back for the presentation stage.
func (c *compositor) compositeDevice(ls *LayerSet) error {
	if err := c.target.Upload(ls.base.pix.Data()); err != nil {
		return fmt.Errorf("easel: uploading backdrop for blend: %w", err)
	}
	for m := Mode(0); m < NumModes; m++ {
		l := ls.layer(m)
		if !l.visible || l.opacity <= 0 {
			continue
		}
		if err := c.blender.BlendLayer(c.target, l.target, l.mode.BlendMode(), l.opacity); err != nil {
			return fmt.Errorf("easel: device blend for %s: %w", l.mode, err)
		}
	}
	pix, err := c.target.ReadPixels()
	if err != nil {
		return fmt.Errorf("easel: reading composite back: %w", err)
	}
	copy(c.frame.Data(), pix)
	return nil
}

// applyView maps the canvas-space frame into view space. The identity
// transform is a plain copy.
func (c *compositor) applyView(view Matrix) {
	if view.IsIdentity() {
		c.view.CopyFrom(c.frame)
		return
	}
	resampleView(c.view, c.frame, view)
}

// push uploads the finished view image to the presentation target.
func (c *compositor) push() error {
	return c.target.Upload(c.view.Data())
}

// readPixels returns the presented frame from the device.
func (c *compositor) readPixels() ([]byte, error) {
	return c.target.ReadPixels()
}

// destroy releases the presentation target. Idempotent.
func (c *compositor) destroy() {
	if c.target != nil {
		c.target.Destroy()
		c.target = nil
	}
}
