// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
)

// Shared backend errors.
var (
	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("device: nil DeviceProvider")

	// ErrNoTextureCreator is returned when the host draw context cannot
	// create textures.
	ErrNoTextureCreator = errors.New("device: draw context has no texture creator")
)

// FramePresenter is an optional Target interface. Targets that live in a
// host application's GPU context implement it to draw themselves into the
// host's frame.
type FramePresenter interface {
	// PresentTo draws the target contents into the host drawing context
	// at the given position.
	PresentTo(dc gpucontext.TextureDrawer, x, y float32) error
}

// textureDestroyer matches the host texture Destroy signature.
type textureDestroyer interface {
	Destroy()
}

// sharedDevice presents through textures owned by a host application's GPU
// context (a gpucontext.DeviceProvider). The host keeps ownership of its
// device and queue; this backend only creates and updates textures.
//
// Targets keep a CPU mirror of their pixels. The host texture is created
// lazily on first presentation, because texture creation needs the host's
// TextureDrawer, which only exists inside the host's draw callback.
type sharedDevice struct {
	provider gpucontext.DeviceProvider

	// graveyard holds textures of destroyed targets. The host GPU may
	// still reference a texture in an in-flight frame when the target is
	// destroyed, so destruction is deferred until the next texture write
	// has synchronized the GPU.
	graveyard []any

	closed bool
}

// NewShared creates a device backed by a host application's GPU context.
// The provider should come from the host (for gogpu applications,
// App.GPUContextProvider()).
//
// Shared devices are not registered automatically because they need a live
// provider; call RegisterShared or pass the device to the engine directly.
func NewShared(provider gpucontext.DeviceProvider) (Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	return &sharedDevice{provider: provider}, nil
}

// RegisterShared registers a shared device factory for the provider under
// the name "shared" at priority 100, making it the preferred backend for
// subsequent Acquire calls.
func RegisterShared(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return ErrNilProvider
	}
	Register("shared", 100, func() (Device, error) {
		return NewShared(provider)
	}, nil)
	return nil
}

func (d *sharedDevice) Name() string { return "shared" }

func (d *sharedDevice) Capabilities() Capabilities {
	return Capabilities{
		MaxTargetSize: 0,
		BlendOffload:  false,
		GPU:           true,
	}
}

func (d *sharedDevice) NewTarget(width, height int) (Target, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("device: invalid target size %dx%d (both must be > 0)", width, height)
	}
	return &sharedTarget{
		dev:    d,
		width:  width,
		height: height,
		pix:    make([]byte, width*height*4),
		dirty:  true,
	}, nil
}

func (d *sharedDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	// Host teardown has the GPU idle; buried textures can go now.
	d.flushGraveyard()
	d.provider = nil
	return nil
}

// bury defers destruction of a host texture until the GPU is known idle.
func (d *sharedDevice) bury(tex any) {
	if tex == nil {
		return
	}
	d.graveyard = append(d.graveyard, tex)
}

// flushGraveyard destroys all deferred textures. Called after a texture
// write has synchronized the GPU, so nothing in-flight references them.
func (d *sharedDevice) flushGraveyard() {
	for _, tex := range d.graveyard {
		if destroyer, ok := tex.(textureDestroyer); ok {
			destroyer.Destroy()
		}
	}
	d.graveyard = nil
}

// sharedTarget mirrors its pixels in host memory and pushes them into a
// host texture at presentation time.
type sharedTarget struct {
	dev           *sharedDevice
	width, height int
	pix           []byte
	texture       any // lazily created host texture
	dirty         bool
	destroyed     bool
}

func (t *sharedTarget) Size() (int, int) {
	return t.width, t.height
}

func (t *sharedTarget) Upload(pix []byte) error {
	if t.destroyed {
		return ErrTargetDestroyed
	}
	if len(pix) != len(t.pix) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(pix), len(t.pix))
	}
	copy(t.pix, pix)
	t.dirty = true
	return nil
}

func (t *sharedTarget) ReadPixels() ([]byte, error) {
	if t.destroyed {
		return nil, ErrTargetDestroyed
	}
	out := make([]byte, len(t.pix))
	copy(out, t.pix)
	return out, nil
}

func (t *sharedTarget) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.pix = nil
	// The host GPU may still read this texture in an in-flight frame.
	t.dev.bury(t.texture)
	t.texture = nil
}

// PresentTo implements FramePresenter. It creates the host texture on
// first use, pushes dirty pixels, and draws at (x, y).
func (t *sharedTarget) PresentTo(dc gpucontext.TextureDrawer, x, y float32) error {
	if t.destroyed {
		return ErrTargetDestroyed
	}

	if t.texture == nil {
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrNoTextureCreator
		}

		// NewTextureFromRGBA waits for the GPU internally, so once it
		// returns nothing in-flight references buried textures.
		tex, err := creator.NewTextureFromRGBA(t.width, t.height, t.pix)
		if err != nil {
			return fmt.Errorf("device: texture creation failed: %w", err)
		}

		// Target pixels are premultiplied alpha; mark the texture so the
		// host composites with the matching blend factors.
		if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}

		t.texture = tex
		t.dirty = false
		t.dev.flushGraveyard()
	} else if t.dirty {
		updater, ok := t.texture.(gpucontext.TextureUpdater)
		if !ok {
			return fmt.Errorf("device: host texture %T does not support updates", t.texture)
		}
		if err := updater.UpdateData(t.pix); err != nil {
			return fmt.Errorf("device: texture update failed: %w", err)
		}
		t.dirty = false
		t.dev.flushGraveyard()
	}

	gpuTex, ok := t.texture.(gpucontext.Texture)
	if !ok {
		return fmt.Errorf("device: host texture %T is not drawable", t.texture)
	}
	return dc.DrawTexture(gpuTex, x, y)
}
