// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "fmt"

// softwarePriority places the built-in backend at the bottom of the
// selection order. It exists so Acquire always has somewhere to land.
const softwarePriority = 10

func init() {
	Register("software", softwarePriority, func() (Device, error) {
		return NewSoftware(), nil
	}, nil)
}

// softwareDevice is the built-in pure-Go backend. Targets are plain host
// buffers, so every operation is a memcpy and the backend is available
// everywhere.
type softwareDevice struct {
	closed bool
}

// NewSoftware creates the built-in software device. Most callers go
// through Acquire instead; this constructor exists for tests and for
// embedding a known-good backend directly.
func NewSoftware() Device {
	return &softwareDevice{}
}

func (d *softwareDevice) Name() string { return "software" }

func (d *softwareDevice) Capabilities() Capabilities {
	return Capabilities{
		MaxTargetSize: 0,
		BlendOffload:  false,
		GPU:           false,
	}
}

func (d *softwareDevice) NewTarget(width, height int) (Target, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("device: invalid target size %dx%d (both must be > 0)", width, height)
	}
	return &softwareTarget{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*4),
	}, nil
}

func (d *softwareDevice) Close() error {
	d.closed = true
	return nil
}

// softwareTarget stores premultiplied RGBA in host memory.
type softwareTarget struct {
	width, height int
	pix           []byte
	destroyed     bool
}

func (t *softwareTarget) Size() (int, int) {
	return t.width, t.height
}

func (t *softwareTarget) Upload(pix []byte) error {
	if t.destroyed {
		return ErrTargetDestroyed
	}
	if len(pix) != len(t.pix) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(pix), len(t.pix))
	}
	copy(t.pix, pix)
	return nil
}

func (t *softwareTarget) ReadPixels() ([]byte, error) {
	if t.destroyed {
		return nil, ErrTargetDestroyed
	}
	out := make([]byte, len(t.pix))
	copy(out, t.pix)
	return out, nil
}

func (t *softwareTarget) Destroy() {
	t.pix = nil
	t.destroyed = true
}
