// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device abstracts the backends the engine presents through.
//
// A Device hands out render Targets, the backend residence of a layer's
// pixels, and reports capabilities the compositor uses to pick a blend
// strategy. Backends register themselves with the package registry; the
// engine acquires the best available one at initialization and falls back
// down the priority order, ending with the built-in software backend.
//
// Any backend-global state (compiled pipelines, default blend and clear
// configuration) is set up exactly once when the device is created, never
// per frame.
//
// Devices and Targets are NOT thread-safe. The engine serializes all access.
package device

import (
	"errors"

	"github.com/gogpu/easel/internal/blend"
)

// Target errors shared by the backends.
var (
	// ErrSizeMismatch is returned by Upload when len(pix) does not match
	// the target dimensions.
	ErrSizeMismatch = errors.New("device: pixel buffer size mismatch")

	// ErrTargetDestroyed is returned when a destroyed target is used.
	ErrTargetDestroyed = errors.New("device: target destroyed")

	// ErrDeviceClosed is returned when a closed device is asked for a
	// new target.
	ErrDeviceClosed = errors.New("device: device closed")

	// ErrPresentNotSupported is returned when a target cannot present
	// into a host drawing context.
	ErrPresentNotSupported = errors.New("device: target cannot present to a host context")
)

// Capabilities describes what an acquired device can do. The compositor
// consults it when choosing between the CPU blend path and device offload.
type Capabilities struct {
	// MaxTargetSize is the largest width or height a single target may
	// have. Zero means unbounded.
	MaxTargetSize int

	// BlendOffload reports whether the device implements LayerBlender
	// and can run full-layer blend passes itself.
	BlendOffload bool

	// GPU reports whether target contents live in device memory rather
	// than host memory.
	GPU bool
}

// Device is an acquired backend. It creates the render targets layers live
// in and releases backend-global resources on Close.
type Device interface {
	// Name returns the registry name the device was created under.
	Name() string

	// Capabilities reports what the device can do. The result is fixed
	// for the lifetime of the device.
	Capabilities() Capabilities

	// NewTarget allocates a width×height render target and verifies the
	// allocation is complete and usable. An error here is fatal for
	// engine construction: rendering cannot proceed on a partial target.
	NewTarget(width, height int) (Target, error)

	// Close releases backend-global resources. Targets must be destroyed
	// first. Close is idempotent.
	Close() error
}

// Target is the device residence of one layer's pixels: the color store and
// its presentation binding, owned as a unit. Mode engines never see a Target;
// they paint CPU-side and the engine mirrors dirty pixels in via Upload.
type Target interface {
	// Size returns the target dimensions in pixels.
	Size() (width, height int)

	// Upload replaces the full target contents with premultiplied RGBA
	// pixels. len(pix) must be width*height*4.
	Upload(pix []byte) error

	// ReadPixels returns a copy of the target contents as premultiplied
	// RGBA. For GPU targets this is a synchronous readback.
	ReadPixels() ([]byte, error)

	// Destroy releases the target. Idempotent; the target must not be
	// used afterwards.
	Destroy()
}

// LayerBlender is an optional Device interface. Devices that advertise
// Capabilities.BlendOffload implement it to composite one layer onto another
// entirely on the backend, using the same math as the CPU path.
type LayerBlender interface {
	// BlendLayer composites src onto dst in place with the given mode and
	// opacity. Both targets must come from this device and share
	// dimensions.
	BlendLayer(dst, src Target, mode blend.Mode, opacity float64) error
}
