package easel

import "github.com/gogpu/easel/device"

// Option configures an Engine during creation.
// Use functional options to customize Engine behavior.
//
// Example:
//
//	// Default: best available backend, 60 fps scheduler
//	eng, err := easel.New(800, 600)
//
//	// Custom device (dependency injection)
//	eng, err := easel.New(800, 600, easel.WithDevice(dev))
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	background  RGBA
	targetFPS   int
	backend     string
	device      device.Device
	registry    *device.Registry
	engines     [NumModes]ModeEngine
	activeModes []Mode
	accelerate  bool
}

// defaultEngineOptions returns the default engine options.
func defaultEngineOptions() engineOptions {
	return engineOptions{
		background: White,
		targetFPS:  60,
	}
}

// WithBackground sets the backdrop color the canvas is cleared to.
// The default is white.
func WithBackground(c RGBA) Option {
	return func(o *engineOptions) {
		o.background = c
	}
}

// WithTargetFPS sets the frame scheduler's target rate. Zero disables the
// scheduler entirely; drive frames manually with [Engine.RenderFrame].
// The default is 60.
func WithTargetFPS(fps int) Option {
	return func(o *engineOptions) {
		if fps < 0 {
			fps = 0
		}
		o.targetFPS = fps
	}
}

// WithBackend requests a specific device backend by registry name instead
// of walking the priority order.
//
// Example:
//
//	eng, err := easel.New(800, 600, easel.WithBackend("software"))
func WithBackend(name string) Option {
	return func(o *engineOptions) {
		o.backend = name
	}
}

// WithDevice injects an already-open device. The engine uses it without
// acquiring from the registry and does not close it on Destroy; the caller
// keeps ownership.
func WithDevice(d device.Device) Option {
	return func(o *engineOptions) {
		o.device = d
	}
}

// WithDeviceRegistry makes the engine acquire its backend from a private
// registry instead of the global one. Tests use this to control exactly
// which backends exist.
func WithDeviceRegistry(r *device.Registry) Option {
	return func(o *engineOptions) {
		o.registry = r
	}
}

// WithModeEngine binds a custom mode engine to a mode, replacing the
// built-in stamp engine.
//
// Example:
//
//	eng, err := easel.New(800, 600, easel.WithModeEngine(easel.Growth, sim))
func WithModeEngine(m Mode, e ModeEngine) Option {
	return func(o *engineOptions) {
		if m.Valid() && e != nil {
			o.engines[m] = e
		}
	}
}

// WithActiveModes marks modes active at creation. Inactive modes receive
// no pointer input, so their layers stay empty. By default no mode is
// active; activate them here or later with [Engine.ActivateModes].
func WithActiveModes(modes ...Mode) Option {
	return func(o *engineOptions) {
		o.activeModes = append(o.activeModes, modes...)
	}
}

// WithAcceleration lets the engine run layer compositing on the device
// when the backend advertises blend offload. The CPU path remains the
// reference behavior; offload applies the same blend formulas on the
// device.
func WithAcceleration(enabled bool) Option {
	return func(o *engineOptions) {
		o.accelerate = enabled
	}
}
