// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides a self-owned GPU backend for the engine's device
// registry, built on the wgpu HAL's Vulkan backend. Layer pixels live in
// storage buffers and layer blending runs as compute passes, so the
// backend advertises blend offload.
//
// Importing the package registers the backend:
//
//	import _ "github.com/gogpu/easel/device/wgpu"
package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/easel/device"
)

// backendPriority sits between shared host contexts (100) and the
// software fallback (10).
const backendPriority = 50

func init() {
	device.Register("wgpu", backendPriority, func() (device.Device, error) {
		return Open()
	}, available)
}

// available reports whether a Vulkan HAL backend is compiled in.
func available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

// Device is the wgpu-backed implementation of device.Device. It owns the
// HAL instance, device, and queue it opened, plus one compute pipeline
// per blend mode, all built once at open time.
type Device struct {
	instance hal.Instance
	dev      hal.Device
	queue    hal.Queue
	pipes    *pipelines

	adapterName string

	// external is true when the HAL device came from the caller;
	// Close then leaves the device and instance alone.
	external bool
	closed   bool
}

var _ device.Device = (*Device)(nil)
var _ device.LayerBlender = (*Device)(nil)

// Open creates a device on the best available Vulkan adapter and builds
// the blend pipelines. Adapter discovery failures are recoverable (the
// registry falls through to the next backend); a pipeline build failure
// surfaces as a *PipelineError.
func Open() (device.Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := &Device{
		instance:    instance,
		dev:         openDev.Device,
		queue:       openDev.Queue,
		adapterName: selected.Info.Name,
	}

	pipes, err := newPipelines(d.dev)
	if err != nil {
		d.dev.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.pipes = pipes

	device.Logger().Info("wgpu backend opened", "adapter", d.adapterName)
	return d, nil
}

// NewFromHAL builds a device on an already-open HAL device and queue,
// for hosts that share their GPU. Close releases the pipelines but
// leaves the HAL device to its owner.
func NewFromHAL(halDev hal.Device, queue hal.Queue) (device.Device, error) {
	if halDev == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil HAL device or queue")
	}
	pipes, err := newPipelines(halDev)
	if err != nil {
		return nil, err
	}
	return &Device{
		dev:      halDev,
		queue:    queue,
		pipes:    pipes,
		external: true,
	}, nil
}

func (d *Device) Name() string { return "wgpu" }

// AdapterName returns the name of the GPU adapter in use. Empty for
// devices built on an external HAL device.
func (d *Device) AdapterName() string { return d.adapterName }

func (d *Device) Capabilities() device.Capabilities {
	return device.Capabilities{
		MaxTargetSize: 0,
		BlendOffload:  true,
		GPU:           true,
	}
}

func (d *Device) NewTarget(width, height int) (device.Target, error) {
	if d.closed {
		return nil, device.ErrDeviceClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: invalid target size %dx%d (both must be > 0)", width, height)
	}
	t, err := newTarget(d, width, height)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Close destroys the blend pipelines and, for self-opened devices, the
// HAL device and instance. Idempotent.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.pipes != nil {
		d.pipes.destroy()
		d.pipes = nil
	}
	if d.external {
		d.dev = nil
		d.queue = nil
		return nil
	}
	if d.dev != nil {
		d.dev.Destroy()
		d.dev = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
	return nil
}
