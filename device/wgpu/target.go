// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/easel/device"
	"github.com/gogpu/easel/internal/blend"
)

// gpuTimeout bounds every fence wait. A GPU that takes longer than this
// on a single blend or readback is wedged.
const gpuTimeout = 5 * time.Second

// target is the device residence of one layer: a storage buffer holding
// the pixels and a MapRead staging buffer for readback, created and
// destroyed as a unit.
//
// Pixels are stored as little-endian u32 words packed
// r | g<<8 | b<<16 | a<<24, which is byte-for-byte the premultiplied
// RGBA layout the engine uploads, so no repacking pass is needed.
type target struct {
	dev           *Device
	width, height int
	size          uint64
	pixels        hal.Buffer
	staging       hal.Buffer
	destroyed     bool
}

func newTarget(d *Device, width, height int) (*target, error) {
	size := uint64(width) * uint64(height) * 4

	pixels, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "layer_pixels",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pixel buffer: %w", err)
	}

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "layer_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.dev.DestroyBuffer(pixels)
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}

	// Zero the store so a fresh target reads back as transparent.
	d.queue.WriteBuffer(pixels, 0, make([]byte, size))

	return &target{
		dev:     d,
		width:   width,
		height:  height,
		size:    size,
		pixels:  pixels,
		staging: staging,
	}, nil
}

func (t *target) Size() (int, int) {
	return t.width, t.height
}

func (t *target) Upload(pix []byte) error {
	if t.destroyed {
		return device.ErrTargetDestroyed
	}
	if uint64(len(pix)) != t.size {
		return fmt.Errorf("%w: got %d bytes, want %d", device.ErrSizeMismatch, len(pix), t.size)
	}
	t.dev.queue.WriteBuffer(t.pixels, 0, pix)
	return nil
}

func (t *target) ReadPixels() ([]byte, error) {
	if t.destroyed {
		return nil, device.ErrTargetDestroyed
	}
	d := t.dev

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(t.pixels, t.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: t.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(cmdBuf); err != nil {
		return nil, err
	}

	out := make([]byte, t.size)
	if err := d.queue.ReadBuffer(t.staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	return out, nil
}

func (t *target) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	if t.dev.dev == nil {
		return
	}
	if t.pixels != nil {
		t.dev.dev.DestroyBuffer(t.pixels)
		t.pixels = nil
	}
	if t.staging != nil {
		t.dev.dev.DestroyBuffer(t.staging)
		t.staging = nil
	}
}

// BlendLayer implements device.LayerBlender: one compute pass applying
// src onto dst in place with the mode's pipeline. The uniform buffer and
// bind group are per-dispatch; all heavyweight state was built at open.
func (d *Device) BlendLayer(dst, src device.Target, mode blend.Mode, opacity float64) error {
	if d.closed {
		return device.ErrDeviceClosed
	}
	dt, ok := dst.(*target)
	if !ok {
		return fmt.Errorf("wgpu: dst target is %T, not a wgpu target", dst)
	}
	st, ok := src.(*target)
	if !ok {
		return fmt.Errorf("wgpu: src target is %T, not a wgpu target", src)
	}
	if dt.destroyed || st.destroyed {
		return device.ErrTargetDestroyed
	}
	if dt.dev != d || st.dev != d {
		return fmt.Errorf("wgpu: targets belong to a different device")
	}
	if dt.width != st.width || dt.height != st.height {
		return fmt.Errorf("wgpu: target size mismatch: dst %dx%d, src %dx%d",
			dt.width, dt.height, st.width, st.height)
	}

	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}

	params := packParams(uint32(dt.width), uint32(dt.height), float32(opacity))
	ub, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "blend_params",
		Size:  uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create params buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(ub)
	d.queue.WriteBuffer(ub, 0, params)

	bg, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "blend_bind",
		Layout: d.pipes.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(len(params))}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: st.pixels.NativeHandle(), Offset: 0, Size: st.size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dt.pixels.NativeHandle(), Offset: 0, Size: dt.size}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer d.dev.DestroyBindGroup(bg)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "blend_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("blend"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	w, h := uint32(dt.width), uint32(dt.height)
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "blend_pass"})
	pass.SetPipeline(d.pipes.forMode(mode))
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((w+7)/8, (h+7)/8, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	return d.submitAndWait(cmdBuf)
}

// submitAndWait submits one command buffer and blocks until its fence
// signals.
func (d *Device) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := d.dev.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.dev.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.dev.Wait(fence, 1, gpuTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: wait for GPU: timeout after %v", gpuTimeout)
	}
	return nil
}

// packParams serializes the shader uniform block: width, height, opacity,
// padding to 16 bytes.
func packParams(width, height uint32, opacity float32) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:], width)
	binary.LittleEndian.PutUint32(out[4:], height)
	binary.LittleEndian.PutUint32(out[8:], math.Float32bits(opacity))
	return out
}
