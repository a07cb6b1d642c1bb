// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/easel/internal/blend"
)

// One self-contained shader per blend mode. Keeping the mode out of the
// uniform data means no branching in the inner loop and no shared module
// with multiple entry points to trip SPIR-V translation.
var (
	//go:embed shaders/blend_over.wgsl
	blendOverWGSL string

	//go:embed shaders/blend_multiply.wgsl
	blendMultiplyWGSL string

	//go:embed shaders/blend_screen.wgsl
	blendScreenWGSL string

	//go:embed shaders/blend_overlay.wgsl
	blendOverlayWGSL string
)

// PipelineError reports a failed pipeline build. Pipeline construction
// happens once when the device opens; a failure here is fatal for the
// backend, not something a frame can recover from.
type PipelineError struct {
	// Stage names the build step that failed ("shader", "bind layout",
	// "pipeline layout", "pipeline") and the blend mode if relevant.
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("wgpu: building %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// pipelines holds the backend-global compute state: one pipeline per
// blend mode, sharing a single bind group layout. Built once when the
// device opens, never per frame.
type pipelines struct {
	dev        hal.Device
	shaders    [blend.NumModes]hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  [blend.NumModes]hal.ComputePipeline
}

// shaderSources maps blend modes to their WGSL source, indexed by
// blend.Mode.
var shaderSources = [blend.NumModes]struct {
	name string
	wgsl string
}{
	blend.Over:     {"blend_over", blendOverWGSL},
	blend.Multiply: {"blend_multiply", blendMultiplyWGSL},
	blend.Screen:   {"blend_screen", blendScreenWGSL},
	blend.Overlay:  {"blend_overlay", blendOverlayWGSL},
}

// compileToSPIRV compiles WGSL source to SPIR-V words (little-endian).
func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// newPipelines compiles every blend shader and builds the compute
// pipelines. On any failure it destroys what it already built and
// returns a *PipelineError.
func newPipelines(dev hal.Device) (*pipelines, error) {
	p := &pipelines{dev: dev}

	bindLayout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "blend_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return nil, &PipelineError{Stage: "bind layout", Err: err}
	}
	p.bindLayout = bindLayout

	pipeLayout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "blend_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy()
		return nil, &PipelineError{Stage: "pipeline layout", Err: err}
	}
	p.pipeLayout = pipeLayout

	for mode := blend.Mode(0); mode < blend.NumModes; mode++ {
		src := shaderSources[mode]

		words, err := compileToSPIRV(src.wgsl)
		if err != nil {
			p.destroy()
			return nil, &PipelineError{Stage: src.name + " shader", Err: err}
		}

		module, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  src.name,
			Source: hal.ShaderSource{SPIRV: words},
		})
		if err != nil {
			p.destroy()
			return nil, &PipelineError{Stage: src.name + " module", Err: err}
		}
		p.shaders[mode] = module

		pipeline, err := dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:   src.name + "_pipeline",
			Layout:  p.pipeLayout,
			Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
		})
		if err != nil {
			p.destroy()
			return nil, &PipelineError{Stage: src.name + " pipeline", Err: err}
		}
		p.pipelines[mode] = pipeline
	}

	return p, nil
}

// forMode returns the compute pipeline for a blend mode. Unknown modes
// fall back to source-over, matching the CPU compositor.
func (p *pipelines) forMode(mode blend.Mode) hal.ComputePipeline {
	if mode >= blend.NumModes {
		mode = blend.Over
	}
	return p.pipelines[mode]
}

// destroy releases pipeline state in reverse build order.
func (p *pipelines) destroy() {
	if p.dev == nil {
		return
	}
	for i, pl := range p.pipelines {
		if pl != nil {
			p.dev.DestroyComputePipeline(pl)
			p.pipelines[i] = nil
		}
	}
	if p.pipeLayout != nil {
		p.dev.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.dev.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	for i, s := range p.shaders {
		if s != nil {
			p.dev.DestroyShaderModule(s)
			p.shaders[i] = nil
		}
	}
}
