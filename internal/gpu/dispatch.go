// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// dispatch.go defines the GPU dispatch path for the vertex stage: shader
// compilation, per-batch buffer traffic, and the single compute pass that
// transforms one batch.

package gpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vertex"
)

const (
	// stageWGSize is the workgroup size of the compute shader. This
	// matches the @workgroup_size attribute in stage_compute.wgsl.
	stageWGSize = 64

	// inputFloats is the width of one input record in f32 lanes:
	// position 3, normal 3, tex coord 2, tangent 4.
	inputFloats = 12

	// outputFloats is the width of one output record in f32 lanes:
	// clip position 4, normal 3, tex coord 2.
	outputFloats = 9

	// paramsSize is the byte size of the Params uniform:
	// vec3<f32> scale plus a u32 vertex count.
	paramsSize = 16

	// fenceTimeout is the maximum time to wait for GPU work to complete.
	fenceTimeout = 5 * time.Second
)

// stageParams mirrors the Params uniform in stage_compute.wgsl.
type stageParams struct {
	scale       [3]float32
	vertexCount uint32
}

// toBytes serializes the params in the little-endian layout of the WGSL
// Params struct: three f32 scale lanes followed by the u32 vertex count
// in the vec3 pad slot.
func (p stageParams) toBytes() []byte {
	buf := make([]byte, paramsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], math32.Float32bits(p.scale[0]))
	le.PutUint32(buf[4:8], math32.Float32bits(p.scale[1]))
	le.PutUint32(buf[8:12], math32.Float32bits(p.scale[2]))
	le.PutUint32(buf[12:16], p.vertexCount)
	return buf
}

// packInputs serializes a batch into the flat little-endian f32 records
// the compute shader reads: inputFloats lanes per vertex, bit patterns
// preserved exactly.
func packInputs(src []vertex.Input) []byte {
	buf := make([]byte, len(src)*inputFloats*4)
	le := binary.LittleEndian
	for i, in := range src {
		base := i * inputFloats * 4
		le.PutUint32(buf[base+0:], math32.Float32bits(in.Position[0]))
		le.PutUint32(buf[base+4:], math32.Float32bits(in.Position[1]))
		le.PutUint32(buf[base+8:], math32.Float32bits(in.Position[2]))
		le.PutUint32(buf[base+12:], math32.Float32bits(in.Normal[0]))
		le.PutUint32(buf[base+16:], math32.Float32bits(in.Normal[1]))
		le.PutUint32(buf[base+20:], math32.Float32bits(in.Normal[2]))
		le.PutUint32(buf[base+24:], math32.Float32bits(in.TexCoord[0]))
		le.PutUint32(buf[base+28:], math32.Float32bits(in.TexCoord[1]))
		le.PutUint32(buf[base+32:], math32.Float32bits(in.Tangent[0]))
		le.PutUint32(buf[base+36:], math32.Float32bits(in.Tangent[1]))
		le.PutUint32(buf[base+40:], math32.Float32bits(in.Tangent[2]))
		le.PutUint32(buf[base+44:], math32.Float32bits(in.Tangent[3]))
	}
	return buf
}

// unpackOutputs deserializes the shader's flat output records into dst.
// raw must hold at least len(dst)*outputFloats*4 bytes.
func unpackOutputs(raw []byte, dst []vertex.Output) {
	le := binary.LittleEndian
	for i := range dst {
		base := i * outputFloats * 4
		dst[i] = vertex.Output{
			ClipPosition: [4]float32{
				math32.Float32frombits(le.Uint32(raw[base+0:])),
				math32.Float32frombits(le.Uint32(raw[base+4:])),
				math32.Float32frombits(le.Uint32(raw[base+8:])),
				math32.Float32frombits(le.Uint32(raw[base+12:])),
			},
			Normal: [3]float32{
				math32.Float32frombits(le.Uint32(raw[base+16:])),
				math32.Float32frombits(le.Uint32(raw[base+20:])),
				math32.Float32frombits(le.Uint32(raw[base+24:])),
			},
			TexCoord: [2]float32{
				math32.Float32frombits(le.Uint32(raw[base+28:])),
				math32.Float32frombits(le.Uint32(raw[base+32:])),
			},
		}
	}
}

// stageBindGroupLayoutEntries returns the bind group layout of the compute
// shader. The entries match the @group(0) @binding(N) annotations in
// stage_compute.wgsl exactly: params uniform at 0, read-only input records
// at 1, read-write output records at 2.
func stageBindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		},
	}
}

// computePipeline owns the compiled compute pipeline for the vertex stage
// and runs batches through it. It must be initialized with Init before
// Run can be called.
type computePipeline struct {
	mu sync.RWMutex

	device  hal.Device
	queue   hal.Queue
	buffers *BufferManager

	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline

	initialized bool
	wgSize      uint32
}

// newComputePipeline creates a pipeline attached to the given HAL device
// and queue. Buffer traffic goes through the shared buffer manager.
func newComputePipeline(device hal.Device, queue hal.Queue, buffers *BufferManager) *computePipeline {
	return &computePipeline{
		device:  device,
		queue:   queue,
		buffers: buffers,
		wgSize:  stageWGSize,
	}
}

// Init compiles the compute shader and creates the pipeline. Safe to call
// multiple times; subsequent calls are no-ops once initialized.
func (p *computePipeline) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	spirv, err := compileSPIRV(stageComputeWGSL)
	if err != nil {
		return fmt.Errorf("vertex-gpu: %w", err)
	}

	module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "vertex_stage",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("vertex-gpu: create shader module: %w", err)
	}
	p.module = module

	bgLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "vertex_stage_bgl",
		Entries: stageBindGroupLayoutEntries(),
	})
	if err != nil {
		p.destroyLocked()
		return fmt.Errorf("vertex-gpu: create bind group layout: %w", err)
	}
	p.bgLayout = bgLayout

	layout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "vertex_stage_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		p.destroyLocked()
		return fmt.Errorf("vertex-gpu: create pipeline layout: %w", err)
	}
	p.layout = layout

	pipeline, err := p.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "vertex_stage",
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		p.destroyLocked()
		return fmt.Errorf("vertex-gpu: create compute pipeline: %w", err)
	}
	p.pipeline = pipeline

	p.initialized = true
	slogger().Debug("vertex-gpu: compute pipeline initialized",
		"workgroup_size", p.wgSize,
		"shader_bytes", len(stageComputeWGSL))
	return nil
}

// Close releases the pipeline's GPU resources. After Close the pipeline
// must be re-initialized before use.
func (p *computePipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyLocked()
	p.initialized = false
}

// destroyLocked releases whatever pipeline resources exist, tolerating
// partial initialization. Caller must hold mu.
func (p *computePipeline) destroyLocked() {
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.bgLayout != nil {
		p.device.DestroyBindGroupLayout(p.bgLayout)
		p.bgLayout = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// workgroups returns the dispatch width for n vertices: ceiling division
// by the workgroup size.
func (p *computePipeline) workgroups(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return (n + p.wgSize - 1) / p.wgSize
}

// batchResources tracks per-batch GPU resources for cleanup.
type batchResources struct {
	device  hal.Device
	buffers *BufferManager

	params  *Allocation
	input   *Allocation
	output  *Allocation
	staging *Allocation

	bindGroup hal.BindGroup
	cmdBuf    hal.CommandBuffer
	fence     hal.Fence
}

// cleanup releases all tracked per-batch resources. Buffer leases go back
// to the manager for reuse by the next batch.
func (r *batchResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
	}
	for _, a := range []*Allocation{r.params, r.input, r.output, r.staging} {
		if a != nil {
			_ = r.buffers.Release(a)
		}
	}
}

// Run transforms one batch on the GPU: upload, one compute pass, fence
// wait, readback. Returns one output per input in matching order.
func (p *computePipeline) Run(t vertex.Transform, src []vertex.Input) ([]vertex.Output, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return nil, fmt.Errorf("vertex-gpu: pipeline not initialized, call Init() first")
	}

	n := len(src)
	if n == 0 {
		return nil, nil
	}

	inBytes := uint64(n) * inputFloats * 4
	outBytes := uint64(n) * outputFloats * 4

	res := &batchResources{device: p.device, buffers: p.buffers}
	defer res.cleanup()

	var err error
	if res.params, err = p.buffers.Acquire("vertex_params", paramsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst); err != nil {
		return nil, err
	}
	if res.input, err = p.buffers.Acquire("vertex_input", inBytes,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst); err != nil {
		return nil, err
	}
	if res.output, err = p.buffers.Acquire("vertex_output", outBytes,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc); err != nil {
		return nil, err
	}
	if res.staging, err = p.buffers.Acquire("vertex_staging", outBytes,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst); err != nil {
		return nil, err
	}

	params := stageParams{scale: t.Scale, vertexCount: uint32(n)}
	if err := p.buffers.Upload(res.params, params.toBytes()); err != nil {
		return nil, err
	}
	if err := p.buffers.Upload(res.input, packInputs(src)); err != nil {
		return nil, err
	}

	entry := func(binding uint32, a *Allocation) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: a.Buffer().NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}
	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "vertex_stage_bg",
		Layout: p.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			entry(0, res.params),
			entry(1, res.input),
			entry(2, res.output),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vertex-gpu: create bind group: %w", err)
	}
	res.bindGroup = bindGroup

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "vertex_stage",
	})
	if err != nil {
		return nil, fmt.Errorf("vertex-gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("vertex_stage"); err != nil {
		return nil, fmt.Errorf("vertex-gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "vertex_stage"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(p.workgroups(uint32(n)), 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(res.output.Buffer(), res.staging.Buffer(), []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outBytes},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("vertex-gpu: end encoding: %w", err)
	}
	res.cmdBuf = cmdBuf

	fence, err := p.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("vertex-gpu: create fence: %w", err)
	}
	res.fence = fence

	if err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("vertex-gpu: submit: %w", err)
	}
	ok, err := p.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return nil, fmt.Errorf("vertex-gpu: wait for GPU: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("vertex-gpu: GPU timeout after %v", fenceTimeout)
	}

	readback := make([]byte, outBytes)
	if err := p.buffers.ReadBack(res.staging, readback); err != nil {
		return nil, err
	}

	dst := make([]vertex.Output, n)
	unpackOutputs(readback, dst)

	slogger().Debug("vertex-gpu: batch dispatched",
		"vertices", n,
		"workgroups", p.workgroups(uint32(n)))
	return dst, nil
}
