// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vertex"
)

// VertexState returns the stage's vertex state for a compiled shader
// module: the stage entry point reading the single interleaved vertex
// buffer described by vertex.InputLayout.
func VertexState(module hal.ShaderModule) hal.VertexState {
	return hal.VertexState{
		Module:     module,
		EntryPoint: vertex.EntryPoint,
		Buffers:    []gputypes.VertexBufferLayout{vertex.InputLayout()},
	}
}

// Config collects everything needed to assemble the stage's render
// pipeline descriptor. Zero values fall back to sensible defaults: no
// fragment stage, no depth target, single-sampled.
type Config struct {
	// Label names the pipeline in captures and error messages.
	Label string

	// Layout is the pipeline layout carrying the stage's uniform bind
	// group.
	Layout hal.PipelineLayout

	// Module is the compiled shader module holding the vertex entry
	// point.
	Module hal.ShaderModule

	// FragmentModule, when non-nil, holds the fragment entry point.
	// Fragment shading is external to the stage, so the module is
	// caller-provided.
	FragmentModule hal.ShaderModule

	// FragmentEntry is the fragment entry function. Empty means
	// "fs_main".
	FragmentEntry string

	// Colors are the color targets, in attachment order.
	Colors []Attachment

	// Depth optionally attaches a depth/stencil target.
	Depth *Attachment

	// Samples is the MSAA sample count. Zero means single-sampled.
	Samples uint32
}

// Descriptor assembles the render pipeline descriptor for the config.
// The vertex stage is always the stage's own entry point and layout;
// a fragment stage is attached only when both a fragment module and at
// least one color target are configured.
func (c Config) Descriptor() *hal.RenderPipelineDescriptor {
	samples := c.Samples
	if samples == 0 {
		samples = 1
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  c.Label,
		Layout: c.Layout,
		Vertex: VertexState(c.Module),
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	}

	if c.FragmentModule != nil && len(c.Colors) > 0 {
		entry := c.FragmentEntry
		if entry == "" {
			entry = "fs_main"
		}
		targets := make([]gputypes.ColorTargetState, len(c.Colors))
		for i, a := range c.Colors {
			targets[i] = a.ColorTarget()
		}
		desc.Fragment = &hal.FragmentState{
			Module:     c.FragmentModule,
			EntryPoint: entry,
			Targets:    targets,
		}
	}

	if c.Depth != nil {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            c.Depth.Format,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      passthroughStencil(),
			StencilBack:       passthroughStencil(),
			StencilReadMask:   0x00,
			StencilWriteMask:  0x00,
		}
	}

	return desc
}

// passthroughStencil is the no-op stencil face: always pass, never
// modify.
func passthroughStencil() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

// BoundAttachment pairs an attachment description with the texture view
// it renders into for one pass.
type BoundAttachment struct {
	Attachment Attachment
	View       hal.TextureView
}

// PassDescriptor assembles the render pass descriptor for one frame's
// bound attachments. The color attachment order is preserved.
func PassDescriptor(label string, colors []BoundAttachment, depth *BoundAttachment) *hal.RenderPassDescriptor {
	desc := &hal.RenderPassDescriptor{Label: label}

	if len(colors) > 0 {
		desc.ColorAttachments = make([]hal.RenderPassColorAttachment, len(colors))
		for i, b := range colors {
			desc.ColorAttachments[i] = b.Attachment.HALColor(b.View)
		}
	}
	if depth != nil {
		desc.DepthStencilAttachment = depth.Attachment.HALDepthStencil(depth.View)
	}

	return desc
}
