// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Usage is what an attachment's texture is used for after the pass ends.
type Usage int

const (
	// UsageGeneral leaves the texture available for arbitrary reads and
	// writes after the pass.
	UsageGeneral Usage = iota

	// UsagePresent hands the texture to the presentation engine.
	UsagePresent

	// UsageDepthStencil keeps the texture bound as a depth/stencil
	// target for later passes.
	UsageDepthStencil
)

// String returns the usage name for logs and errors.
func (u Usage) String() string {
	switch u {
	case UsageGeneral:
		return "general"
	case UsagePresent:
		return "present"
	case UsageDepthStencil:
		return "depth-stencil"
	default:
		return "unknown"
	}
}

// Blending selects the fragment blend equation for a color target.
type Blending int

const (
	// BlendNone writes fragments opaquely.
	BlendNone Blending = iota

	// BlendAlpha is source-over with straight alpha.
	BlendAlpha

	// BlendAdditive accumulates fragment color into the target.
	BlendAdditive

	// BlendPremultiplied is source-over with premultiplied alpha.
	BlendPremultiplied
)

// String returns the blend mode name for logs and errors.
func (b Blending) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendAlpha:
		return "alpha"
	case BlendAdditive:
		return "additive"
	case BlendPremultiplied:
		return "premultiplied"
	default:
		return "unknown"
	}
}

// State returns the blend state for a color target, or nil when
// blending is disabled.
func (b Blending) State() *gputypes.BlendState {
	switch b {
	case BlendAlpha:
		return &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		}
	case BlendAdditive:
		return &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOne,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOne,
				Operation: gputypes.BlendOperationAdd,
			},
		}
	case BlendPremultiplied:
		s := gputypes.BlendStatePremultiplied()
		return &s
	default:
		return nil
	}
}

// Attachment describes one render target: its format, how it is loaded
// and stored, how fragments blend into it, and what its texture is used
// for after the pass. Build values with ColorAttachment or
// DepthAttachment; the zero value is a blend-free color target that
// preserves existing contents.
type Attachment struct {
	// Format is the texel format of the target texture.
	Format gputypes.TextureFormat

	// Blending is the fragment blend equation. Ignored for depth
	// targets.
	Blending Blending

	// Clear, when non-nil, clears a color target to this value at pass
	// start. Nil preserves the existing contents.
	Clear *gputypes.Color

	// ClearDepth, when non-nil, clears a depth target to this value at
	// pass start. Nil preserves the existing contents.
	ClearDepth *float32

	// Usage is the post-pass usage intent of the texture.
	Usage Usage

	depth bool
}

// AttachmentOption configures an Attachment during construction.
type AttachmentOption func(*Attachment)

// WithClear clears the color target to c at pass start. Without it the
// target loads its previous contents.
func WithClear(c gputypes.Color) AttachmentOption {
	return func(a *Attachment) { a.Clear = &c }
}

// WithClearDepth clears the depth target to d at pass start. Without it
// the target loads its previous contents.
func WithClearDepth(d float32) AttachmentOption {
	return func(a *Attachment) { a.ClearDepth = &d }
}

// WithBlending sets the fragment blend equation of a color target.
func WithBlending(b Blending) AttachmentOption {
	return func(a *Attachment) { a.Blending = b }
}

// ForPresentation marks the texture as presented after the pass.
func ForPresentation() AttachmentOption {
	return func(a *Attachment) { a.Usage = UsagePresent }
}

// ColorAttachment describes a color render target.
func ColorAttachment(format gputypes.TextureFormat, opts ...AttachmentOption) Attachment {
	a := Attachment{Format: format, Usage: UsageGeneral}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// DepthAttachment describes a depth/stencil render target.
func DepthAttachment(format gputypes.TextureFormat, opts ...AttachmentOption) Attachment {
	a := Attachment{Format: format, Usage: UsageDepthStencil, depth: true}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// IsDepth reports whether the attachment was built by DepthAttachment.
func (a Attachment) IsDepth() bool { return a.depth }

// LoadOp returns the pass-start operation: clear when a clear value is
// configured, load otherwise.
func (a Attachment) LoadOp() gputypes.LoadOp {
	if a.depth {
		if a.ClearDepth != nil {
			return gputypes.LoadOpClear
		}
		return gputypes.LoadOpLoad
	}
	if a.Clear != nil {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

// StoreOp returns the pass-end operation. Attachment contents are
// always stored; transient targets are not modeled.
func (a Attachment) StoreOp() gputypes.StoreOp {
	return gputypes.StoreOpStore
}

// ColorTarget returns the pipeline color target state for the
// attachment.
func (a Attachment) ColorTarget() gputypes.ColorTargetState {
	return gputypes.ColorTargetState{
		Format:    a.Format,
		Blend:     a.Blending.State(),
		WriteMask: gputypes.ColorWriteMaskAll,
	}
}

// HALColor returns the attachment in render pass form, bound to the
// texture view it renders into.
func (a Attachment) HALColor(view hal.TextureView) hal.RenderPassColorAttachment {
	out := hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  a.LoadOp(),
		StoreOp: a.StoreOp(),
	}
	if a.Clear != nil {
		out.ClearValue = *a.Clear
	}
	return out
}

// HALDepthStencil returns the attachment in depth/stencil render pass
// form. Stencil contents load as-is and are discarded at pass end; the
// stage never reads them back.
func (a Attachment) HALDepthStencil(view hal.TextureView) *hal.RenderPassDepthStencilAttachment {
	out := &hal.RenderPassDepthStencilAttachment{
		View:            view,
		DepthLoadOp:     a.LoadOp(),
		DepthStoreOp:    a.StoreOp(),
		DepthClearValue: 1.0,
		StencilLoadOp:   gputypes.LoadOpLoad,
		StencilStoreOp:  gputypes.StoreOpDiscard,
	}
	if a.ClearDepth != nil {
		out.DepthClearValue = *a.ClearDepth
	}
	return out
}
