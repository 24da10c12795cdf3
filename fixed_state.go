package pipecache

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Fixed-function state array bounds. These are guest-side limits: the key
// must capture every register slot that can affect pipeline construction,
// so the arrays are fixed-size and part of the comparable value.
const (
	// MaxVertexBuffers is the number of vertex buffer binding slots.
	MaxVertexBuffers = 8

	// MaxVertexAttributes is the number of vertex attribute slots.
	MaxVertexAttributes = 16

	// MaxColorAttachments is the number of render-target slots.
	MaxColorAttachments = 8
)

// VertexBufferState is the fixed-function configuration of one vertex
// buffer binding slot.
type VertexBufferState struct {
	Enabled  bool
	Stride   uint32
	StepMode gputypes.VertexStepMode
}

// VertexAttributeState is the fixed-function configuration of one vertex
// attribute slot.
type VertexAttributeState struct {
	Enabled bool
	Buffer  uint32 // index into the vertex buffer slots
	Offset  uint32 // byte offset within a vertex
	Format  gputypes.VertexFormat
}

// StencilFaceState is the stencil configuration for one face orientation.
type StencilFaceState struct {
	Compare     gputypes.CompareFunction
	FailOp      hal.StencilOperation
	PassOp      hal.StencilOperation
	DepthFailOp hal.StencilOperation
}

// AttachmentBlendState is the blend configuration of one color attachment.
type AttachmentBlendState struct {
	Enabled     bool
	ColorSrc    gputypes.BlendFactor
	ColorDst    gputypes.BlendFactor
	ColorOp     gputypes.BlendOperation
	AlphaSrc    gputypes.BlendFactor
	AlphaDst    gputypes.BlendFactor
	AlphaOp     gputypes.BlendOperation
	WriteRed    bool
	WriteGreen  bool
	WriteBlue   bool
	WriteAlpha  bool
}

// FixedPipelineState is the flat snapshot of every fixed-function register
// that participates in graphics pipeline identity: rasterization, depth and
// stencil, per-attachment blending, and vertex input layout.
//
// The struct is a comparable value type. Key equality is exact field-wise
// comparison (==), never approximate; there are no slices, pointers, or
// padding-sensitive unions in here.
type FixedPipelineState struct {
	Topology  gputypes.PrimitiveTopology
	FrontFace gputypes.FrontFace
	CullMode  gputypes.CullMode

	PrimitiveRestartEnabled bool
	DepthBiasEnabled        bool
	DepthClampEnabled       bool

	DepthTestEnabled  bool
	DepthWriteEnabled bool
	DepthCompare      gputypes.CompareFunction

	StencilEnabled   bool
	StencilFront     StencilFaceState
	StencilBack      StencilFaceState
	StencilReadMask  uint32
	StencilWriteMask uint32

	Blend [MaxColorAttachments]AttachmentBlendState

	VertexBuffers    [MaxVertexBuffers]VertexBufferState
	VertexAttributes [MaxVertexAttributes]VertexAttributeState
}

// Hash returns the FNV-1a hash of the fixed-function state. Fields are
// written in declaration order; equal states always hash equal.
func (s *FixedPipelineState) Hash() uint64 {
	h := newKeyHash()

	hashWriteUint32(h, uint32(s.Topology))
	hashWriteUint32(h, uint32(s.FrontFace))
	hashWriteUint32(h, uint32(s.CullMode))

	hashWriteBool(h, s.PrimitiveRestartEnabled)
	hashWriteBool(h, s.DepthBiasEnabled)
	hashWriteBool(h, s.DepthClampEnabled)

	hashWriteBool(h, s.DepthTestEnabled)
	hashWriteBool(h, s.DepthWriteEnabled)
	hashWriteUint32(h, uint32(s.DepthCompare))

	hashWriteBool(h, s.StencilEnabled)
	for _, face := range [2]StencilFaceState{s.StencilFront, s.StencilBack} {
		hashWriteUint32(h, uint32(face.Compare))
		hashWriteUint32(h, uint32(face.FailOp))
		hashWriteUint32(h, uint32(face.PassOp))
		hashWriteUint32(h, uint32(face.DepthFailOp))
	}
	hashWriteUint32(h, s.StencilReadMask)
	hashWriteUint32(h, s.StencilWriteMask)

	for i := range s.Blend {
		b := &s.Blend[i]
		hashWriteBool(h, b.Enabled)
		hashWriteUint32(h, uint32(b.ColorSrc))
		hashWriteUint32(h, uint32(b.ColorDst))
		hashWriteUint32(h, uint32(b.ColorOp))
		hashWriteUint32(h, uint32(b.AlphaSrc))
		hashWriteUint32(h, uint32(b.AlphaDst))
		hashWriteUint32(h, uint32(b.AlphaOp))
		hashWriteBool(h, b.WriteRed)
		hashWriteBool(h, b.WriteGreen)
		hashWriteBool(h, b.WriteBlue)
		hashWriteBool(h, b.WriteAlpha)
	}

	for i := range s.VertexBuffers {
		vb := &s.VertexBuffers[i]
		hashWriteBool(h, vb.Enabled)
		hashWriteUint32(h, vb.Stride)
		hashWriteUint32(h, uint32(vb.StepMode))
	}
	for i := range s.VertexAttributes {
		va := &s.VertexAttributes[i]
		hashWriteBool(h, va.Enabled)
		hashWriteUint32(h, va.Buffer)
		hashWriteUint32(h, va.Offset)
		hashWriteUint32(h, uint32(va.Format))
	}

	return h.Sum64()
}
