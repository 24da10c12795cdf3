package pipecache

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// shaderEntryPoint is the entry-point name of every translated program.
// The decompiler emits a single entry point named "main" per stage.
const shaderEntryPoint = "main"

// HALBuilder is the production PipelineBuilder: it constructs pipelines on
// a gogpu/wgpu HAL device from the translated SPIR-V programs and the
// enumerated descriptor layout.
//
// The HAL has no tessellation or geometry stages; graphics descriptions
// that bind those program slots fail with a PipelineBuildError.
type HALBuilder struct {
	device hal.Device
}

// NewHALBuilder creates a builder on device.
func NewHALBuilder(device hal.Device) (*HALBuilder, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &HALBuilder{device: device}, nil
}

// halGraphicsResources tracks partially created objects so a failed build
// releases everything it made, in reverse creation order.
type halResources struct {
	device     hal.Device
	modules    []hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
}

func (r *halResources) destroy() {
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	for _, m := range r.modules {
		if m != nil {
			r.device.DestroyShaderModule(m)
		}
	}
	r.modules = nil
}

// createLayouts builds the bind group layout and pipeline layout for the
// enumerated descriptor layout.
func (b *HALBuilder) createLayouts(label string, layout DescriptorLayout, res *halResources) error {
	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: layout.Entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	res.bindLayout = bindLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	res.pipeLayout = pipeLayout
	return nil
}

// createModule compiles one translated program into a HAL shader module.
func (b *HALBuilder) createModule(label string, shader *ShaderObject, res *halResources) (hal.ShaderModule, error) {
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: shader.SPIRV()},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s shader module: %w", shader.Stage(), err)
	}
	res.modules = append(res.modules, module)
	return module, nil
}

// BuildGraphics constructs a graphics pipeline from the description.
func (b *HALBuilder) BuildGraphics(desc *GraphicsBuildDescription) (*GraphicsPipeline, error) {
	for i, shader := range desc.Shaders {
		stage := StageFromProgram(i)
		if shader != nil && stage != StageVertex && stage != StageFragment {
			return nil, &PipelineBuildError{
				Err: fmt.Errorf("%s stage is not supported by the HAL backend", stage),
			}
		}
	}
	vertex := desc.Shaders[StageVertex]
	if vertex == nil {
		return nil, &PipelineBuildError{Err: fmt.Errorf("graphics pipeline has no vertex shader")}
	}

	res := halResources{device: b.device}

	vertexModule, err := b.createModule("pipecache_vertex", vertex, &res)
	if err != nil {
		res.destroy()
		return nil, &PipelineBuildError{Err: err}
	}

	var fragmentModule hal.ShaderModule
	if fragment := desc.Shaders[StageFragment]; fragment != nil {
		fragmentModule, err = b.createModule("pipecache_fragment", fragment, &res)
		if err != nil {
			res.destroy()
			return nil, &PipelineBuildError{Err: err}
		}
	}

	if err := b.createLayouts("pipecache_graphics", desc.Layout, &res); err != nil {
		res.destroy()
		return nil, &PipelineBuildError{Err: err}
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  "pipecache_graphics_pipeline",
		Layout: res.pipeLayout,
		Vertex: hal.VertexState{
			Module:     vertexModule,
			EntryPoint: shaderEntryPoint,
			Buffers:    vertexBufferLayouts(&desc.Fixed),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Fixed.Topology,
			FrontFace: desc.Fixed.FrontFace,
			CullMode:  desc.Fixed.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: sampleCount(&desc.RenderPass),
			Mask:  0xFFFFFFFF,
		},
	}

	if fragmentModule != nil {
		halDesc.Fragment = &hal.FragmentState{
			Module:     fragmentModule,
			EntryPoint: shaderEntryPoint,
			Targets:    colorTargets(&desc.Fixed, &desc.RenderPass),
		}
	}

	if desc.RenderPass.HasDepth() {
		halDesc.DepthStencil = depthStencilState(&desc.Fixed, &desc.RenderPass)
	}

	pipeline, err := b.device.CreateRenderPipeline(halDesc)
	if err != nil {
		res.destroy()
		return nil, &PipelineBuildError{Err: fmt.Errorf("create render pipeline: %w", err)}
	}

	device := b.device
	return NewGraphicsPipeline(desc.Layout, pipeline, func() {
		device.DestroyRenderPipeline(pipeline)
		res.destroy()
	}), nil
}

// BuildCompute constructs a compute pipeline from the description.
func (b *HALBuilder) BuildCompute(desc *ComputeBuildDescription) (*ComputePipeline, error) {
	if desc.Shader == nil {
		return nil, &PipelineBuildError{Compute: true, Err: fmt.Errorf("compute pipeline has no shader")}
	}

	res := halResources{device: b.device}

	module, err := b.createModule("pipecache_compute", desc.Shader, &res)
	if err != nil {
		res.destroy()
		return nil, &PipelineBuildError{Compute: true, Err: err}
	}

	if err := b.createLayouts("pipecache_compute", desc.Layout, &res); err != nil {
		res.destroy()
		return nil, &PipelineBuildError{Compute: true, Err: err}
	}

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "pipecache_compute_pipeline",
		Layout: res.pipeLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: shaderEntryPoint,
		},
	})
	if err != nil {
		res.destroy()
		return nil, &PipelineBuildError{Compute: true, Err: fmt.Errorf("create compute pipeline: %w", err)}
	}

	device := b.device
	return NewComputePipeline(desc.Layout, desc.Workgroup, pipeline, func() {
		device.DestroyComputePipeline(pipeline)
		res.destroy()
	}), nil
}

// vertexBufferLayouts converts the fixed-function vertex input state into
// HAL vertex buffer layouts. Disabled slots are skipped; attribute order
// within a buffer follows slot order.
func vertexBufferLayouts(fixed *FixedPipelineState) []gputypes.VertexBufferLayout {
	var layouts []gputypes.VertexBufferLayout
	for bufIdx := range fixed.VertexBuffers {
		vb := &fixed.VertexBuffers[bufIdx]
		if !vb.Enabled {
			continue
		}
		layout := gputypes.VertexBufferLayout{
			ArrayStride: uint64(vb.Stride),
			StepMode:    vb.StepMode,
		}
		for attrIdx := range fixed.VertexAttributes {
			va := &fixed.VertexAttributes[attrIdx]
			if !va.Enabled || va.Buffer != uint32(bufIdx) {
				continue
			}
			layout.Attributes = append(layout.Attributes, gputypes.VertexAttribute{
				ShaderLocation: uint32(attrIdx),
				Format:         va.Format,
				Offset:         uint64(va.Offset),
			})
		}
		layouts = append(layouts, layout)
	}
	return layouts
}

// colorTargets builds one color target per render-pass color attachment,
// applying the per-attachment blend state.
func colorTargets(fixed *FixedPipelineState, pass *RenderPassParams) []gputypes.ColorTargetState {
	n := int(pass.NumColors)
	if n > MaxColorAttachments {
		n = MaxColorAttachments
	}
	targets := make([]gputypes.ColorTargetState, 0, n)
	for i := 0; i < n; i++ {
		blend := &fixed.Blend[i]

		target := gputypes.ColorTargetState{Format: pass.ColorFormats[i]}

		mask := gputypes.ColorWriteMaskNone
		if blend.WriteRed && blend.WriteGreen && blend.WriteBlue && blend.WriteAlpha {
			mask = gputypes.ColorWriteMaskAll
		}
		target.WriteMask = mask

		if blend.Enabled {
			target.Blend = &gputypes.BlendState{
				Color: gputypes.BlendComponent{
					SrcFactor: blend.ColorSrc,
					DstFactor: blend.ColorDst,
					Operation: blend.ColorOp,
				},
				Alpha: gputypes.BlendComponent{
					SrcFactor: blend.AlphaSrc,
					DstFactor: blend.AlphaDst,
					Operation: blend.AlphaOp,
				},
			}
		}

		targets = append(targets, target)
	}
	return targets
}

// depthStencilState maps the fixed-function depth/stencil registers onto
// the HAL state for the pass's depth attachment.
func depthStencilState(fixed *FixedPipelineState, pass *RenderPassParams) *hal.DepthStencilState {
	state := &hal.DepthStencilState{
		Format:            pass.DepthFormat,
		DepthWriteEnabled: fixed.DepthWriteEnabled,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      halStencilFace(disabledStencilFace()),
		StencilBack:       halStencilFace(disabledStencilFace()),
		StencilReadMask:   fixed.StencilReadMask,
		StencilWriteMask:  fixed.StencilWriteMask,
	}
	if fixed.DepthTestEnabled {
		state.DepthCompare = fixed.DepthCompare
	}
	if fixed.StencilEnabled {
		state.StencilFront = halStencilFace(fixed.StencilFront)
		state.StencilBack = halStencilFace(fixed.StencilBack)
	}
	return state
}

// disabledStencilFace is the pass-through face used when the guest has
// stencil testing disabled.
func disabledStencilFace() StencilFaceState {
	return StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
	}
}

func halStencilFace(face StencilFaceState) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     face.Compare,
		FailOp:      face.FailOp,
		DepthFailOp: face.DepthFailOp,
		PassOp:      face.PassOp,
	}
}

// sampleCount returns the pass's MSAA sample count, defaulting to 1.
func sampleCount(pass *RenderPassParams) uint32 {
	if pass.SampleCount == 0 {
		return 1
	}
	return uint32(pass.SampleCount)
}
