package pipecache

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func TestGraphicsKeyEquality(t *testing.T) {
	base := testGraphicsKey(0x1000, 0x2000)
	same := testGraphicsKey(0x1000, 0x2000)

	if base != same {
		t.Error("field-wise identical keys compare unequal")
	}
	if base.Hash() != same.Hash() {
		t.Error("equal keys hash differently")
	}

	mutations := []struct {
		name   string
		mutate func(*GraphicsPipelineKey)
	}{
		{"shader address", func(k *GraphicsPipelineKey) { k.Shaders[StageVertex] = 0x9000 }},
		{"unbinding a stage", func(k *GraphicsPipelineKey) { k.Shaders[StageFragment] = 0 }},
		{"topology", func(k *GraphicsPipelineKey) { k.Fixed.Topology = gputypes.PrimitiveTopologyLineList }},
		{"cull mode", func(k *GraphicsPipelineKey) { k.Fixed.CullMode = gputypes.CullModeBack }},
		{"depth compare", func(k *GraphicsPipelineKey) {
			k.Fixed.DepthTestEnabled = true
			k.Fixed.DepthCompare = gputypes.CompareFunctionLess
		}},
		{"stencil face op", func(k *GraphicsPipelineKey) {
			k.Fixed.StencilFront.FailOp = hal.StencilOperationInvert
		}},
		{"blend factor", func(k *GraphicsPipelineKey) {
			k.Fixed.Blend[0].Enabled = true
			k.Fixed.Blend[0].ColorSrc = gputypes.BlendFactorOne
		}},
		{"vertex attribute", func(k *GraphicsPipelineKey) {
			k.Fixed.VertexAttributes[3].Enabled = true
			k.Fixed.VertexAttributes[3].Format = gputypes.VertexFormatFloat32x4
		}},
		{"color format", func(k *GraphicsPipelineKey) {
			k.RenderPass.ColorFormats[0] = gputypes.TextureFormatRGBA8Unorm
		}},
		{"depth format", func(k *GraphicsPipelineKey) {
			k.RenderPass.DepthFormat = gputypes.TextureFormatDepth24PlusStencil8
		}},
		{"sample count", func(k *GraphicsPipelineKey) { k.RenderPass.SampleCount = 4 }},
	}
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			mutated := base
			tt.mutate(&mutated)
			if mutated == base {
				t.Fatal("mutation did not change the key")
			}
			if mutated.Hash() == base.Hash() {
				t.Error("mutated key hashes equal to the original")
			}
		})
	}
}

func TestGraphicsKeyHashOrderSensitive(t *testing.T) {
	forward := testGraphicsKey(0x1000, 0x2000)
	swapped := testGraphicsKey(0x2000, 0x1000)

	if forward.Hash() == swapped.Hash() {
		t.Error("swapping program slots kept the hash, want order-sensitive digest")
	}
}

func TestGraphicsKeyHashStable(t *testing.T) {
	key := testGraphicsKey(0x1000, 0x2000)
	first := key.Hash()
	for i := 0; i < 8; i++ {
		if got := key.Hash(); got != first {
			t.Fatalf("Hash() = %#x on iteration %d, want stable %#x", got, i, first)
		}
	}
}

func TestComputeKeyEquality(t *testing.T) {
	base := ComputePipelineKey{Shader: 0x1000, SharedMemorySize: 256, Workgroup: [3]uint32{8, 8, 1}}
	same := ComputePipelineKey{Shader: 0x1000, SharedMemorySize: 256, Workgroup: [3]uint32{8, 8, 1}}

	if base != same {
		t.Error("field-wise identical keys compare unequal")
	}
	if base.Hash() != same.Hash() {
		t.Error("equal keys hash differently")
	}

	// The same program dispatched with different workgroup dimensions is a
	// distinct pipeline identity.
	variant := base
	variant.Workgroup = [3]uint32{8, 1, 1}
	if variant == base {
		t.Error("workgroup change did not change the key")
	}
	if variant.Hash() == base.Hash() {
		t.Error("workgroup change kept the hash")
	}

	shared := base
	shared.SharedMemorySize = 512
	if shared == base || shared.Hash() == base.Hash() {
		t.Error("shared memory size does not participate in identity")
	}
}
