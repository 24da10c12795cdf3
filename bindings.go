package pipecache

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// DescriptorCategory classifies one descriptor binding.
type DescriptorCategory uint8

// Categories in enumeration order. The order is a contract: bindings are
// assigned category by category, and descriptor-update machinery depends
// on it matching the pipeline layout.
const (
	CategoryConstBuffer DescriptorCategory = iota
	CategoryGlobalBuffer
	CategorySampledTexture
	CategoryStorageImage
)

func (c DescriptorCategory) String() string {
	switch c {
	case CategoryConstBuffer:
		return "const_buffer"
	case CategoryGlobalBuffer:
		return "global_buffer"
	case CategorySampledTexture:
		return "sampled_texture"
	case CategoryStorageImage:
		return "storage_image"
	default:
		return "unknown"
	}
}

// descriptorStride is the byte stride of one descriptor slot in the update
// template consumed by the descriptor-update queue.
const descriptorStride = 32

// TemplateEntry is one row of the descriptor-update template: a binding
// index, the byte offset of its payload in the update buffer, the resource
// category, and the array count. Arrays consume one binding with Count > 1.
type TemplateEntry struct {
	Binding  uint32
	Offset   uint32
	Count    uint32
	Category DescriptorCategory
	Stage    ShaderStage
}

// DescriptorLayout is the enumerated binding layout of one pipeline:
// the update template plus the host bind-group layout entries derived
// from it.
type DescriptorLayout struct {
	Template []TemplateEntry
	Entries  []gputypes.BindGroupLayoutEntry
}

// bindingEnumerator assigns contiguous binding indices and template byte
// offsets across the stages of one pipeline. Counters run across stages:
// the fragment stage's first binding follows the vertex stage's last.
type bindingEnumerator struct {
	binding uint32
	offset  uint32
	layout  DescriptorLayout
}

// add appends one binding and its layout entry.
func (e *bindingEnumerator) add(stage ShaderStage, category DescriptorCategory, count uint32, entry gputypes.BindGroupLayoutEntry) {
	if count == 0 {
		count = 1
	}
	entry.Binding = e.binding
	e.layout.Template = append(e.layout.Template, TemplateEntry{
		Binding:  e.binding,
		Offset:   e.offset,
		Count:    count,
		Category: category,
		Stage:    stage,
	})
	e.layout.Entries = append(e.layout.Entries, entry)
	e.binding++
	e.offset += count * descriptorStride
}

// addShader enumerates one shader's entries in the fixed category order:
// constant buffers, then global buffers, then sampled textures, then
// storage images. Within a category, declaration order is preserved.
//
// A duplicate (category, index) pair in the entries is a contract
// violation by the decompiler and panics.
func (e *bindingEnumerator) addShader(stage ShaderStage, entries ShaderEntries) {
	// The host API has no tessellation or geometry stages; those programs
	// never reach a host pipeline, so their entries fold into the vertex
	// flag purely for enumeration completeness.
	visibility := gputypes.ShaderStageVertex
	switch stage {
	case StageFragment:
		visibility = gputypes.ShaderStageFragment
	case StageCompute:
		visibility = gputypes.ShaderStageCompute
	}

	seen := make(map[uint32]struct{}, len(entries.ConstBuffers))
	for _, cb := range entries.ConstBuffers {
		if _, dup := seen[cb.Index]; dup {
			panic(fmt.Sprintf("pipecache: duplicate const buffer %d in %s shader entries", cb.Index, stage))
		}
		seen[cb.Index] = struct{}{}
		e.add(stage, CategoryConstBuffer, 1, gputypes.BindGroupLayoutEntry{
			Visibility: visibility,
			Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeUniform,
			},
		})
	}

	for _, gb := range entries.GlobalBuffers {
		bufType := gputypes.BufferBindingTypeReadOnlyStorage
		if gb.Written {
			bufType = gputypes.BufferBindingTypeStorage
		}
		e.add(stage, CategoryGlobalBuffer, 1, gputypes.BindGroupLayoutEntry{
			Visibility: visibility,
			Buffer:     &gputypes.BufferBindingLayout{Type: bufType},
		})
	}

	seen = make(map[uint32]struct{}, len(entries.Samplers))
	for _, smp := range entries.Samplers {
		if _, dup := seen[smp.Index]; dup {
			panic(fmt.Sprintf("pipecache: duplicate sampler %d in %s shader entries", smp.Index, stage))
		}
		seen[smp.Index] = struct{}{}
		e.add(stage, CategorySampledTexture, smp.Count, gputypes.BindGroupLayoutEntry{
			Visibility: visibility,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}

	seen = make(map[uint32]struct{}, len(entries.Images))
	for _, img := range entries.Images {
		if _, dup := seen[img.Index]; dup {
			panic(fmt.Sprintf("pipecache: duplicate image %d in %s shader entries", img.Index, stage))
		}
		seen[img.Index] = struct{}{}
		e.add(stage, CategoryStorageImage, img.Count, gputypes.BindGroupLayoutEntry{
			Visibility: visibility,
			StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessReadWrite,
				Format:        gputypes.TextureFormatRGBA8Unorm,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
}

// EnumerateBindings assigns binding indices and template offsets for a
// single shader's entries, starting at binding 0 and offset 0.
//
// The ordering contract: constant buffers first, then global buffers,
// then sampled textures, then storage images; within a category, the
// declaration order of the entries. Binding indices increment by one per
// declared resource regardless of array count; offsets increment by
// Count times the descriptor stride.
//
// EnumerateBindings is pure. Its only failure mode is a duplicate
// (category, index) pair, which is a programming-contract violation and
// panics rather than returning an error.
func EnumerateBindings(stage ShaderStage, entries ShaderEntries) DescriptorLayout {
	var e bindingEnumerator
	e.addShader(stage, entries)
	return e.layout
}
