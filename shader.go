package pipecache

import "github.com/gogpu/naga/ir"

// bytesPerWord is the size of one guest instruction word.
const bytesPerWord = 8

// ConstBufferEntry describes one constant (uniform) buffer a shader
// declares.
type ConstBufferEntry struct {
	// Index is the guest-side constant buffer slot.
	Index uint32

	// Size is the declared byte size, or 0 when the decompiler could not
	// bound it.
	Size uint32
}

// GlobalBufferEntry describes one generic read-write memory buffer. The
// guest addresses these indirectly through a constant buffer slot.
type GlobalBufferEntry struct {
	// CbufIndex and CbufOffset locate the buffer descriptor inside a
	// constant buffer.
	CbufIndex  uint32
	CbufOffset uint32

	// Written is true when the shader stores through the buffer.
	Written bool
}

// SamplerEntry describes one sampled texture. Count is greater than one
// for texture arrays, which still occupy a single binding.
type SamplerEntry struct {
	Index  uint32
	Count  uint32
	Shadow bool
}

// ImageEntry describes one storage image.
type ImageEntry struct {
	Index   uint32
	Count   uint32
	Written bool
}

// ShaderEntries is the ordered list of resource bindings a decompiled
// shader declares, grouped by category. Within each category the slice
// order is the shader's declaration order, which the binding enumeration
// preserves.
type ShaderEntries struct {
	ConstBuffers  []ConstBufferEntry
	GlobalBuffers []GlobalBufferEntry
	Samplers      []SamplerEntry
	Images        []ImageEntry
}

// NumBindings returns the number of descriptor bindings the entries
// consume. Arrays count once: a binding with Count > 1 is still one slot.
func (e *ShaderEntries) NumBindings() int {
	return len(e.ConstBuffers) + len(e.GlobalBuffers) + len(e.Samplers) + len(e.Images)
}

// RegistryKey locates one engine value consumed during decompilation: a
// 32-bit word at Offset inside guest constant buffer Buffer.
type RegistryKey struct {
	Buffer uint32
	Offset uint32
}

// Registry records the engine state a shader's translation depended on.
// The decompiler reads guest constant buffers through Value, and every
// read is recorded so the translation inputs are reproducible.
type Registry struct {
	stage  ShaderStage
	engine Engine
	values map[RegistryKey]uint32
}

// NewRegistry creates a registry for one shader stage, reading through
// engine. engine may be nil for registries replayed from recorded values.
func NewRegistry(stage ShaderStage, engine Engine) *Registry {
	return &Registry{
		stage:  stage,
		engine: engine,
		values: make(map[RegistryKey]uint32),
	}
}

// Stage returns the stage the registry belongs to.
func (r *Registry) Stage() ShaderStage { return r.stage }

// Value returns the engine value at (buffer, offset), recording the read.
// Repeated reads return the recorded value, so one translation observes a
// consistent snapshot even if the engine state changes underneath.
func (r *Registry) Value(buffer, offset uint32) uint32 {
	key := RegistryKey{Buffer: buffer, Offset: offset}
	if v, ok := r.values[key]; ok {
		return v
	}
	var v uint32
	if r.engine != nil {
		v = r.engine.ConstBufferValue(r.stage, buffer, offset)
	}
	r.values[key] = v
	return v
}

// Recorded returns the recorded value at (buffer, offset) without
// consulting the engine.
func (r *Registry) Recorded(buffer, offset uint32) (uint32, bool) {
	v, ok := r.values[RegistryKey{Buffer: buffer, Offset: offset}]
	return v, ok
}

// Len returns the number of recorded values.
func (r *Registry) Len() int { return len(r.values) }

// ShaderObject is one decompiled shader stage read from guest memory.
// Identity is the GPU virtual address: the shader cache guarantees at most
// one live instance per address. Multiple pipeline entries may share one
// object; the object is immutable after creation.
type ShaderObject struct {
	gpuAddr  GPUVAddr
	hostAddr HostVAddr
	stage    ShaderStage
	code     ProgramCode
	module   *ir.Module
	spirv    []uint32
	registry *Registry
	entries  ShaderEntries
}

// GPUAddr returns the shader's identity address in guest GPU memory.
func (s *ShaderObject) GPUAddr() GPUVAddr { return s.gpuAddr }

// HostAddr returns the host address of the backing bytes. It is used only
// to match the shader against invalidated host ranges.
func (s *ShaderObject) HostAddr() HostVAddr { return s.hostAddr }

// Stage returns the shader's stage tag.
func (s *ShaderObject) Stage() ShaderStage { return s.stage }

// Code returns the guest program bytecode.
func (s *ShaderObject) Code() ProgramCode { return s.code }

// IR returns the decompiled intermediate representation.
func (s *ShaderObject) IR() *ir.Module { return s.module }

// SPIRV returns the translated host shader program.
func (s *ShaderObject) SPIRV() []uint32 { return s.spirv }

// Registry returns the engine values the translation consumed.
func (s *ShaderObject) Registry() *Registry { return s.registry }

// Entries returns the shader's declared resource bindings.
func (s *ShaderObject) Entries() ShaderEntries { return s.entries }

// SizeInBytes returns the byte length of the guest program.
func (s *ShaderObject) SizeInBytes() uint64 {
	return uint64(len(s.code)) * bytesPerWord
}

// overlaps reports whether the shader's backing host range intersects
// [addr, addr+size).
func (s *ShaderObject) overlaps(addr HostVAddr, size uint64) bool {
	end := uint64(s.hostAddr) + s.SizeInBytes()
	return uint64(addr) < end && uint64(s.hostAddr) < uint64(addr)+size
}
