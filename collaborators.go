package pipecache

import "github.com/gogpu/naga/ir"

// MaxProgramWords bounds how much bytecode the shader cache reads for one
// program when the decompiler has not yet reported the real length.
const MaxProgramWords = 0x2000

// Engine exposes the guest engine state the cache consumes per draw: the
// currently bound per-stage shader addresses, the fixed-function register
// snapshot, and constant-buffer reads performed during decompilation.
type Engine interface {
	// ShaderAddresses returns the bound program address per graphics
	// stage. A zero address means the stage has no bound program.
	ShaderAddresses() [MaxShaderPrograms]GPUVAddr

	// FixedState snapshots the fixed-function registers.
	FixedState() FixedPipelineState

	// RenderPassParams snapshots the current attachment configuration.
	RenderPassParams() RenderPassParams

	// ConstBufferValue reads one 32-bit word from a guest constant
	// buffer. Called through a Registry during decompilation.
	ConstBufferValue(stage ShaderStage, buffer, offset uint32) uint32
}

// Memory exposes byte-level reads of guest GPU memory.
type Memory interface {
	// ReadCode reads up to maxWords 64-bit words starting at gpuAddr.
	// Short reads at the end of a mapping are not an error; the
	// decompiler detects the program end.
	ReadCode(gpuAddr GPUVAddr, maxWords uint32) (ProgramCode, error)

	// HostAddress translates a guest address to the host address of its
	// backing bytes, used to register shaders for invalidation.
	HostAddress(gpuAddr GPUVAddr) (HostVAddr, bool)
}

// DecompiledShader is the decompiler's output for one program.
type DecompiledShader struct {
	// IR is the derived intermediate representation.
	IR *ir.Module

	// SPIRV is the translated host shader program.
	SPIRV []uint32

	// Entries are the resource bindings the program declares.
	Entries ShaderEntries

	// CodeWords is the number of guest words the program actually
	// occupies, when the decompiler can detect the end. Zero means
	// unknown; the cache then keeps everything it read.
	CodeWords uint32
}

// Decompiler translates guest shader bytecode. Implementations are
// synchronous and CPU-bound; a translation either completes or fails for
// that program, with no cancellation semantics.
type Decompiler interface {
	// Decompile builds IR, a translated program, and resource entries
	// from the bytecode of one stage. mainOffset is the word offset of
	// the program's entry point. Engine values needed during translation
	// are read through registry. Failures are wrapped by the cache into
	// a DecompileError.
	Decompile(code ProgramCode, stage ShaderStage, mainOffset uint32, registry *Registry) (*DecompiledShader, error)
}

// GraphicsBuildDescription carries everything the builder collaborator
// needs to construct one graphics pipeline.
type GraphicsBuildDescription struct {
	Fixed      FixedPipelineState
	RenderPass RenderPassParams

	// Pass is the resolved render-pass handle for RenderPass.
	Pass RenderPass

	// Shaders holds the resolved shader per program slot; unused slots
	// are nil.
	Shaders [MaxShaderPrograms]*ShaderObject

	// Layout is the descriptor layout enumerated from the shaders.
	Layout DescriptorLayout
}

// ComputeBuildDescription carries everything the builder collaborator
// needs to construct one compute pipeline.
type ComputeBuildDescription struct {
	Shader           *ShaderObject
	SharedMemorySize uint32
	Workgroup        [3]uint32
	Layout           DescriptorLayout
}

// PipelineBuilder constructs host pipeline objects. Failures are wrapped
// by the cache into PipelineBuildError and the entry is not cached.
type PipelineBuilder interface {
	BuildGraphics(desc *GraphicsBuildDescription) (*GraphicsPipeline, error)
	BuildCompute(desc *ComputeBuildDescription) (*ComputePipeline, error)
}
