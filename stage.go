package pipecache

import "github.com/gogpu/naga/ir"

// GPUVAddr is an address in the guest GPU's own virtual memory space.
// It is distinct from host process memory: shader identity is defined by
// GPU virtual address, never by host pointer.
type GPUVAddr uint64

// HostVAddr is the host-side address of the memory backing a guest range.
// Used only to register shaders for invalidation when the range is written.
type HostVAddr uint64

// ProgramCode is raw guest shader bytecode as an ordered sequence of
// 64-bit instruction words.
type ProgramCode []uint64

// ShaderStage identifies one programmable stage of the guest pipeline.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute

	// MaxShaderPrograms is the number of graphics program slots in a
	// GraphicsPipelineKey, one per graphics stage. StageCompute is keyed
	// separately and has no slot.
	MaxShaderPrograms = int(StageCompute)
)

// StageFromProgram maps a graphics program slot index to its stage.
// Slot i of GraphicsPipelineKey.Shaders holds the program for stage i.
func StageFromProgram(program int) ShaderStage {
	return ShaderStage(program)
}

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageTessControl:
		return "tess_control"
	case StageTessEval:
		return "tess_eval"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// IRStage returns the naga IR stage corresponding to s, and false for
// stages the IR has no representation for (tessellation, geometry).
func (s ShaderStage) IRStage() (ir.ShaderStage, bool) {
	switch s {
	case StageVertex:
		return ir.StageVertex, true
	case StageFragment:
		return ir.StageFragment, true
	case StageCompute:
		return ir.StageCompute, true
	default:
		return 0, false
	}
}
