package pipecache

import (
	"errors"
	"fmt"
)

// Programmer errors: invalid construction or contract violations that are
// bugs in the caller, not runtime failures.
var (
	// ErrNilEngine is returned by New when Config.Engine is nil.
	ErrNilEngine = errors.New("pipecache: engine is nil")

	// ErrNilMemory is returned by New when Config.Memory is nil.
	ErrNilMemory = errors.New("pipecache: memory is nil")

	// ErrNilDecompiler is returned by New when Config.Decompiler is nil.
	ErrNilDecompiler = errors.New("pipecache: decompiler is nil")

	// ErrNilBuilder is returned by New when Config.Builder is nil.
	ErrNilBuilder = errors.New("pipecache: pipeline builder is nil")

	// ErrNilDevice is returned by NewHALBuilder when the device is nil.
	ErrNilDevice = errors.New("pipecache: HAL device is nil")

	// ErrUnmappedAddress is returned when a bound shader address has no
	// host backing according to the memory collaborator.
	ErrUnmappedAddress = errors.New("pipecache: shader address is not mapped")
)

// DecompileError reports that the decompiler could not produce valid IR for
// a shader program. It is surfaced to the caller and never retried: the
// same bytecode would fail the same way. The failed address is not cached,
// so a guest rewrite of the program leads to a fresh attempt.
type DecompileError struct {
	Stage   ShaderStage
	GPUAddr GPUVAddr
	Err     error
}

func (e *DecompileError) Error() string {
	return fmt.Sprintf("pipecache: decompile %s shader at %#x: %v", e.Stage, uint64(e.GPUAddr), e.Err)
}

func (e *DecompileError) Unwrap() error { return e.Err }

// PipelineBuildError reports that the pipeline-builder collaborator
// rejected a fixed-state/layout combination. The entry is not inserted into
// the cache, so an identical request after the input state is fixed will
// retry construction.
type PipelineBuildError struct {
	Compute bool // true for compute pipelines, false for graphics
	Err     error
}

func (e *PipelineBuildError) Error() string {
	kind := "graphics"
	if e.Compute {
		kind = "compute"
	}
	return fmt.Sprintf("pipecache: build %s pipeline: %v", kind, e.Err)
}

func (e *PipelineBuildError) Unwrap() error { return e.Err }
