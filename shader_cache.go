package pipecache

import "log/slog"

// codeHeaderWords is the word offset of the entry point inside a graphics
// program: guest graphics programs carry a fixed-size header before the
// first executable instruction. Compute programs have no header.
const codeHeaderWords = 10

// ShaderCache maps GPU virtual address to ShaderObject. Objects are
// created lazily on first reference and removed when the guest overwrites
// their backing memory. The cache guarantees at most one live instance per
// address.
//
// ShaderCache performs no synchronization; see the PipelineCache
// concurrency contract.
type ShaderCache struct {
	engine     Engine
	memory     Memory
	decompiler Decompiler

	shaders map[GPUVAddr]*ShaderObject
}

// NewShaderCache creates a shader cache reading through memory and
// translating through decompiler. engine feeds constant-buffer reads
// recorded in each shader's Registry.
func NewShaderCache(engine Engine, memory Memory, decompiler Decompiler) *ShaderCache {
	return &ShaderCache{
		engine:     engine,
		memory:     memory,
		decompiler: decompiler,
		shaders:    make(map[GPUVAddr]*ShaderObject),
	}
}

// Get returns the cached shader at gpuAddr, or nil.
func (c *ShaderCache) Get(gpuAddr GPUVAddr) *ShaderObject {
	return c.shaders[gpuAddr]
}

// Len returns the number of live shader objects.
func (c *ShaderCache) Len() int { return len(c.shaders) }

// GetOrCreate returns the shader at gpuAddr, decompiling it on first
// reference. hostAddr is the host address of the backing bytes, used to
// match the shader against invalidated ranges.
//
// A decompilation failure is returned as a *DecompileError and nothing is
// cached for the address: the failure is not retried for the same draw,
// but a guest rewrite of the program leads to a fresh attempt.
func (c *ShaderCache) GetOrCreate(stage ShaderStage, gpuAddr GPUVAddr, hostAddr HostVAddr) (*ShaderObject, error) {
	if shader, ok := c.shaders[gpuAddr]; ok {
		return shader, nil
	}

	code, err := c.memory.ReadCode(gpuAddr, MaxProgramWords)
	if err != nil {
		return nil, &DecompileError{Stage: stage, GPUAddr: gpuAddr, Err: err}
	}

	mainOffset := uint32(0)
	if stage != StageCompute {
		mainOffset = codeHeaderWords
	}

	registry := NewRegistry(stage, c.engine)
	decompiled, err := c.decompiler.Decompile(code, stage, mainOffset, registry)
	if err != nil {
		return nil, &DecompileError{Stage: stage, GPUAddr: gpuAddr, Err: err}
	}

	if decompiled.CodeWords > 0 && uint64(decompiled.CodeWords) < uint64(len(code)) {
		code = code[:decompiled.CodeWords]
	}

	shader := &ShaderObject{
		gpuAddr:  gpuAddr,
		hostAddr: hostAddr,
		stage:    stage,
		code:     code,
		module:   decompiled.IR,
		spirv:    decompiled.SPIRV,
		registry: registry,
		entries:  decompiled.Entries,
	}
	c.shaders[gpuAddr] = shader

	Logger().Debug("pipecache: shader decompiled",
		slog.String("stage", stage.String()),
		slog.Uint64("gpu_addr", uint64(gpuAddr)),
		slog.Uint64("size_bytes", shader.SizeInBytes()))

	return shader, nil
}

// Unregister removes shader from the cache. The next reference to its
// address is a fresh miss and triggers a new decompilation.
func (c *ShaderCache) Unregister(shader *ShaderObject) {
	if shader == nil {
		return
	}
	if cached, ok := c.shaders[shader.gpuAddr]; ok && cached == shader {
		delete(c.shaders, shader.gpuAddr)
	}
}

// CollectOverlapping returns every live shader whose backing host range
// intersects [hostAddr, hostAddr+size).
func (c *ShaderCache) CollectOverlapping(hostAddr HostVAddr, size uint64) []*ShaderObject {
	var hit []*ShaderObject
	for _, shader := range c.shaders {
		if shader.overlaps(hostAddr, size) {
			hit = append(hit, shader)
		}
	}
	return hit
}

// Clear drops every shader object.
func (c *ShaderCache) Clear() {
	c.shaders = make(map[GPUVAddr]*ShaderObject)
}
