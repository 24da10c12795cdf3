package pipecache

import (
	"errors"
	"fmt"
	"log/slog"
)

// Config carries the external collaborators a PipelineCache is built with.
// All fields except RenderPasses are required.
type Config struct {
	// Engine exposes bound shader addresses and register state.
	Engine Engine

	// Memory exposes guest memory reads and address translation.
	Memory Memory

	// Decompiler translates guest shader bytecode.
	Decompiler Decompiler

	// Builder constructs host pipeline objects.
	Builder PipelineBuilder

	// RenderPasses resolves render-pass parameters to host handles.
	// Optional: when nil, builders receive a nil pass handle (WebGPU-style
	// backends have no render-pass objects and ignore it).
	RenderPasses RenderPassResolver
}

func (c *Config) validate() error {
	switch {
	case c.Engine == nil:
		return ErrNilEngine
	case c.Memory == nil:
		return ErrNilMemory
	case c.Decompiler == nil:
		return ErrNilDecompiler
	case c.Builder == nil:
		return ErrNilBuilder
	}
	return nil
}

// CacheStats counts cache traffic. FastPathHits are graphics hits that
// bypassed the map entirely; GraphicsHits counts map hits only.
type CacheStats struct {
	FastPathHits   uint64
	GraphicsHits   uint64
	GraphicsMisses uint64
	ComputeHits    uint64
	ComputeMisses  uint64
}

// HitRate returns the cache hit rate as a fraction (0.0 to 1.0) across
// both pipeline kinds. Fast-path hits count as hits. Returns 0.0 if no
// requests have been made.
func (s CacheStats) HitRate() float64 {
	hits := s.FastPathHits + s.GraphicsHits + s.ComputeHits
	total := hits + s.GraphicsMisses + s.ComputeMisses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// PipelineCache owns the graphics and compute pipeline maps, the shader
// object cache, and the single-entry fast path for the graphics case.
//
// Concurrency: the cache is designed for exclusive use by the one thread
// that consumes the GPU command stream. The maps and the fast-path slot
// are not locked. Shader invalidation originating elsewhere (a host
// memory-write interceptor) must be funneled through the same thread or
// externally serialized before calling Unregister or InvalidateRegion.
//
// Entries are append-only during normal operation: a given key maps to the
// same pipeline object instance for the cache's lifetime. Entries are
// removed only by shader invalidation, Clear, or Destroy.
type PipelineCache struct {
	cfg     Config
	shaders *ShaderCache

	graphics map[GraphicsPipelineKey]*GraphicsPipeline
	compute  map[ComputePipelineKey]*ComputePipeline

	// Reverse index from shader address to the pipeline keys referencing
	// it, used to evict dependent entries when a shader is unregistered.
	graphicsDeps map[GPUVAddr][]GraphicsPipelineKey
	computeDeps  map[GPUVAddr][]ComputePipelineKey

	// Single-entry fast path: the most recently returned graphics
	// key/pipeline pair. Consecutive draws typically repeat the same full
	// pipeline configuration, so an exact key match skips hashing and map
	// lookup entirely.
	lastKey      GraphicsPipelineKey
	lastPipeline *GraphicsPipeline

	// Most recent GetShaders resolution, reused while the bound addresses
	// are unchanged and no invalidation has happened.
	lastAddrs   [MaxShaderPrograms]GPUVAddr
	lastShaders [MaxShaderPrograms]*ShaderObject
	lastValid   bool

	stats CacheStats
}

// New creates a pipeline cache from its collaborators. The cache starts
// empty; pipelines and shaders are created on demand.
func New(cfg Config) (*PipelineCache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &PipelineCache{
		cfg:          cfg,
		shaders:      NewShaderCache(cfg.Engine, cfg.Memory, cfg.Decompiler),
		graphics:     make(map[GraphicsPipelineKey]*GraphicsPipeline),
		compute:      make(map[ComputePipelineKey]*ComputePipeline),
		graphicsDeps: make(map[GPUVAddr][]GraphicsPipelineKey),
		computeDeps:  make(map[GPUVAddr][]ComputePipelineKey),
	}, nil
}

// Shaders exposes the shader object cache.
func (p *PipelineCache) Shaders() *ShaderCache { return p.shaders }

// Stats returns a snapshot of the cache counters.
func (p *PipelineCache) Stats() CacheStats { return p.stats }

// GraphicsPipelineCount returns the number of cached graphics pipelines.
func (p *PipelineCache) GraphicsPipelineCount() int { return len(p.graphics) }

// ComputePipelineCount returns the number of cached compute pipelines.
func (p *PipelineCache) ComputePipelineCount() int { return len(p.compute) }

// GetShaders resolves the engine's currently bound per-stage program
// addresses through the shader cache. A stage with no bound program (zero
// address) yields a nil slot. When the bound addresses are unchanged since
// the previous call, the previous resolution is returned and the shader
// cache is not consulted.
func (p *PipelineCache) GetShaders() ([MaxShaderPrograms]*ShaderObject, error) {
	addrs := p.cfg.Engine.ShaderAddresses()
	if p.lastValid && addrs == p.lastAddrs {
		return p.lastShaders, nil
	}

	var out [MaxShaderPrograms]*ShaderObject
	for i, addr := range addrs {
		if addr == 0 {
			continue
		}
		shader, err := p.resolveShader(StageFromProgram(i), addr)
		if err != nil {
			return out, err
		}
		out[i] = shader
	}

	p.lastAddrs = addrs
	p.lastShaders = out
	p.lastValid = true
	return out, nil
}

// resolveShader translates addr to its host backing and fetches the shader
// through the cache.
func (p *PipelineCache) resolveShader(stage ShaderStage, addr GPUVAddr) (*ShaderObject, error) {
	hostAddr, ok := p.cfg.Memory.HostAddress(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s shader at %#x", ErrUnmappedAddress, stage, uint64(addr))
	}
	return p.shaders.GetOrCreate(stage, addr, hostAddr)
}

// GetGraphicsPipeline returns the pipeline for key, building it on first
// reference.
//
// Lookup order: the single-entry fast path (exact key equality against the
// last returned pair, no hashing, no map access), then the graphics map,
// then a miss build. Once created, a key always resolves to the identical
// pipeline instance; construction failures are returned without inserting
// an entry, so a later identical request retries.
func (p *PipelineCache) GetGraphicsPipeline(key GraphicsPipelineKey) (*GraphicsPipeline, error) {
	if p.lastPipeline != nil && key == p.lastKey {
		p.stats.FastPathHits++
		return p.lastPipeline, nil
	}

	if pipeline, ok := p.graphics[key]; ok {
		p.stats.GraphicsHits++
		p.lastKey = key
		p.lastPipeline = pipeline
		return pipeline, nil
	}

	p.stats.GraphicsMisses++
	pipeline, err := p.buildGraphics(&key)
	if err != nil {
		return nil, err
	}

	p.graphics[key] = pipeline
	for _, addr := range key.Shaders {
		if addr != 0 {
			p.graphicsDeps[addr] = append(p.graphicsDeps[addr], key)
		}
	}
	p.lastKey = key
	p.lastPipeline = pipeline

	Logger().Debug("pipecache: graphics pipeline built",
		slog.Uint64("id", pipeline.ID()),
		slog.Uint64("key_hash", key.Hash()),
		slog.Int("cached", len(p.graphics)))

	return pipeline, nil
}

// buildGraphics performs the miss path: resolve and decompile every
// referenced shader, enumerate the descriptor layout across stages in
// program order, resolve the render pass, and ask the builder for a new
// pipeline object.
func (p *PipelineCache) buildGraphics(key *GraphicsPipelineKey) (*GraphicsPipeline, error) {
	desc := GraphicsBuildDescription{
		Fixed:      key.Fixed,
		RenderPass: key.RenderPass,
	}

	var enum bindingEnumerator
	for i, addr := range key.Shaders {
		if addr == 0 {
			continue
		}
		stage := StageFromProgram(i)
		shader, err := p.resolveShader(stage, addr)
		if err != nil {
			return nil, err
		}
		desc.Shaders[i] = shader
		enum.addShader(stage, shader.Entries())
	}
	desc.Layout = enum.layout

	if p.cfg.RenderPasses != nil {
		pass, err := p.cfg.RenderPasses.ResolveRenderPass(key.RenderPass)
		if err != nil {
			return nil, &PipelineBuildError{Err: err}
		}
		desc.Pass = pass
	}

	pipeline, err := p.cfg.Builder.BuildGraphics(&desc)
	if err != nil {
		return nil, asBuildError(err, false)
	}
	return pipeline, nil
}

// GetComputePipeline returns the pipeline for key, building it on first
// reference. Compute has no fast-path slot: dispatches are less repetitive
// than draws, so a direct map lookup suffices.
func (p *PipelineCache) GetComputePipeline(key ComputePipelineKey) (*ComputePipeline, error) {
	if pipeline, ok := p.compute[key]; ok {
		p.stats.ComputeHits++
		return pipeline, nil
	}

	p.stats.ComputeMisses++

	shader, err := p.resolveShader(StageCompute, key.Shader)
	if err != nil {
		return nil, err
	}

	desc := ComputeBuildDescription{
		Shader:           shader,
		SharedMemorySize: key.SharedMemorySize,
		Workgroup:        key.Workgroup,
		Layout:           EnumerateBindings(StageCompute, shader.Entries()),
	}

	pipeline, err := p.cfg.Builder.BuildCompute(&desc)
	if err != nil {
		return nil, asBuildError(err, true)
	}

	p.compute[key] = pipeline
	p.computeDeps[key.Shader] = append(p.computeDeps[key.Shader], key)

	Logger().Debug("pipecache: compute pipeline built",
		slog.Uint64("id", pipeline.ID()),
		slog.Uint64("gpu_addr", uint64(key.Shader)),
		slog.Int("cached", len(p.compute)))

	return pipeline, nil
}

// asBuildError wraps a builder failure unless it already carries the
// taxonomy type.
func asBuildError(err error, compute bool) error {
	var buildErr *PipelineBuildError
	if errors.As(err, &buildErr) {
		return err
	}
	return &PipelineBuildError{Compute: compute, Err: err}
}

// Unregister removes shader from the shader cache and evicts every
// pipeline entry that references its address. Called by the memory
// invalidation mechanism when the backing range is overwritten; a stale
// shader object must never be reused.
func (p *PipelineCache) Unregister(shader *ShaderObject) {
	if shader == nil {
		return
	}
	p.shaders.Unregister(shader)
	p.evictDependents(shader.GPUAddr())
	p.lastValid = false
}

// evictDependents destroys and removes every pipeline keyed on addr.
func (p *PipelineCache) evictDependents(addr GPUVAddr) {
	for _, key := range p.graphicsDeps[addr] {
		if pipeline, ok := p.graphics[key]; ok {
			if p.lastPipeline == pipeline {
				p.lastPipeline = nil
			}
			pipeline.Destroy()
			delete(p.graphics, key)
		}
	}
	delete(p.graphicsDeps, addr)

	for _, key := range p.computeDeps[addr] {
		if pipeline, ok := p.compute[key]; ok {
			pipeline.Destroy()
			delete(p.compute, key)
		}
	}
	delete(p.computeDeps, addr)
}

// InvalidateRegion unregisters every shader whose backing host range
// intersects [hostAddr, hostAddr+size), evicting dependent pipelines.
func (p *PipelineCache) InvalidateRegion(hostAddr HostVAddr, size uint64) {
	hit := p.shaders.CollectOverlapping(hostAddr, size)
	for _, shader := range hit {
		p.Unregister(shader)
	}
	if len(hit) > 0 {
		Logger().Debug("pipecache: invalidated region",
			slog.Uint64("host_addr", uint64(hostAddr)),
			slog.Uint64("size", size),
			slog.Int("shaders", len(hit)))
	}
}

// Clear destroys and drops every pipeline entry without touching shader
// objects. This is the external full-flush hook for callers that bypass
// per-shader invalidation.
func (p *PipelineCache) Clear() {
	for _, pipeline := range p.graphics {
		pipeline.Destroy()
	}
	for _, pipeline := range p.compute {
		pipeline.Destroy()
	}
	p.graphics = make(map[GraphicsPipelineKey]*GraphicsPipeline)
	p.compute = make(map[ComputePipelineKey]*ComputePipeline)
	p.graphicsDeps = make(map[GPUVAddr][]GraphicsPipelineKey)
	p.computeDeps = make(map[GPUVAddr][]ComputePipelineKey)
	p.lastPipeline = nil
	p.stats = CacheStats{}
}

// Destroy tears the cache down: all pipeline objects are destroyed first,
// then all shader objects are dropped. The cache is reusable afterwards
// but starts cold.
func (p *PipelineCache) Destroy() {
	p.Clear()
	p.shaders.Clear()
	p.lastValid = false
}
