// Package pipecache caches compiled graphics and compute pipelines for a
// GPU command-stream translator.
//
// # Overview
//
// A command-stream translator maps a console GPU's shader programs and
// fixed-function register state onto a host graphics API. Pipeline creation
// on the host side is expensive (shader translation plus driver validation),
// so the translator must never rebuild an equivalent pipeline twice. This
// package provides the caching and identity contracts around that work:
//
//   - ShaderCache: GPU virtual address → decompiled ShaderObject, created on
//     first reference and dropped when the backing guest memory is written.
//   - PipelineCache: exact-match graphics and compute pipeline maps with a
//     single-entry fast path for the common "nothing changed since the last
//     draw" case.
//   - GraphicsPipelineKey / ComputePipelineKey: comparable value types with
//     exact field-wise equality and a stable, order-sensitive FNV-1a hash.
//   - EnumerateBindings: the deterministic descriptor-binding enumeration
//     consumed by descriptor-set update machinery.
//
// # Quick Start
//
//	builder, err := pipecache.NewHALBuilder(device)
//	if err != nil {
//	    return err
//	}
//	cache, err := pipecache.New(pipecache.Config{
//	    Engine:       engine,     // bound shader addresses + register state
//	    Memory:       memory,     // guest memory reads
//	    Decompiler:   wgsldec.New(),
//	    Builder:      builder,
//	    RenderPasses: passes,
//	})
//	if err != nil {
//	    return err
//	}
//	defer cache.Destroy()
//
//	// Per draw:
//	shaders, err := cache.GetShaders()
//	key := pipecache.GraphicsPipelineKey{ ... }
//	pipeline, err := cache.GetGraphicsPipeline(key)
//
// # Architecture
//
// The cache is a library, not a service: it is constructed with its external
// collaborators (engine state, guest memory, decompiler, pipeline builder,
// render-pass resolver) and owns nothing else. All pipeline and shader
// lookups happen on the single thread that consumes the GPU command stream;
// see Config for the exact synchronization contract.
package pipecache
