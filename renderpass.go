package pipecache

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pipecache/internal/cache"
)

// RenderPassParams describes the attachment formats a graphics pipeline is
// built against. Like FixedPipelineState it is a comparable value type and
// participates in GraphicsPipelineKey equality.
type RenderPassParams struct {
	ColorFormats [MaxColorAttachments]gputypes.TextureFormat
	NumColors    uint8

	// DepthFormat is TextureFormatUndefined when the pass has no
	// depth/stencil attachment.
	DepthFormat gputypes.TextureFormat

	SampleCount uint8
}

// HasDepth reports whether the pass has a depth/stencil attachment.
func (p *RenderPassParams) HasDepth() bool {
	return p.DepthFormat != gputypes.TextureFormatUndefined
}

// Hash returns the FNV-1a hash of the render-pass parameters. Fields are
// written in declaration order; equal params always hash equal.
func (p *RenderPassParams) Hash() uint64 {
	h := newKeyHash()
	for _, f := range p.ColorFormats {
		hashWriteUint32(h, uint32(f))
	}
	hashWriteUint8(h, p.NumColors)
	hashWriteUint32(h, uint32(p.DepthFormat))
	hashWriteUint8(h, p.SampleCount)
	return h.Sum64()
}

// RenderPass is an opaque handle to a host-API render pass compatible with
// a set of RenderPassParams. Backends that have no first-class render pass
// objects (WebGPU-style APIs) may return any sentinel value.
type RenderPass interface{}

// RenderPassResolver resolves render-pass parameters to a host render-pass
// handle usable by pipeline construction.
type RenderPassResolver interface {
	ResolveRenderPass(params RenderPassParams) (RenderPass, error)
}

// RenderPassResolverFunc adapts a function to the RenderPassResolver
// interface.
type RenderPassResolverFunc func(params RenderPassParams) (RenderPass, error)

func (f RenderPassResolverFunc) ResolveRenderPass(params RenderPassParams) (RenderPass, error) {
	return f(params)
}

// RenderPassCache memoizes a RenderPassResolver: each distinct parameter
// set is resolved at most once per cache lifetime. Resolution failures are
// not cached and will be retried.
type RenderPassCache struct {
	resolver RenderPassResolver
	passes   *cache.Memo[RenderPassParams, RenderPass]
}

// NewRenderPassCache wraps resolver with memoization.
func NewRenderPassCache(resolver RenderPassResolver) *RenderPassCache {
	return &RenderPassCache{
		resolver: resolver,
		passes:   cache.New[RenderPassParams, RenderPass](),
	}
}

// ResolveRenderPass returns the cached handle for params, resolving it on
// first reference.
func (c *RenderPassCache) ResolveRenderPass(params RenderPassParams) (RenderPass, error) {
	return c.passes.GetOrCreate(params, func() (RenderPass, error) {
		return c.resolver.ResolveRenderPass(params)
	})
}

// Len returns the number of distinct parameter sets resolved so far.
func (c *RenderPassCache) Len() int {
	return c.passes.Len()
}
