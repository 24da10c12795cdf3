package pipecache

import "sync/atomic"

// pipelineIDCounter generates unique pipeline IDs for logging.
var pipelineIDCounter uint64

func nextPipelineID() uint64 {
	return atomic.AddUint64(&pipelineIDCounter, 1)
}

// GraphicsPipeline is one constructed host graphics pipeline. It is owned
// exclusively by the cache entry that created it: never copied, never
// rebuilt, destroyed when evicted or when the cache is torn down.
type GraphicsPipeline struct {
	id      uint64
	layout  DescriptorLayout
	handle  any
	destroy func()

	destroyed bool
}

// NewGraphicsPipeline wraps a backend pipeline object. handle is the
// backend's pipeline value; destroy releases it and may be nil.
func NewGraphicsPipeline(layout DescriptorLayout, handle any, destroy func()) *GraphicsPipeline {
	return &GraphicsPipeline{
		id:      nextPipelineID(),
		layout:  layout,
		handle:  handle,
		destroy: destroy,
	}
}

// ID returns the pipeline's unique identifier.
func (p *GraphicsPipeline) ID() uint64 { return p.id }

// Layout returns the descriptor layout the pipeline was built with. The
// descriptor-update queue walks Layout.Template to populate sets per draw.
func (p *GraphicsPipeline) Layout() DescriptorLayout { return p.layout }

// Handle returns the backend pipeline object, or nil after Destroy.
func (p *GraphicsPipeline) Handle() any {
	if p.destroyed {
		return nil
	}
	return p.handle
}

// Destroy releases the backend object. Safe to call more than once.
func (p *GraphicsPipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.handle = nil
	if p.destroy != nil {
		p.destroy()
	}
}

// ComputePipeline is one constructed host compute pipeline, with the same
// ownership rules as GraphicsPipeline.
type ComputePipeline struct {
	id        uint64
	layout    DescriptorLayout
	workgroup [3]uint32
	handle    any
	destroy   func()

	destroyed bool
}

// NewComputePipeline wraps a backend compute pipeline object.
func NewComputePipeline(layout DescriptorLayout, workgroup [3]uint32, handle any, destroy func()) *ComputePipeline {
	return &ComputePipeline{
		id:        nextPipelineID(),
		layout:    layout,
		workgroup: workgroup,
		handle:    handle,
		destroy:   destroy,
	}
}

// ID returns the pipeline's unique identifier.
func (p *ComputePipeline) ID() uint64 { return p.id }

// Layout returns the descriptor layout the pipeline was built with.
func (p *ComputePipeline) Layout() DescriptorLayout { return p.layout }

// Workgroup returns the dispatch workgroup dimensions baked into the key.
func (p *ComputePipeline) Workgroup() [3]uint32 { return p.workgroup }

// Handle returns the backend pipeline object, or nil after Destroy.
func (p *ComputePipeline) Handle() any {
	if p.destroyed {
		return nil
	}
	return p.handle
}

// Destroy releases the backend object. Safe to call more than once.
func (p *ComputePipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.handle = nil
	if p.destroy != nil {
		p.destroy()
	}
}
