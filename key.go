package pipecache

// GraphicsPipelineKey identifies one graphics pipeline: the fixed-function
// register snapshot, the GPU virtual address of every bound shader program
// (zero = stage unused), and the render-pass parameters.
//
// The key is a comparable value type: two keys are equal iff every field is
// equal, so it can be used directly as a Go map key. Hash is exposed for
// callers that need a stable 64-bit digest; it is consistent with equality.
type GraphicsPipelineKey struct {
	Fixed      FixedPipelineState
	Shaders    [MaxShaderPrograms]GPUVAddr
	RenderPass RenderPassParams
}

// Hash combines, in this fixed order: the fixed-state hash, each shader
// address in program order, then the render-pass-parameter hash. The order
// is deterministic and order-sensitive so the digest stays stable across
// builds and architectures.
func (k *GraphicsPipelineKey) Hash() uint64 {
	h := newKeyHash()
	hashWriteUint64(h, k.Fixed.Hash())
	for _, addr := range k.Shaders {
		hashWriteUint64(h, uint64(addr))
	}
	hashWriteUint64(h, k.RenderPass.Hash())
	return h.Sum64()
}

// ComputePipelineKey identifies one compute pipeline: the shader address,
// the guest-configured shared memory size, and the 3D workgroup dimensions.
// Equality is exact field-wise comparison.
type ComputePipelineKey struct {
	Shader           GPUVAddr
	SharedMemorySize uint32
	Workgroup        [3]uint32
}

// Hash writes the shader address, shared memory size, and workgroup
// dimensions in that fixed order.
func (k *ComputePipelineKey) Hash() uint64 {
	h := newKeyHash()
	hashWriteUint64(h, uint64(k.Shader))
	hashWriteUint32(h, k.SharedMemorySize)
	for _, dim := range k.Workgroup {
		hashWriteUint32(h, dim)
	}
	return h.Sum64()
}
