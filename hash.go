package pipecache

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// All cache key hashes are FNV-1a over a fixed little-endian field order.
// The order is part of the contract: fixed state first, then shader
// addresses in program order, then render-pass parameters. Keeping the
// combination deterministic and order-sensitive keeps hashes stable across
// builds and architectures.

// hashWriteUint8 writes a uint8 to the hash.
func hashWriteUint8(h hash.Hash64, v uint8) {
	_, _ = h.Write([]byte{v})
}

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

// newKeyHash returns the hasher used by all cache key Hash methods.
func newKeyHash() hash.Hash64 {
	return fnv.New64a()
}
