package pipecache

import (
	"errors"
	"testing"
)

func newTestShaderCache() (*ShaderCache, *mockDecompiler, *mockMemory) {
	decompiler := &mockDecompiler{}
	memory := &mockMemory{}
	return NewShaderCache(&mockEngine{}, memory, decompiler), decompiler, memory
}

func TestShaderCacheIdentity(t *testing.T) {
	cache, decompiler, _ := newTestShaderCache()

	first, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000)
	if err != nil {
		t.Fatalf("first GetOrCreate failed: %v", err)
	}
	second, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000)
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}

	if first != second {
		t.Error("same address produced two shader instances")
	}
	if decompiler.calls != 1 {
		t.Errorf("decompiler invoked %d times, want 1", decompiler.calls)
	}
	if got := cache.Get(0x1000); got != first {
		t.Error("Get returned a different instance")
	}
	if first.GPUAddr() != 0x1000 || first.Stage() != StageVertex {
		t.Errorf("shader identity = %#x %s, want 0x1000 vertex", uint64(first.GPUAddr()), first.Stage())
	}
}

func TestShaderCacheFailureNotCached(t *testing.T) {
	cache, decompiler, _ := newTestShaderCache()
	decompiler.failAddr = 0x1000

	_, err := cache.GetOrCreate(StageFragment, 0x1000, 0x101000)
	var decErr *DecompileError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want *DecompileError", err)
	}
	if cache.Len() != 0 {
		t.Error("failed decompilation left an entry in the cache")
	}

	// A guest rewrite of the program leads to a fresh attempt.
	decompiler.failAddr = 0
	if _, err := cache.GetOrCreate(StageFragment, 0x1000, 0x101000); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if decompiler.calls != 2 {
		t.Errorf("decompiler invoked %d times, want 2", decompiler.calls)
	}
}

func TestShaderCacheReadErrorWrapped(t *testing.T) {
	cache, _, memory := newTestShaderCache()
	readErr := errors.New("page fault")
	memory.readErr = readErr

	_, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000)
	var decErr *DecompileError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want *DecompileError", err)
	}
	if !errors.Is(err, readErr) {
		t.Error("wrapped error lost the underlying read failure")
	}
}

func TestShaderCacheCodeTruncation(t *testing.T) {
	cache, decompiler, memory := newTestShaderCache()
	memory.code = map[GPUVAddr]ProgramCode{0x1000: make(ProgramCode, 64)}
	memory.code[0x1000][0] = 0x1000
	decompiler.codeWords = 16

	shader, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if len(shader.Code()) != 16 {
		t.Errorf("code kept %d words, want the 16 the program occupies", len(shader.Code()))
	}
	if shader.SizeInBytes() != 16*bytesPerWord {
		t.Errorf("SizeInBytes = %d, want %d", shader.SizeInBytes(), 16*bytesPerWord)
	}
}

func TestShaderCacheUnregisterIdentity(t *testing.T) {
	cache, _, _ := newTestShaderCache()

	stale, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	cache.Unregister(stale)
	if cache.Len() != 0 {
		t.Fatal("Unregister did not remove the shader")
	}

	fresh, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000)
	if err != nil {
		t.Fatalf("re-create failed: %v", err)
	}
	if fresh == stale {
		t.Error("re-created shader reused the unregistered instance")
	}

	// A second unregister of the stale instance must not evict the fresh one.
	cache.Unregister(stale)
	if cache.Get(0x1000) != fresh {
		t.Error("stale unregister removed the live shader")
	}

	cache.Unregister(nil) // no-op
}

func TestShaderCacheCollectOverlapping(t *testing.T) {
	cache, _, memory := newTestShaderCache()
	memory.code = map[GPUVAddr]ProgramCode{
		0x1000: make(ProgramCode, 4), // host [0x101000, 0x101020)
		0x2000: make(ProgramCode, 4), // host [0x102000, 0x102020)
	}
	memory.code[0x1000][0] = 0x1000
	memory.code[0x2000][0] = 0x2000

	if _, err := cache.GetOrCreate(StageVertex, 0x1000, 0x101000); err != nil {
		t.Fatalf("create 0x1000 failed: %v", err)
	}
	if _, err := cache.GetOrCreate(StageFragment, 0x2000, 0x102000); err != nil {
		t.Fatalf("create 0x2000 failed: %v", err)
	}

	tests := []struct {
		name string
		addr HostVAddr
		size uint64
		want int
	}{
		{"inside first", 0x101010, 1, 1},
		{"spanning both", 0x101000, 0x1020, 2},
		{"before all", 0x100000, 0x10, 0},
		{"touching end is exclusive", 0x101020, 0x10, 0},
		{"last byte", 0x10101F, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(cache.CollectOverlapping(tt.addr, tt.size)); got != tt.want {
				t.Errorf("CollectOverlapping(%#x, %#x) = %d shaders, want %d", uint64(tt.addr), tt.size, got, tt.want)
			}
		})
	}
}

func TestRegistryRecordsReads(t *testing.T) {
	engine := &mockEngine{cbufs: map[RegistryKey]uint32{
		{Buffer: 1, Offset: 8}: 0xCAFE,
	}}
	registry := NewRegistry(StageFragment, engine)

	if got := registry.Value(1, 8); got != 0xCAFE {
		t.Errorf("Value = %#x, want 0xCAFE", got)
	}

	// A repeated read returns the recorded snapshot without touching the
	// engine again, even if the live value changed underneath.
	engine.cbufs[RegistryKey{Buffer: 1, Offset: 8}] = 0xDEAD
	if got := registry.Value(1, 8); got != 0xCAFE {
		t.Errorf("repeat Value = %#x, want recorded 0xCAFE", got)
	}
	if engine.reads != 1 {
		t.Errorf("engine consulted %d times, want 1", engine.reads)
	}

	if v, ok := registry.Recorded(1, 8); !ok || v != 0xCAFE {
		t.Errorf("Recorded = %#x,%v, want 0xCAFE,true", v, ok)
	}
	if _, ok := registry.Recorded(0, 0); ok {
		t.Error("Recorded reported a value that was never read")
	}
	if registry.Len() != 1 {
		t.Errorf("Len = %d, want 1", registry.Len())
	}
}
