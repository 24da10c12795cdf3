package pipecache

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestRenderPassParamsHasDepth(t *testing.T) {
	var params RenderPassParams
	if params.HasDepth() {
		t.Error("zero params report a depth attachment")
	}
	params.DepthFormat = gputypes.TextureFormatDepth24PlusStencil8
	if !params.HasDepth() {
		t.Error("depth format not detected")
	}
}

func TestRenderPassParamsHash(t *testing.T) {
	a := RenderPassParams{NumColors: 1, SampleCount: 1}
	a.ColorFormats[0] = gputypes.TextureFormatBGRA8Unorm
	b := a

	if a.Hash() != b.Hash() {
		t.Error("equal params hash differently")
	}

	b.SampleCount = 4
	if a.Hash() == b.Hash() {
		t.Error("sample count does not participate in the hash")
	}

	c := a
	c.ColorFormats[1] = gputypes.TextureFormatRGBA8Unorm
	if a.Hash() == c.Hash() {
		t.Error("color format slot does not participate in the hash")
	}
}

func TestRenderPassCacheMemoizes(t *testing.T) {
	resolved := 0
	cache := NewRenderPassCache(RenderPassResolverFunc(func(params RenderPassParams) (RenderPass, error) {
		resolved++
		return resolved, nil
	}))

	params := RenderPassParams{NumColors: 1}
	params.ColorFormats[0] = gputypes.TextureFormatBGRA8Unorm

	first, err := cache.ResolveRenderPass(params)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	second, err := cache.ResolveRenderPass(params)
	if err != nil {
		t.Fatalf("repeat resolve failed: %v", err)
	}
	if first != second || resolved != 1 {
		t.Errorf("params resolved %d times, want 1", resolved)
	}

	other := params
	other.SampleCount = 4
	if _, err := cache.ResolveRenderPass(other); err != nil {
		t.Fatalf("variant resolve failed: %v", err)
	}
	if resolved != 2 {
		t.Errorf("distinct params resolved %d times, want 2", resolved)
	}
	if cache.Len() != 2 {
		t.Errorf("Len = %d, want 2", cache.Len())
	}
}

func TestRenderPassCacheRetriesFailures(t *testing.T) {
	fail := true
	cache := NewRenderPassCache(RenderPassResolverFunc(func(params RenderPassParams) (RenderPass, error) {
		if fail {
			return nil, errors.New("device lost")
		}
		return "pass", nil
	}))

	var params RenderPassParams
	if _, err := cache.ResolveRenderPass(params); err == nil {
		t.Fatal("expected resolution failure")
	}
	if cache.Len() != 0 {
		t.Error("failure was cached")
	}

	fail = false
	pass, err := cache.ResolveRenderPass(params)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if pass != "pass" {
		t.Errorf("pass = %v, want the resolved handle", pass)
	}
}
