// Package wgsldec is the reference Decompiler implementation. It treats
// guest program words as UTF-8 WGSL source packed little-endian into
// 64-bit words, lowers the source to naga IR, and translates it to
// SPIR-V with the naga compiler.
//
// Production translators replace this package with a real bytecode
// decompiler; the cache, keys, and binding enumeration are agnostic to
// which one is plugged in.
package wgsldec

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/pipecache"
)

// wordBytes is the byte size of one guest instruction word.
const wordBytes = 8

var (
	// ErrEmptyProgram is returned when no source bytes remain after the
	// entry-point offset.
	ErrEmptyProgram = errors.New("wgsldec: empty program")

	// ErrStageUnsupported is returned for stages the host IR cannot
	// represent.
	ErrStageUnsupported = errors.New("wgsldec: stage not representable in host IR")

	// ErrEntryPointMissing is returned when the lowered module has no
	// entry point for the requested stage.
	ErrEntryPointMissing = errors.New("wgsldec: no entry point for stage")
)

// Decompiler translates WGSL-encoded guest programs.
type Decompiler struct{}

// New creates a reference decompiler.
func New() *Decompiler {
	return &Decompiler{}
}

// Decompile decodes the program source, lowers it to IR, compiles it to
// SPIR-V, and derives the resource entries from the module's globals.
//
// WGSL programs embed everything they need; registry is accepted for the
// Decompiler contract but no engine state is consumed.
func (d *Decompiler) Decompile(code pipecache.ProgramCode, stage pipecache.ShaderStage, mainOffset uint32, registry *pipecache.Registry) (*pipecache.DecompiledShader, error) {
	irStage, ok := stage.IRStage()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageUnsupported, stage)
	}

	source, words, err := decodeSource(code, mainOffset)
	if err != nil {
		return nil, err
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("wgsldec: parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("wgsldec: lower: %w", err)
	}

	if !hasEntryPoint(module, irStage) {
		return nil, fmt.Errorf("%w: %s", ErrEntryPointMissing, stage)
	}

	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgsldec: compile: %w", err)
	}

	pipecache.Logger().Debug("wgsldec: translated program",
		slog.String("stage", stage.String()),
		slog.Int("source_bytes", len(source)),
		slog.Int("spirv_words", len(spirvBytes)/4))

	return &pipecache.DecompiledShader{
		IR:        module,
		SPIRV:     spirvWords(spirvBytes),
		Entries:   entriesFromIR(module),
		CodeWords: mainOffset + words,
	}, nil
}

// decodeSource unpacks the UTF-8 source from the words after mainOffset.
// The source is zero-padded to a word boundary; the first NUL byte ends
// it. The returned word count includes the word holding the terminator.
func decodeSource(code pipecache.ProgramCode, mainOffset uint32) (string, uint32, error) {
	if uint64(mainOffset) >= uint64(len(code)) {
		return "", 0, ErrEmptyProgram
	}
	body := code[mainOffset:]

	buf := make([]byte, 0, len(body)*wordBytes)
	for _, word := range body {
		for shift := 0; shift < 64; shift += 8 {
			buf = append(buf, byte(word>>shift))
		}
	}

	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}
	if end == 0 {
		return "", 0, ErrEmptyProgram
	}

	words := uint32(end / wordBytes)
	if end%wordBytes != 0 {
		words++
	}
	return string(buf[:end]), words, nil
}

// spirvWords reassembles little-endian SPIR-V bytes into 32-bit words.
func spirvWords(spirvBytes []byte) []uint32 {
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words
}

func hasEntryPoint(module *ir.Module, stage ir.ShaderStage) bool {
	for _, ep := range module.EntryPoints {
		if ep.Stage == stage {
			return true
		}
	}
	return false
}

// entriesFromIR derives the shader's resource entries from the module's
// bound globals, preserving declaration order within each category.
//
// The IR carries no access qualifiers, so storage buffers and storage
// images are reported as written. Plain samplers occupy no guest binding
// of their own; the guest pairs them with their texture.
func entriesFromIR(module *ir.Module) pipecache.ShaderEntries {
	var entries pipecache.ShaderEntries
	for _, global := range module.GlobalVariables {
		if global.Binding == nil {
			continue
		}
		binding := global.Binding.Binding

		switch global.Space {
		case ir.SpaceUniform:
			entries.ConstBuffers = append(entries.ConstBuffers, pipecache.ConstBufferEntry{
				Index: binding,
				Size:  typeSpan(module, global.Type),
			})

		case ir.SpaceStorage:
			entries.GlobalBuffers = append(entries.GlobalBuffers, pipecache.GlobalBufferEntry{
				CbufIndex:  global.Binding.Group,
				CbufOffset: binding,
				Written:    true,
			})

		case ir.SpaceHandle:
			image, count, ok := resolveImage(module, global.Type)
			if !ok {
				continue
			}
			switch image.Class {
			case ir.ImageClassSampled:
				entries.Samplers = append(entries.Samplers, pipecache.SamplerEntry{
					Index: binding,
					Count: count,
				})
			case ir.ImageClassDepth:
				entries.Samplers = append(entries.Samplers, pipecache.SamplerEntry{
					Index:  binding,
					Count:  count,
					Shadow: true,
				})
			case ir.ImageClassStorage:
				entries.Images = append(entries.Images, pipecache.ImageEntry{
					Index:   binding,
					Count:   count,
					Written: true,
				})
			}
		}
	}
	return entries
}

// typeSpan returns the byte size of a struct-typed global, or 0 when the
// size is not statically known.
func typeSpan(module *ir.Module, handle ir.TypeHandle) uint32 {
	if int(handle) >= len(module.Types) {
		return 0
	}
	if st, ok := module.Types[handle].Inner.(ir.StructType); ok {
		return st.Span
	}
	return 0
}

// resolveImage unwraps a handle-space global to its image type. Arrays of
// images report the array length as the binding count.
func resolveImage(module *ir.Module, handle ir.TypeHandle) (ir.ImageType, uint32, bool) {
	if int(handle) >= len(module.Types) {
		return ir.ImageType{}, 0, false
	}
	switch inner := module.Types[handle].Inner.(type) {
	case ir.ImageType:
		return inner, 1, true
	case ir.ArrayType:
		image, _, ok := resolveImage(module, inner.Base)
		if !ok {
			return ir.ImageType{}, 0, false
		}
		count := uint32(1)
		if inner.Size.Constant != nil {
			count = *inner.Size.Constant
		}
		return image, count, true
	default:
		return ir.ImageType{}, 0, false
	}
}

// EncodeProgram packs WGSL source into guest program words, little-endian
// and zero-padded to a word boundary, preceded by headerWords zero words.
// It is the inverse of the decoding Decompile performs and exists for
// tests and guest-side tooling.
func EncodeProgram(source string, headerWords uint32) pipecache.ProgramCode {
	raw := []byte(source)
	// Always leave room for at least one NUL terminator byte.
	bodyWords := (len(raw) + wordBytes) / wordBytes
	code := make(pipecache.ProgramCode, int(headerWords)+bodyWords)

	for i, b := range raw {
		word := int(headerWords) + i/wordBytes
		shift := uint(i%wordBytes) * 8
		code[word] |= uint64(b) << shift
	}
	return code
}

var _ pipecache.Decompiler = (*Decompiler)(nil)
