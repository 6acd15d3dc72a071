package metadata

import (
	"strconv"
	"strings"

	"github.com/spectraldev/spectral/engine/gpu"
)

type VertexAttribute struct {
	Location uint32
	Format   gpu.Format
	Offset   uint32
}

// VertexLayout describes how one bound buffer's bytes map to vertex
// attributes. Attribute 0 is by convention the position and is the only
// attribute acceleration-structure builds read.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// PositionNormalUV3D is the layout the asset pipeline produces for
// static geometry: vec3 position, vec3 normal, vec2 uv, tightly packed.
func PositionNormalUV3D() VertexLayout {
	return VertexLayout{
		Stride: 32,
		Attributes: []VertexAttribute{
			{Location: 0, Format: gpu.FormatRGB32Float, Offset: 0},
			{Location: 1, Format: gpu.FormatRGB32Float, Offset: 12},
			{Location: 2, Format: gpu.FormatRG32Float, Offset: 24},
		},
	}
}

func (l VertexLayout) key(b *strings.Builder) {
	b.WriteString("s")
	b.WriteString(strconv.FormatUint(uint64(l.Stride), 10))
	for _, a := range l.Attributes {
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(a.Location), 10))
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(a.Format), 10))
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(a.Offset), 10))
	}
}

func (l VertexLayout) Equal(other VertexLayout) bool {
	if l.Stride != other.Stride || len(l.Attributes) != len(other.Attributes) {
		return false
	}
	for i := range l.Attributes {
		if l.Attributes[i] != other.Attributes[i] {
			return false
		}
	}
	return true
}
