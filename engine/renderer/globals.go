package renderer

import (
	"encoding/binary"
	"math"

	"github.com/EngoEngine/glm"
)

// The GPU-visible structs below are encoded by hand into little-endian
// byte slices rather than unsafe-cast, so field order, padding and
// alignment are explicit and testable. Layouts follow std430 rules.

// Globals is the per-frame uniform block: camera matrices, the two
// global lights and the frame counter the shaders seed their RNG with.
type Globals struct {
	View              glm.Mat4
	Projection        glm.Mat4
	InverseView       glm.Mat4
	InverseProjection glm.Mat4

	DirLightDirection glm.Vec3
	DirLightRadiance  glm.Vec3
	SkyLightRadiance  glm.Vec3

	Frame           uint32
	PointLightCount uint32
}

// ShaderInstance is one entry of the per-frame instance array, indexed
// by gl_InstanceCustomIndexEXT in the hit shaders. Slot fields use the
// registry's +1 encoding; 0 means absent.
type ShaderInstance struct {
	Transform    glm.Mat4
	MeshSlot     uint32
	AlbedoSlot   uint32
	AlbedoFactor [4]float32
	NormalSlot   uint32
	NormalFactor float32
}

// AccelerationStructureInstance mirrors VkAccelerationStructureInstanceKHR:
// a row-major 3x4 transform, packed index/mask and offset/flags words,
// and the bottom-level structure's device address.
type AccelerationStructureInstance struct {
	Transform   glm.Mat4
	CustomIndex uint32
	Mask        uint8
	BLASAddress uint64
}

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) reset() {
	w.buf = w.buf[:0]
}

func (w *wireWriter) bytes() []byte { return w.buf }

func (w *wireWriter) putU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *wireWriter) putU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *wireWriter) putF32(v float32) {
	w.putU32(math.Float32bits(v))
}

func (w *wireWriter) putMat4(m *glm.Mat4) {
	for _, v := range m {
		w.putF32(v)
	}
}

// putVec3Pad writes a vec3 plus 4 bytes of padding, the std430 footprint
// of a vec3 followed by a 16-byte-aligned field.
func (w *wireWriter) putVec3Pad(v *glm.Vec3) {
	w.putF32(v[0])
	w.putF32(v[1])
	w.putF32(v[2])
	w.putU32(0)
}

// putTransform3x4 writes the top three rows of a column-major mat4 in
// row-major order, the acceleration-structure instance transform format.
func (w *wireWriter) putTransform3x4(m *glm.Mat4) {
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			w.putF32(m[col*4+row])
		}
	}
}

func (g *Globals) encode(w *wireWriter) {
	w.putMat4(&g.View)
	w.putMat4(&g.Projection)
	w.putMat4(&g.InverseView)
	w.putMat4(&g.InverseProjection)
	w.putVec3Pad(&g.DirLightDirection)
	w.putVec3Pad(&g.DirLightRadiance)
	w.putVec3Pad(&g.SkyLightRadiance)
	w.putU32(g.Frame)
	w.putU32(g.PointLightCount)
	w.putU64(0)
}

func (i *ShaderInstance) encode(w *wireWriter) {
	w.putMat4(&i.Transform)
	w.putU32(i.MeshSlot)
	w.putU32(i.AlbedoSlot)
	for _, f := range i.AlbedoFactor {
		w.putF32(f)
	}
	w.putU32(i.NormalSlot)
	w.putF32(i.NormalFactor)
}

func (i *AccelerationStructureInstance) encode(w *wireWriter) {
	w.putTransform3x4(&i.Transform)
	// 24-bit custom index, 8-bit visibility mask.
	w.putU32(i.CustomIndex&0x00ffffff | uint32(i.Mask)<<24)
	// SBT record offset and instance flags, both zero: one hit group,
	// no per-instance culling overrides.
	w.putU32(0)
	w.putU64(i.BLASAddress)
}

// encodePointLight writes one light as vec3 position, pad, vec3
// radiance, pad.
func encodePointLight(w *wireWriter, position, radiance *glm.Vec3) {
	w.putVec3Pad(position)
	w.putVec3Pad(radiance)
}
