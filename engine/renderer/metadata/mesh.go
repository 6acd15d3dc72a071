package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spectraldev/spectral/engine/gpu"
)

// Binding ties one GPU buffer range to a vertex layout.
type Binding struct {
	Buffer gpu.Buffer
	Offset uint64
	Layout VertexLayout
}

type Indices struct {
	Buffer    gpu.Buffer
	Offset    uint64
	IndexType gpu.IndexType
}

type MeshBuilder struct {
	bindings []Binding
	indices  *Indices
	topology gpu.Topology
}

func NewMeshBuilder() *MeshBuilder {
	return &MeshBuilder{topology: gpu.TopologyTriangleList}
}

func (b *MeshBuilder) WithTopology(topology gpu.Topology) *MeshBuilder {
	b.topology = topology
	return b
}

func (b *MeshBuilder) AddBinding(buffer gpu.Buffer, offset uint64, layout VertexLayout) *MeshBuilder {
	b.bindings = append(b.bindings, Binding{Buffer: buffer, Offset: offset, Layout: layout})
	return b
}

func (b *MeshBuilder) SetIndices(buffer gpu.Buffer, offset uint64, indexType gpu.IndexType) *MeshBuilder {
	b.indices = &Indices{Buffer: buffer, Offset: offset, IndexType: indexType}
	return b
}

// Build freezes the mesh. count is the index (or vertex, if unindexed)
// count of the draw; vertexCount the number of vertices in binding 0.
func (b *MeshBuilder) Build(count, vertexCount uint32) *Mesh {
	m := &Mesh{
		bindings:    append([]Binding(nil), b.bindings...),
		indices:     b.indices,
		topology:    b.topology,
		count:       count,
		vertexCount: vertexCount,
	}
	m.key = m.structuralKey()
	return m
}

// Mesh is an immutable descriptor of GPU-resident geometry. Two meshes
// built over the same buffers, offsets and layouts compare equal via
// Key(); the acceleration-structure cache and the bindless registry rely
// on that. Mutating the underlying buffers without minting a new Mesh
// silently stales every cache entry keyed on it.
type Mesh struct {
	bindings    []Binding
	indices     *Indices
	topology    gpu.Topology
	count       uint32
	vertexCount uint32
	key         string
}

func (m *Mesh) Count() uint32       { return m.count }
func (m *Mesh) VertexCount() uint32 { return m.vertexCount }
func (m *Mesh) Bindings() []Binding { return m.bindings }
func (m *Mesh) Indices() *Indices   { return m.indices }
func (m *Mesh) Topology() gpu.Topology {
	return m.topology
}

// Key is the structural identity of the mesh, usable as a map key.
func (m *Mesh) Key() string { return m.key }

func (m *Mesh) structuralKey() string {
	var b strings.Builder
	b.WriteString("t")
	b.WriteString(strconv.FormatUint(uint64(m.topology), 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatUint(uint64(m.count), 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatUint(uint64(m.vertexCount), 10))
	for _, binding := range m.bindings {
		b.WriteString("|b")
		b.WriteString(strconv.FormatUint(binding.Buffer.ID(), 10))
		b.WriteByte('+')
		b.WriteString(strconv.FormatUint(binding.Offset, 10))
		b.WriteByte('@')
		binding.Layout.key(&b)
	}
	if m.indices != nil {
		b.WriteString("|i")
		b.WriteString(strconv.FormatUint(m.indices.Buffer.ID(), 10))
		b.WriteByte('+')
		b.WriteString(strconv.FormatUint(m.indices.Offset, 10))
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(m.indices.IndexType), 10))
	}
	return b.String()
}

// BuildTrianglesBLAS records a bottom-level acceleration-structure build
// over this mesh's triangles into enc. The returned structure is usable
// once the recorded build has executed; ordering against the consumer is
// the caller's barrier to place. The scratch buffer is returned so the
// caller can reuse it for in-place rebuilds of posed geometry.
func (m *Mesh) BuildTrianglesBLAS(enc gpu.Encoder, device gpu.Device) (gpu.AccelerationStructure, gpu.Buffer, error) {
	if m.topology != gpu.TopologyTriangleList {
		return nil, nil, fmt.Errorf("BLAS build requires a triangle list, got topology %d", m.topology)
	}
	if m.count%3 != 0 {
		return nil, nil, fmt.Errorf("BLAS build: count %d not divisible by 3", m.count)
	}
	if len(m.bindings) == 0 {
		return nil, nil, fmt.Errorf("BLAS build: mesh has no vertex bindings")
	}

	triangleCount := m.count / 3
	posBinding := m.bindings[0]
	posAttr := posBinding.Layout.Attributes[0]

	var indexType *gpu.IndexType
	if m.indices != nil {
		t := m.indices.IndexType
		indexType = &t
	}

	blas, err := device.CreateAccelerationStructure(gpu.AccelerationStructureInfo{
		Level:             gpu.AccelerationStructureBottom,
		Flags:             gpu.ASPreferFastTrace,
		MaxPrimitiveCount: triangleCount,
		MaxVertexCount:    m.count,
		VertexFormat:      posAttr.Format,
		IndexType:         indexType,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create BLAS: %w", err)
	}

	scratch, err := device.AllocateAccelerationStructureScratch(blas)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate BLAS scratch: %w", err)
	}

	enc.BuildAccelerationStructure([]gpu.AccelerationStructureBuild{{
		Dst:       blas,
		Scratch:   device.BufferDeviceAddress(scratch),
		Triangles: m.trianglesData(device, triangleCount),
	}})

	return blas, scratch, nil
}

// RecordTrianglesBuild re-records a build of this mesh's triangles into
// an existing structure. Used for posed geometry whose vertex buffers
// are rewritten every frame; the structure and scratch are sized for the
// mesh already.
func (m *Mesh) RecordTrianglesBuild(enc gpu.Encoder, device gpu.Device, dst gpu.AccelerationStructure, scratch gpu.DeviceAddress) {
	enc.BuildAccelerationStructure([]gpu.AccelerationStructureBuild{{
		Dst:       dst,
		Scratch:   scratch,
		Triangles: m.trianglesData(device, m.count/3),
	}})
}

func (m *Mesh) trianglesData(device gpu.Device, triangleCount uint32) *gpu.TrianglesData {
	posBinding := m.bindings[0]
	posAttr := posBinding.Layout.Attributes[0]

	vertexData := device.BufferDeviceAddress(posBinding.Buffer).
		Offset(posBinding.Offset).
		Offset(uint64(posAttr.Offset))

	triangles := &gpu.TrianglesData{
		VertexData:     vertexData,
		VertexStride:   uint64(posBinding.Layout.Stride),
		VertexFormat:   posAttr.Format,
		PrimitiveCount: triangleCount,
	}
	if m.indices != nil {
		addr := device.BufferDeviceAddress(m.indices.Buffer).Offset(m.indices.Offset)
		triangles.IndexData = &addr
		triangles.IndexType = m.indices.IndexType
	}
	return triangles
}
