package renderer

import (
	"fmt"

	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/renderer/metadata"
	"github.com/spectraldev/spectral/engine/scene"
)

type animatedBLAS struct {
	blas    gpu.AccelerationStructure
	scratch gpu.DeviceAddress
	meshKey string
}

// AccelerationStructureCache owns every bottom-level acceleration
// structure. Static meshes are keyed structurally and built once; posed
// meshes are keyed per entity and rebuilt in place every frame, since
// their vertex buffers change under the same mesh descriptor.
type AccelerationStructureCache struct {
	device   gpu.Device
	static   map[string]gpu.AccelerationStructure
	animated map[scene.EntityID]animatedBLAS
	builds   int
}

func NewAccelerationStructureCache(device gpu.Device) *AccelerationStructureCache {
	return &AccelerationStructureCache{
		device:   device,
		static:   make(map[string]gpu.AccelerationStructure),
		animated: make(map[scene.EntityID]animatedBLAS),
	}
}

// GetOrBuild returns the structure for a static mesh, recording a build
// into enc on first sight.
func (c *AccelerationStructureCache) GetOrBuild(mesh *metadata.Mesh, enc gpu.Encoder) (gpu.AccelerationStructure, error) {
	if blas, ok := c.static[mesh.Key()]; ok {
		return blas, nil
	}
	blas, _, err := mesh.BuildTrianglesBLAS(enc, c.device)
	if err != nil {
		return nil, fmt.Errorf("static BLAS for mesh %q: %w", mesh.Key(), err)
	}
	c.static[mesh.Key()] = blas
	c.builds++
	return blas, nil
}

// GetOrBuildAnimated returns the structure for a posed entity, recording
// a rebuild into enc every call. The structure and scratch allocated on
// first sight are reused for as long as the entity keeps the same mesh.
func (c *AccelerationStructureCache) GetOrBuildAnimated(id scene.EntityID, mesh *metadata.Mesh, enc gpu.Encoder) (gpu.AccelerationStructure, error) {
	if entry, ok := c.animated[id]; ok && entry.meshKey == mesh.Key() {
		mesh.RecordTrianglesBuild(enc, c.device, entry.blas, entry.scratch)
		c.builds++
		return entry.blas, nil
	}
	blas, scratch, err := mesh.BuildTrianglesBLAS(enc, c.device)
	if err != nil {
		return nil, fmt.Errorf("posed BLAS for entity %d: %w", id, err)
	}
	c.animated[id] = animatedBLAS{
		blas:    blas,
		scratch: c.device.BufferDeviceAddress(scratch),
		meshKey: mesh.Key(),
	}
	c.builds++
	return blas, nil
}

// Lookup resolves a static mesh without building.
func (c *AccelerationStructureCache) Lookup(mesh *metadata.Mesh) (gpu.AccelerationStructure, bool) {
	blas, ok := c.static[mesh.Key()]
	return blas, ok
}

// LookupAnimated resolves a posed entity without building.
func (c *AccelerationStructureCache) LookupAnimated(id scene.EntityID) (gpu.AccelerationStructure, bool) {
	entry, ok := c.animated[id]
	return entry.blas, ok
}

// Len reports the number of cached structures.
func (c *AccelerationStructureCache) Len() int {
	return len(c.static) + len(c.animated)
}

// Builds reports the total number of builds recorded so far.
func (c *AccelerationStructureCache) Builds() int { return c.builds }
