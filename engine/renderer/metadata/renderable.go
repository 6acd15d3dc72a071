package metadata

// Renderable pairs geometry with shading for one scene entity. Posed
// marks skinned/animated geometry whose vertices change every frame;
// posed meshes bypass the acceleration-structure cache.
type Renderable struct {
	Mesh     *Mesh
	Material Material
	Posed    bool
}
