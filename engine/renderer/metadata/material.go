package metadata

import "github.com/spectraldev/spectral/engine/gpu"

// Texture pairs an image view with its sampler. The zero Texture means
// "absent"; materials carry factors that apply whether or not a texture
// is bound. Comparable, so it can key the bindless registry directly.
type Texture struct {
	View    gpu.ImageView
	Sampler gpu.Sampler
}

func (t Texture) IsZero() bool {
	return t.View == nil
}

// Material is an immutable shading descriptor shared between
// renderables.
type Material struct {
	Albedo       Texture
	AlbedoFactor [4]float32

	Normal       Texture
	NormalFactor float32

	Emissive       Texture
	EmissiveFactor [3]float32

	MetallicFactor  float32
	RoughnessFactor float32
}

func NewMaterial() Material {
	return Material{
		AlbedoFactor:    [4]float32{1, 1, 1, 1},
		NormalFactor:    1,
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
}

// ColorMaterial is an untextured material with a constant albedo.
func ColorMaterial(r, g, b, a float32) Material {
	m := NewMaterial()
	m.AlbedoFactor = [4]float32{r, g, b, a}
	return m
}
