// Package scene owns what the application renders: entities pairing a
// renderable with a world transform, one camera, and the light set. The
// renderer queries it read-only every frame.
package scene

import (
	"github.com/spectraldev/spectral/engine/renderer/metadata"
)

type EntityID uint64

type entity struct {
	id         EntityID
	renderable metadata.Renderable
	transform  Transform
}

type Scene struct {
	nextID   EntityID
	entities []entity

	camera      *Camera
	dirLight    *DirectionalLight
	skyLight    *SkyLight
	pointLights []PointLight
}

func New() *Scene {
	return &Scene{}
}

// Spawn adds an entity and returns its handle.
func (s *Scene) Spawn(renderable metadata.Renderable, transform Transform) EntityID {
	s.nextID++
	s.entities = append(s.entities, entity{
		id:         s.nextID,
		renderable: renderable,
		transform:  transform,
	})
	return s.nextID
}

// Despawn removes an entity; the renderer notices on the next frame.
func (s *Scene) Despawn(id EntityID) bool {
	for i := range s.entities {
		if s.entities[i].id == id {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			return true
		}
	}
	return false
}

// SetTransform moves an entity.
func (s *Scene) SetTransform(id EntityID, transform Transform) bool {
	for i := range s.entities {
		if s.entities[i].id == id {
			s.entities[i].transform = transform
			return true
		}
	}
	return false
}

// Each visits every entity in spawn order. The renderable and transform
// must be treated as read-only.
func (s *Scene) Each(visit func(id EntityID, r *metadata.Renderable, t *Transform)) {
	for i := range s.entities {
		visit(s.entities[i].id, &s.entities[i].renderable, &s.entities[i].transform)
	}
}

func (s *Scene) Len() int { return len(s.entities) }

func (s *Scene) SetCamera(camera *Camera) { s.camera = camera }
func (s *Scene) Camera() *Camera { return s.camera }
func (s *Scene) SetDirLight(l *DirectionalLight) { s.dirLight = l }
func (s *Scene) DirLight() *DirectionalLight { return s.dirLight }
func (s *Scene) SetSkyLight(l *SkyLight) { s.skyLight = l }
func (s *Scene) SkyLight() *SkyLight { return s.skyLight }

func (s *Scene) AddPointLight(l PointLight) {
	s.pointLights = append(s.pointLights, l)
}

func (s *Scene) PointLights() []PointLight { return s.pointLights }
