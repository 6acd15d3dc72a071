package scene

import (
	"github.com/EngoEngine/glm"

	"github.com/spectraldev/spectral/engine/mathx"
)

type Camera struct {
	Transform Transform
	FOVY      float32
	Aspect    float32
	Near      float32
	Far       float32
}

func NewCamera(fovy, aspect, near, far float32) *Camera {
	return &Camera{
		Transform: NewTransform(),
		FOVY:      fovy,
		Aspect:    aspect,
		Near:      near,
		Far:       far,
	}
}

// View is the world-to-camera matrix.
func (c *Camera) View() glm.Mat4 {
	forward := c.Transform.Rotation.Rotate(&glm.Vec3{0, 0, -1})
	up := c.Transform.Rotation.Rotate(&glm.Vec3{0, 1, 0})
	center := forward.Add(&c.Transform.Position)
	return glm.LookAtV(&c.Transform.Position, &center, &up)
}

func (c *Camera) Projection() glm.Mat4 {
	return glm.Perspective(c.FOVY, c.Aspect, c.Near, c.Far)
}

// InverseView is the camera's world matrix.
func (c *Camera) InverseView() glm.Mat4 {
	v := c.View()
	return mathx.InverseMat4(&v)
}

func (c *Camera) InverseProjection() glm.Mat4 {
	p := c.Projection()
	return mathx.InverseMat4(&p)
}
