package scene

import "github.com/EngoEngine/glm"

// Transform is a TRS world transform.
type Transform struct {
	Position glm.Vec3
	Rotation glm.Quat
	Scale    glm.Vec3
}

func NewTransform() Transform {
	return Transform{
		Rotation: glm.Quat{W: 1},
		Scale:    glm.Vec3{1, 1, 1},
	}
}

func TranslationTransform(x, y, z float32) Transform {
	t := NewTransform()
	t.Position = glm.Vec3{x, y, z}
	return t
}

// Matrix composes translation * rotation * scale.
func (t *Transform) Matrix() glm.Mat4 {
	translation := glm.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	rotation := t.Rotation.Mat4()
	scale := glm.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	rs := rotation.Mul4(&scale)
	return translation.Mul4(&rs)
}
