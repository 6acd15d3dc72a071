package scene

import "github.com/EngoEngine/glm"

type DirectionalLight struct {
	Direction glm.Vec3
	Radiance  glm.Vec3
}

type SkyLight struct {
	Radiance glm.Vec3
}

type PointLight struct {
	Position glm.Vec3
	Radiance glm.Vec3
}
