// Package testbed assembles a small demo scene: a ground plane, a ring
// of tinted cubes and a point-lit center piece, with an orbiting camera.
// It exercises the renderer without any asset pipeline.
package testbed

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/EngoEngine/glm"

	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/renderer/metadata"
	"github.com/spectraldev/spectral/engine/scene"
)

// Testbed owns the demo scene and animates it between frames.
type Testbed struct {
	Scene  *scene.Scene
	camera *scene.Camera

	orbiter scene.EntityID
	angle   float32
}

func New(device gpu.Device, aspect float32) (*Testbed, error) {
	scn := scene.New()

	camera := scene.NewCamera(1.1, aspect, 0.1, 500)
	camera.Transform.Position = glm.Vec3{0, 3, 8}
	scn.SetCamera(camera)

	scn.SetDirLight(&scene.DirectionalLight{
		Direction: glm.Vec3{-0.4, -1, -0.2},
		Radiance:  glm.Vec3{4, 3.9, 3.6},
	})
	scn.SetSkyLight(&scene.SkyLight{Radiance: glm.Vec3{0.3, 0.4, 0.6}})
	scn.AddPointLight(scene.PointLight{
		Position: glm.Vec3{0, 2.5, 0},
		Radiance: glm.Vec3{12, 10, 6},
	})

	cube, err := cubeMesh(device)
	if err != nil {
		return nil, fmt.Errorf("cube mesh: %w", err)
	}
	ground, err := planeMesh(device)
	if err != nil {
		return nil, fmt.Errorf("ground mesh: %w", err)
	}

	scn.Spawn(metadata.Renderable{
		Mesh:     ground,
		Material: metadata.ColorMaterial(0.7, 0.7, 0.7, 1),
	}, scene.NewTransform())

	colors := [][4]float32{
		{0.9, 0.2, 0.2, 1},
		{0.2, 0.9, 0.2, 1},
		{0.2, 0.3, 0.9, 1},
		{0.9, 0.8, 0.1, 1},
		{0.7, 0.2, 0.9, 1},
		{0.1, 0.8, 0.8, 1},
	}
	for i, c := range colors {
		a := float64(i) / float64(len(colors)) * 2 * math.Pi
		tr := scene.TranslationTransform(4*float32(math.Cos(a)), 0.5, 4*float32(math.Sin(a)))
		scn.Spawn(metadata.Renderable{
			Mesh:     cube,
			Material: metadata.ColorMaterial(c[0], c[1], c[2], c[3]),
		}, tr)
	}

	t := &Testbed{Scene: scn, camera: camera}
	t.orbiter = scn.Spawn(metadata.Renderable{
		Mesh:     cube,
		Material: metadata.ColorMaterial(1, 1, 1, 1),
	}, scene.TranslationTransform(0, 1.5, 0))
	return t, nil
}

// Update advances the animation by dt seconds.
func (t *Testbed) Update(dt float64) {
	t.angle += float32(dt) * 0.8

	tr := scene.TranslationTransform(
		2*float32(math.Cos(float64(t.angle))),
		1.5,
		2*float32(math.Sin(float64(t.angle))),
	)
	tr.Rotation = glm.QuatRotate(t.angle, &glm.Vec3{0, 1, 0})
	t.Scene.SetTransform(t.orbiter, tr)

	camAngle := float64(t.angle) * 0.25
	t.camera.Transform.Position = glm.Vec3{
		8 * float32(math.Sin(camAngle)),
		3,
		8 * float32(math.Cos(camAngle)),
	}
	center := glm.Vec3{0, 1, 0}
	t.camera.Transform.Rotation = lookRotation(&t.camera.Transform.Position, &center)
}

// lookRotation builds the quaternion turning -Z toward center.
func lookRotation(eye, center *glm.Vec3) glm.Quat {
	dir := center.Sub(eye)
	dir = dir.Normalized()
	yaw := float32(math.Atan2(float64(-dir[0]), float64(-dir[2])))
	pitch := float32(math.Asin(float64(dir[1])))
	up := glm.Vec3{0, 1, 0}
	right := glm.Vec3{1, 0, 0}
	qYaw := glm.QuatRotate(yaw, &up)
	qPitch := glm.QuatRotate(pitch, &right)
	return qYaw.Mul(&qPitch)
}

func appendVertex(data []byte, px, py, pz, nx, ny, nz, u, v float32) []byte {
	for _, f := range [8]float32{px, py, pz, nx, ny, nz, u, v} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
	}
	return data
}

// cubeMesh uploads a unit cube, 24 vertices and 36 indices.
func cubeMesh(device gpu.Device) (*metadata.Mesh, error) {
	type face struct {
		normal  glm.Vec3
		corners [4]glm.Vec3
	}
	h := float32(0.5)
	faces := []face{
		{glm.Vec3{0, 0, 1}, [4]glm.Vec3{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{glm.Vec3{0, 0, -1}, [4]glm.Vec3{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{glm.Vec3{1, 0, 0}, [4]glm.Vec3{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{glm.Vec3{-1, 0, 0}, [4]glm.Vec3{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{glm.Vec3{0, 1, 0}, [4]glm.Vec3{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{glm.Vec3{0, -1, 0}, [4]glm.Vec3{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}

	var vertices []byte
	var indices []byte
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for fi, f := range faces {
		for ci, c := range f.corners {
			vertices = appendVertex(vertices,
				c[0], c[1], c[2],
				f.normal[0], f.normal[1], f.normal[2],
				uvs[ci][0], uvs[ci][1])
		}
		base := uint32(fi * 4)
		for _, idx := range [6]uint32{0, 1, 2, 0, 2, 3} {
			indices = binary.LittleEndian.AppendUint32(indices, base+idx)
		}
	}
	return uploadMesh(device, "cube", vertices, indices, 36, 24)
}

// planeMesh uploads a 20x20 ground quad.
func planeMesh(device gpu.Device) (*metadata.Mesh, error) {
	s := float32(10)
	var vertices []byte
	vertices = appendVertex(vertices, -s, 0, -s, 0, 1, 0, 0, 0)
	vertices = appendVertex(vertices, s, 0, -s, 0, 1, 0, 1, 0)
	vertices = appendVertex(vertices, s, 0, s, 0, 1, 0, 1, 1)
	vertices = appendVertex(vertices, -s, 0, s, 0, 1, 0, 0, 1)

	var indices []byte
	for _, idx := range [6]uint32{0, 1, 2, 0, 2, 3} {
		indices = binary.LittleEndian.AppendUint32(indices, idx)
	}
	return uploadMesh(device, "ground", vertices, indices, 6, 4)
}

func uploadMesh(device gpu.Device, name string, vertices, indices []byte, count, vertexCount uint32) (*metadata.Mesh, error) {
	vb, err := device.CreateBufferStatic(gpu.BufferInfo{
		Size:   uint64(len(vertices)),
		Usage:  gpu.BufferUsageVertex | gpu.BufferUsageStorage | gpu.BufferUsageDeviceAddress | gpu.BufferUsageAccelerationStructureInput,
		Memory: gpu.MemoryFastDeviceAccess,
		Name:   name + "-vertices",
	}, vertices)
	if err != nil {
		return nil, err
	}
	ib, err := device.CreateBufferStatic(gpu.BufferInfo{
		Size:   uint64(len(indices)),
		Usage:  gpu.BufferUsageIndex | gpu.BufferUsageStorage | gpu.BufferUsageDeviceAddress | gpu.BufferUsageAccelerationStructureInput,
		Memory: gpu.MemoryFastDeviceAccess,
		Name:   name + "-indices",
	}, indices)
	if err != nil {
		return nil, err
	}
	return metadata.NewMeshBuilder().
		AddBinding(vb, 0, metadata.PositionNormalUV3D()).
		SetIndices(ib, 0, gpu.IndexTypeU32).
		Build(count, vertexCount), nil
}
