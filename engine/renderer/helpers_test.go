package renderer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spectraldev/spectral/engine/config"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/gpu/gputest"
	"github.com/spectraldev/spectral/engine/renderer/metadata"
	"github.com/spectraldev/spectral/engine/scene"
)

var (
	blueNoiseOnce sync.Once
	blueNoisePath string
)

// testConfig shares one blue-noise cache file across the package so
// only the first harness pays for generation.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	blueNoiseOnce.Do(func() {
		dir, err := os.MkdirTemp("", "spectral-test")
		if err != nil {
			t.Fatalf("temp dir: %v", err)
		}
		blueNoisePath = filepath.Join(dir, "blue_noise.tmp")
	})
	cfg := config.Default()
	cfg.BlueNoisePath = blueNoisePath
	return cfg
}

// triangleMesh builds an indexed single-triangle mesh over fresh device
// buffers. Distinct calls produce meshes with distinct structural keys.
func triangleMesh(t *testing.T, device gpu.Device) *metadata.Mesh {
	t.Helper()
	layout := metadata.PositionNormalUV3D()
	vertices, err := device.CreateBuffer(gpu.BufferInfo{
		Size:  uint64(layout.Stride) * 3,
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageStorage | gpu.BufferUsageDeviceAddress,
		Name:  "test-vertices",
	})
	if err != nil {
		t.Fatalf("vertex buffer: %v", err)
	}
	indices, err := device.CreateBuffer(gpu.BufferInfo{
		Size:  3 * 4,
		Usage: gpu.BufferUsageIndex | gpu.BufferUsageStorage | gpu.BufferUsageDeviceAddress,
		Name:  "test-indices",
	})
	if err != nil {
		t.Fatalf("index buffer: %v", err)
	}
	return metadata.NewMeshBuilder().
		AddBinding(vertices, 0, layout).
		SetIndices(indices, 0, gpu.IndexTypeU32).
		Build(3, 3)
}

type testHarness struct {
	device    *gputest.Device
	queue     *gputest.Queue
	swapchain *gputest.Swapchain
	renderer  *Renderer
	scene     *scene.Scene
}

func newTestHarness(t *testing.T, cfg *config.Config) *testHarness {
	t.Helper()
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	swapchain := gputest.NewSwapchain(device, gpu.Extent2D{Width: 640, Height: 480}, gpu.FormatBGRA8Srgb)

	r, err := New(device, queue, swapchain, cfg)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	scn := scene.New()
	scn.SetCamera(scene.NewCamera(1.2, 640.0/480.0, 0.1, 1000))

	return &testHarness{
		device:    device,
		queue:     queue,
		swapchain: swapchain,
		renderer:  r,
		scene:     scn,
	}
}

func (h *testHarness) drawFrame(t *testing.T) {
	t.Helper()
	frame, err := h.swapchain.AcquireImage()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := h.renderer.pipeline.Draw(*frame, h.scene, h.renderer.currentTunables()); err != nil {
		t.Fatalf("draw: %v", err)
	}
}

func countCommands(device *gputest.Device, kind gputest.CommandKind) int {
	n := 0
	for _, cmd := range device.Commands() {
		if cmd.Kind == kind {
			n++
		}
	}
	return n
}
