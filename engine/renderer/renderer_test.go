package renderer

import (
	"errors"
	"testing"

	"github.com/spectraldev/spectral/engine/config"
	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/gpu/gputest"
	"github.com/spectraldev/spectral/engine/renderer/metadata"
	"github.com/spectraldev/spectral/engine/scene"
)

func TestEmptySceneStillBuildsTopLevel(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	h.drawFrame(t)

	if got := h.device.CountBuilds(gpu.AccelerationStructureBottom); got != 0 {
		t.Errorf("bottom-level builds = %d, want 0", got)
	}
	if got := h.device.CountBuilds(gpu.AccelerationStructureTop); got != 1 {
		t.Errorf("top-level builds = %d, want 1", got)
	}
	if countCommands(h.device, gputest.CmdTraceRays) != 1 {
		t.Error("no trace recorded")
	}
	if countCommands(h.device, gputest.CmdBlitImage) != 1 {
		t.Error("no blit to the swapchain image recorded")
	}
}

func TestSharedMeshBuiltOnce(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	mesh := triangleMesh(t, h.device)
	r := metadata.Renderable{Mesh: mesh, Material: metadata.ColorMaterial(1, 0, 0, 1)}
	h.scene.Spawn(r, scene.TranslationTransform(-1, 0, 0))
	h.scene.Spawn(r, scene.TranslationTransform(1, 0, 0))

	for i := 0; i < 3; i++ {
		h.drawFrame(t)
	}

	if got := h.device.CountBuilds(gpu.AccelerationStructureBottom); got != 1 {
		t.Errorf("bottom-level builds = %d, want 1 for a shared mesh over 3 frames", got)
	}
	if got := h.device.CountBuilds(gpu.AccelerationStructureTop); got != 3 {
		t.Errorf("top-level builds = %d, want 3 (every frame)", got)
	}

	// Both entities land in the instance region each frame.
	frameBufferID := h.renderer.pipeline.prepass.frameBuffer.ID()
	layout := h.renderer.pipeline.prepass.layout
	var instanceWrites []gputest.MemoryWrite
	for _, w := range h.device.Writes {
		if w.BufferID == frameBufferID && w.Size == 2*instanceWireSize {
			instanceWrites = append(instanceWrites, w)
		}
	}
	if len(instanceWrites) != 3 {
		t.Fatalf("instance-region writes = %d, want 3", len(instanceWrites))
	}
	for frame, w := range instanceWrites {
		want := layout.Instances.Offset(layout.Parity(uint64(frame)))
		if w.Offset != want {
			t.Errorf("frame %d instance write at offset %d, want %d", frame, w.Offset, want)
		}
	}
}

func TestPosedMeshRebuiltEveryFrame(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	mesh := triangleMesh(t, h.device)
	h.scene.Spawn(metadata.Renderable{Mesh: mesh, Material: metadata.NewMaterial(), Posed: true}, scene.NewTransform())

	h.drawFrame(t)
	h.drawFrame(t)

	if got := h.device.CountBuilds(gpu.AccelerationStructureBottom); got != 2 {
		t.Errorf("bottom-level builds = %d, want 2 (posed geometry rebuilds per frame)", got)
	}
	if h.renderer.pipeline.cache.Len() != 1 {
		t.Errorf("cache holds %d structures, want 1 reused in place", h.renderer.pipeline.cache.Len())
	}
}

func TestPosedRebuildOrderedAfterPriorReads(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	mesh := triangleMesh(t, h.device)
	h.scene.Spawn(metadata.Renderable{Mesh: mesh, Material: metadata.NewMaterial(), Posed: true}, scene.NewTransform())

	h.drawFrame(t)
	h.drawFrame(t)

	// Frame 1 rewrites the structure frame 0's top-level build and
	// trace read; a barrier must separate them in the stream.
	cmds := h.device.Commands()
	firstTrace, rebuild, triangleBuilds := -1, -1, 0
	for i, c := range cmds {
		switch c.Kind {
		case gputest.CmdTraceRays:
			if firstTrace < 0 {
				firstTrace = i
			}
		case gputest.CmdBuildAccelerationStructure:
			if c.Builds[0].Triangles != nil {
				triangleBuilds++
				if triangleBuilds == 2 {
					rebuild = i
				}
			}
		}
	}
	if firstTrace < 0 || rebuild < 0 || rebuild < firstTrace {
		t.Fatalf("stream lacks first trace (%d) before the in-place rebuild (%d)", firstTrace, rebuild)
	}

	found := false
	for _, c := range cmds[firstTrace+1 : rebuild] {
		if c.Kind == gputest.CmdPipelineBarrier &&
			c.Src&gpu.StageRayTracingShader != 0 &&
			c.Dst&gpu.StageAccelerationStructureBuild != 0 {
			found = true
		}
	}
	if !found {
		t.Error("no barrier orders the previous frame's reads before the rebuild")
	}
}

func TestFenceProtocolBootstrap(t *testing.T) {
	h := newTestHarness(t, testConfig(t))

	// The first framesInFlight frames have no predecessor to wait on.
	h.drawFrame(t)
	h.drawFrame(t)
	if h.device.FenceWaits != 0 || h.device.FenceResets != 0 {
		t.Fatalf("bootstrap frames waited: waits %d resets %d", h.device.FenceWaits, h.device.FenceResets)
	}

	h.drawFrame(t)
	if h.device.FenceWaits != 1 || h.device.FenceResets != 1 {
		t.Fatalf("frame 2: waits %d resets %d, want 1 and 1", h.device.FenceWaits, h.device.FenceResets)
	}
	h.drawFrame(t)
	if h.device.FenceWaits != 2 || h.device.FenceResets != 2 {
		t.Fatalf("frame 3: waits %d resets %d, want 2 and 2", h.device.FenceWaits, h.device.FenceResets)
	}
}

func TestTooManyInstancesReportedBeforeGPUWrites(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capacities.MaxInstanceCount = 1
	h := newTestHarness(t, cfg)
	mesh := triangleMesh(t, h.device)
	r := metadata.Renderable{Mesh: mesh, Material: metadata.NewMaterial()}
	h.scene.Spawn(r, scene.NewTransform())
	h.scene.Spawn(r, scene.TranslationTransform(1, 0, 0))

	frame, err := h.swapchain.AcquireImage()
	if err != nil {
		t.Fatal(err)
	}
	err = h.renderer.pipeline.Draw(*frame, h.scene, h.renderer.currentTunables())
	if !errors.Is(err, core.ErrTooManyInstances) {
		t.Fatalf("err = %v, want ErrTooManyInstances", err)
	}
	if got := h.renderer.pipeline.Frame(); got != 0 {
		t.Errorf("frame counter advanced to %d on a failed frame", got)
	}
	frameBufferID := h.renderer.pipeline.prepass.frameBuffer.ID()
	for _, w := range h.device.Writes {
		if w.BufferID == frameBufferID {
			t.Fatalf("frame data written (offset %d) despite the capacity error", w.Offset)
		}
	}

	// Dropping an entity makes the next frame render.
	h.scene.Despawn(2)
	h.drawFrame(t)
}

func TestFailedFrameLeavesFenceUsable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capacities.MaxInstanceCount = 1
	h := newTestHarness(t, cfg)
	mesh := triangleMesh(t, h.device)
	r := metadata.Renderable{Mesh: mesh, Material: metadata.NewMaterial()}
	h.scene.Spawn(r, scene.NewTransform())

	h.drawFrame(t)
	h.drawFrame(t)

	// Frame 2 reuses frame 0's fence slot: it waits, resets, and then
	// fails before any submission could carry the fence.
	extra := h.scene.Spawn(r, scene.TranslationTransform(1, 0, 0))
	frame, err := h.swapchain.AcquireImage()
	if err != nil {
		t.Fatal(err)
	}
	err = h.renderer.pipeline.Draw(*frame, h.scene, h.renderer.currentTunables())
	if !errors.Is(err, core.ErrTooManyInstances) {
		t.Fatalf("err = %v, want ErrTooManyInstances", err)
	}
	if h.device.FenceWaits != 1 || h.device.FenceResets != 1 {
		t.Fatalf("failed frame: waits %d resets %d, want 1 and 1", h.device.FenceWaits, h.device.FenceResets)
	}

	// Nothing will ever signal that fence; the retry must not wait on
	// it or the loop hangs on a conforming device.
	h.scene.Despawn(extra)
	h.drawFrame(t)
	if h.device.FenceWaits != 1 {
		t.Fatalf("retry waited on a fence no submission carries (waits = %d)", h.device.FenceWaits)
	}
	if got := h.renderer.pipeline.Frame(); got != 3 {
		t.Fatalf("frame counter = %d, want 3 after the retry", got)
	}

	// The retry's submission carried the fence, so waiting resumes on
	// the slot's next turn.
	h.drawFrame(t)
	h.drawFrame(t)
	if h.device.FenceWaits != 3 {
		t.Errorf("steady state after recovery: waits = %d, want 3", h.device.FenceWaits)
	}
}

func TestDeviceLostPropagates(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	h.drawFrame(t)
	h.drawFrame(t)

	h.device.Lost = true
	frame, err := h.swapchain.AcquireImage()
	if err != nil {
		t.Fatal(err)
	}
	err = h.renderer.pipeline.Draw(*frame, h.scene, h.renderer.currentTunables())
	if !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
}

// prepassImageWrites counts storage-image descriptor writes landing in
// the prepass per-frame sets, which is how output re-binding after a
// resize shows up.
func prepassImageWrites(h *testHarness) int {
	n := 0
	for _, w := range h.device.DescriptorWrites {
		if len(w.Descriptors.StorageImages) == 0 {
			continue
		}
		for _, set := range h.renderer.pipeline.prepass.perFrameSets {
			if w.Set == set {
				n++
			}
		}
	}
	return n
}

func TestResizeRebindsEveryParity(t *testing.T) {
	h := newTestHarness(t, testConfig(t))

	h.drawFrame(t)
	h.drawFrame(t)
	h.drawFrame(t)
	if got := prepassImageWrites(h); got != 10 {
		t.Fatalf("output bindings after 3 frames = %d, want 10 (5 per parity, once)", got)
	}

	h.swapchain.SetExtent(gpu.Extent2D{Width: 1280, Height: 720})
	h.drawFrame(t)
	if got := prepassImageWrites(h); got != 15 {
		t.Fatalf("output bindings after resize frame = %d, want 15", got)
	}
	h.drawFrame(t)
	if got := prepassImageWrites(h); got != 20 {
		t.Fatalf("output bindings after both parities saw the resize = %d, want 20", got)
	}
	h.drawFrame(t)
	if got := prepassImageWrites(h); got != 20 {
		t.Fatalf("steady state after resize rebound outputs again: %d writes", got)
	}
}

func TestBarrierOrderingAroundTopLevelBuild(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	mesh := triangleMesh(t, h.device)
	h.scene.Spawn(metadata.Renderable{Mesh: mesh, Material: metadata.NewMaterial()}, scene.NewTransform())
	h.drawFrame(t)

	// Find the prepass submission: the one that traces.
	var cmds []gputest.Command
	for _, s := range h.device.Submissions {
		for _, c := range s.Commands {
			if c.Kind == gputest.CmdTraceRays {
				cmds = s.Commands
			}
		}
	}
	if cmds == nil {
		t.Fatal("no submission traced rays")
	}

	idx := func(match func(gputest.Command) bool) int {
		for i, c := range cmds {
			if match(c) {
				return i
			}
		}
		return -1
	}
	buildBarrier := idx(func(c gputest.Command) bool {
		return c.Kind == gputest.CmdPipelineBarrier &&
			c.Src == gpu.StageAccelerationStructureBuild && c.Dst == gpu.StageAccelerationStructureBuild
	})
	topBuild := idx(func(c gputest.Command) bool {
		return c.Kind == gputest.CmdBuildAccelerationStructure && c.Builds[0].Instances != nil
	})
	traceBarrier := idx(func(c gputest.Command) bool {
		return c.Kind == gputest.CmdPipelineBarrier &&
			c.Src == gpu.StageAccelerationStructureBuild && c.Dst == gpu.StageRayTracingShader
	})
	trace := idx(func(c gputest.Command) bool { return c.Kind == gputest.CmdTraceRays })

	if buildBarrier < 0 || topBuild < 0 || traceBarrier < 0 || trace < 0 {
		t.Fatalf("missing commands: barriers %d/%d build %d trace %d", buildBarrier, traceBarrier, topBuild, trace)
	}
	if !(buildBarrier < topBuild && topBuild < traceBarrier && traceBarrier < trace) {
		t.Fatalf("bad ordering: buildBarrier %d, topBuild %d, traceBarrier %d, trace %d",
			buildBarrier, topBuild, traceBarrier, trace)
	}
}

func TestFilterToggleControlsDispatches(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tunables.FilterEnabled = false
	h := newTestHarness(t, cfg)
	h.drawFrame(t)
	if got := countCommands(h.device, gputest.CmdDispatch); got != 1 {
		t.Fatalf("dispatches with filter off = %d, want 1 (compose only)", got)
	}

	// 3 iterations, 2 dispatches each, 2 filter instances, plus compose.
	h.renderer.SetTunables(config.Default().Tunables)
	before := countCommands(h.device, gputest.CmdDispatch)
	h.drawFrame(t)
	if got := countCommands(h.device, gputest.CmdDispatch) - before; got != 13 {
		t.Fatalf("dispatches with filter on = %d, want 13", got)
	}
}

func TestSteadyStateIssuesNoDescriptorWrites(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	mesh := triangleMesh(t, h.device)
	h.scene.Spawn(metadata.Renderable{Mesh: mesh, Material: metadata.NewMaterial()}, scene.NewTransform())

	h.drawFrame(t)
	h.drawFrame(t)
	afterWarmup := len(h.device.DescriptorWrites)
	h.drawFrame(t)
	h.drawFrame(t)
	if got := len(h.device.DescriptorWrites); got != afterWarmup {
		t.Fatalf("steady-state frames issued %d descriptor writes", got-afterWarmup)
	}
}

func TestRendererDrawPresents(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	clock := core.NewClock()
	clock.Start()

	for i := 0; i < 3; i++ {
		if err := h.renderer.Draw(h.scene, clock); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}
	if h.device.Presented != 3 {
		t.Errorf("presented %d frames, want 3", h.device.Presented)
	}
	if h.renderer.Frame() != 3 {
		t.Errorf("frame counter = %d, want 3", h.renderer.Frame())
	}
	if err := h.renderer.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if h.device.IdleWaits != 1 {
		t.Errorf("shutdown drained the device %d times, want 1", h.device.IdleWaits)
	}
}

func TestMissingCameraSkipsFrame(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	h.scene.SetCamera(nil)

	frame, err := h.swapchain.AcquireImage()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.renderer.pipeline.Draw(*frame, h.scene, h.renderer.currentTunables()); err != nil {
		t.Fatalf("camera-less draw errored: %v", err)
	}
	if len(h.device.Submissions) != 0 {
		t.Errorf("%d submissions without a camera", len(h.device.Submissions))
	}
	if h.renderer.Frame() != 0 {
		t.Errorf("frame counter advanced without a camera")
	}
}

func TestComposeTargetsCachedPerExtent(t *testing.T) {
	h := newTestHarness(t, testConfig(t))
	extents := []gpu.Extent2D{
		{Width: 640, Height: 480},
		{Width: 800, Height: 600},
		{Width: 1280, Height: 720},
		{Width: 1920, Height: 1080},
	}
	for _, e := range extents {
		h.swapchain.SetExtent(e)
		h.drawFrame(t)
	}
	if got := h.renderer.pipeline.compose.targets.Len(); got != 3 {
		t.Errorf("compose target cache holds %d entries, want 3 after cycling 4 extents", got)
	}

	// Returning to a still-cached extent reuses its entry.
	h.swapchain.SetExtent(extents[2])
	h.drawFrame(t)
	if got := h.renderer.pipeline.compose.targets.Len(); got != 3 {
		t.Errorf("cache grew to %d entries on a cached extent", got)
	}
}
