// Package renderer is the frame orchestration core: the bindless
// resource registries, the acceleration-structure lifecycle, the
// double-buffered frame memory and the pass pipeline that turns a scene
// into a presented image, all speaking to the GPU through the gpu
// capability interface.
package renderer

import (
	"fmt"
	"sync"

	"github.com/spectraldev/spectral/engine/config"
	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/scene"
)

// Renderer owns the pipeline and the swapchain loop. One Renderer per
// device; Draw is not safe for concurrent use.
type Renderer struct {
	device    gpu.Device
	queue     gpu.Queue
	swapchain gpu.Swapchain

	cache    *AccelerationStructureCache
	pipeline *PathTracePipeline
	metrics  *core.FrameMetrics

	tunablesMu sync.Mutex
	tunables   config.Tunables

	watcher *config.Watcher
}

// New builds every GPU resource the renderer needs up front. Any
// failure aborts construction; a Renderer is never half-initialized.
func New(device gpu.Device, queue gpu.Queue, swapchain gpu.Swapchain, cfg *config.Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if swapchain.Format() == gpu.FormatUndefined {
		if err := swapchain.Configure(gpu.ImageUsageTransferDst, gpu.FormatBGRA8Srgb); err != nil {
			return nil, fmt.Errorf("configure swapchain: %w", err)
		}
	}

	blueNoise, err := LoadBlueNoise(device, cfg.BlueNoisePath)
	if err != nil {
		return nil, err
	}

	cache := NewAccelerationStructureCache(device)
	pipeline, err := NewPathTracePipeline(device, queue, cfg, blueNoise, cache)
	if err != nil {
		return nil, err
	}

	core.LogInfo("renderer up: %d instances, %d point lights, %d frames in flight",
		cfg.Capacities.MaxInstanceCount, cfg.Capacities.MaxPointLights, cfg.Capacities.FramesInFlight)

	return &Renderer{
		device:    device,
		queue:     queue,
		swapchain: swapchain,
		cache:     cache,
		pipeline:  pipeline,
		metrics:   core.NewFrameMetrics(),
		tunables:  cfg.Tunables,
	}, nil
}

// WatchConfig reloads tunables from path while running. Capacities stay
// frozen at their construction values.
func (r *Renderer) WatchConfig(path string, baseline config.Capacities) error {
	w, err := config.Watch(path, baseline, r.SetTunables)
	if err != nil {
		return fmt.Errorf("watch config %s: %w", path, err)
	}
	r.watcher = w
	return nil
}

// SetTunables applies new rendering options from the next frame on.
// Safe to call from any goroutine.
func (r *Renderer) SetTunables(t config.Tunables) {
	r.tunablesMu.Lock()
	r.tunables = t
	r.tunablesMu.Unlock()
}

func (r *Renderer) currentTunables() config.Tunables {
	r.tunablesMu.Lock()
	defer r.tunablesMu.Unlock()
	return r.tunables
}

// Draw renders and presents one frame. A nil acquire means the surface
// is out of date; the swapchain is reconfigured and the acquire retried
// once before giving up on the frame.
func (r *Renderer) Draw(scn *scene.Scene, clock *core.Clock) error {
	clock.Update()
	r.metrics.Update(clock.DeltaSeconds())

	frame, err := r.swapchain.AcquireImage()
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	if frame == nil {
		core.LogDebug("surface out of date; reconfiguring swapchain")
		if err := r.swapchain.Configure(gpu.ImageUsageTransferDst, r.swapchain.Format()); err != nil {
			return fmt.Errorf("reconfigure swapchain: %w", err)
		}
		if frame, err = r.swapchain.AcquireImage(); err != nil {
			return fmt.Errorf("acquire after reconfigure: %w", err)
		}
		if frame == nil {
			return nil
		}
	}

	if err := r.pipeline.Draw(*frame, scn, r.currentTunables()); err != nil {
		return err
	}

	if err := r.queue.Present(*frame); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Metrics exposes the rolling FPS and frame-time counters.
func (r *Renderer) Metrics() *core.FrameMetrics { return r.metrics }

// Frame is the number of frames successfully drawn.
func (r *Renderer) Frame() uint64 { return r.pipeline.Frame() }

// Shutdown drains the device. Call after the render loop exits, never
// while a Draw is running.
func (r *Renderer) Shutdown() error {
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			core.LogWarn("config watcher close: %s", err.Error())
		}
	}
	if err := r.device.WaitIdle(); err != nil {
		return fmt.Errorf("drain device: %w", err)
	}
	core.LogInfo("renderer down after %d frames", r.pipeline.Frame())
	return nil
}
