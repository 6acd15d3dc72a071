package renderer

import (
	"fmt"

	"github.com/spectraldev/spectral/engine/config"
	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/renderer/metadata"
	"github.com/spectraldev/spectral/engine/scene"
)

// PathTracePipeline sequences one frame: fence bootstrap, bottom-level
// builds for meshes the cache has not seen, the ray-trace prepass, the
// two denoiser instances and the compose pass. It owns the frame
// counter and the in-flight fences; no other component waits or resets.
type PathTracePipeline struct {
	device gpu.Device
	queue  gpu.Queue
	cache  *AccelerationStructureCache

	prepass       *RayTracePass
	diffuseFilter *ATrousFilter
	directFilter  *ATrousFilter
	compose       *ComposePass
	sampler       gpu.Sampler

	fences []gpu.Fence
	// fenceInFlight[slot] marks that fences[slot] was handed to a
	// compose submission and has not been waited on since. A failed
	// frame submits nothing, so its slot's fence must not be waited on
	// again until some later frame actually carries it.
	fenceInFlight []bool
	frame         uint64
}

func NewPathTracePipeline(device gpu.Device, queue gpu.Queue, cfg *config.Config, blueNoise gpu.Buffer, cache *AccelerationStructureCache) (*PathTracePipeline, error) {
	caps := cfg.Capacities
	layout := NewFrameLayout(caps.MaxInstanceCount, caps.MaxPointLights, caps.FramesInFlight)

	sampler, err := device.CreateSampler(gpu.SamplerInfo{AddressMode: gpu.AddressModeClampToEdge})
	if err != nil {
		return nil, fmt.Errorf("pass sampler: %w", err)
	}

	prepass, err := NewRayTracePass(device, queue, layout, caps, blueNoise)
	if err != nil {
		return nil, err
	}
	diffuseFilter, err := NewATrousFilter(device, queue, "diffuse")
	if err != nil {
		return nil, err
	}
	directFilter, err := NewATrousFilter(device, queue, "direct")
	if err != nil {
		return nil, err
	}
	compose, err := NewComposePass(device, queue, sampler)
	if err != nil {
		return nil, err
	}

	fences := make([]gpu.Fence, caps.FramesInFlight)
	for i := range fences {
		if fences[i], err = device.CreateFence(); err != nil {
			return nil, fmt.Errorf("frame fence %d: %w", i, err)
		}
	}

	return &PathTracePipeline{
		device:        device,
		queue:         queue,
		cache:         cache,
		prepass:       prepass,
		diffuseFilter: diffuseFilter,
		directFilter:  directFilter,
		compose:       compose,
		sampler:       sampler,
		fences:        fences,
		fenceInFlight: make([]bool, caps.FramesInFlight),
	}, nil
}

// Frame is the number of frames successfully drawn so far.
func (p *PathTracePipeline) Frame() uint64 { return p.frame }

// buildAccelerationStructures records bottom-level builds for meshes the
// cache has not seen, plus the per-frame rebuilds of posed geometry, in
// one fire-and-forget submission ahead of the prepass.
func (p *PathTracePipeline) buildAccelerationStructures(scn *scene.Scene) error {
	var enc gpu.Encoder
	var buildErr error
	scn.Each(func(id scene.EntityID, r *metadata.Renderable, t *scene.Transform) {
		if buildErr != nil || r.Mesh == nil {
			return
		}
		if !r.Posed {
			if _, ok := p.cache.Lookup(r.Mesh); ok {
				return
			}
		}
		if enc == nil {
			if enc, buildErr = p.queue.CreateEncoder(); buildErr != nil {
				return
			}
			// In-place rebuilds of posed geometry overwrite structures
			// the previous frame's top-level build and trace may still
			// be reading; only the frame before that is fenced.
			enc.PipelineBarrier(
				gpu.StageRayTracingShader|gpu.StageAccelerationStructureBuild,
				gpu.StageAccelerationStructureBuild,
			)
		}
		if r.Posed {
			_, buildErr = p.cache.GetOrBuildAnimated(id, r.Mesh, enc)
		} else {
			_, buildErr = p.cache.GetOrBuild(r.Mesh, enc)
		}
	})
	if buildErr != nil {
		return buildErr
	}
	if enc == nil {
		return nil
	}
	if err := p.queue.SubmitNoSemaphores(enc.Finish(), nil); err != nil {
		return fmt.Errorf("acceleration structure submit: %w", err)
	}
	return nil
}

// Draw renders one frame into the acquired swapchain image. On error the
// frame counter does not advance; a per-frame error leaves every cache
// and registry intact.
func (p *PathTracePipeline) Draw(frame gpu.SwapchainFrame, scn *scene.Scene, tunables config.Tunables) error {
	camera := scn.Camera()
	if camera == nil {
		core.LogWarn("no camera in scene; frame skipped")
		return nil
	}

	slot := p.frame % uint64(len(p.fences))
	fence := p.fences[slot]
	if p.fenceInFlight[slot] {
		if err := p.device.WaitFences([]gpu.Fence{fence}, true); err != nil {
			return fmt.Errorf("frame %d fence: %w", p.frame, err)
		}
		if err := p.device.ResetFences([]gpu.Fence{fence}); err != nil {
			return fmt.Errorf("frame %d fence reset: %w", p.frame, err)
		}
		p.fenceInFlight[slot] = false
	}

	if err := p.buildAccelerationStructures(scn); err != nil {
		return err
	}

	gbuffer, err := p.prepass.Draw(RayTraceInput{
		Extent: frame.Image.Info().Extent,
		Scene:  scn,
		Camera: camera,
		Cache:  p.cache,
		Frame:  p.frame,
	})
	if err != nil {
		return err
	}

	direct, diffuse := gbuffer.Direct, gbuffer.Diffuse
	if tunables.FilterEnabled && tunables.FilterIterations > 0 {
		diffuse, err = p.diffuseFilter.Draw(ATrousInput{
			NormalDepth: gbuffer.NormalDepth,
			Source:      gbuffer.Diffuse,
			Iterations:  tunables.FilterIterations,
		}, p.sampler)
		if err != nil {
			return err
		}
		direct, err = p.directFilter.Draw(ATrousInput{
			NormalDepth: gbuffer.NormalDepth,
			Source:      gbuffer.Direct,
			Iterations:  tunables.FilterIterations,
		}, p.sampler)
		if err != nil {
			return err
		}
	}

	err = p.compose.Draw(ComposeInput{
		Albedo:      gbuffer.Albedo,
		NormalDepth: gbuffer.NormalDepth,
		Emissive:    gbuffer.Emissive,
		Direct:      direct,
		Diffuse:     diffuse,
		Frame:       frame,
		Exposure:    1,
	}, fence)
	if err != nil {
		return err
	}

	p.fenceInFlight[slot] = true
	p.frame++
	return nil
}
