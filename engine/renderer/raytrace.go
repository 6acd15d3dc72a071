package renderer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spectraldev/spectral/engine/config"
	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/renderer/metadata"
	"github.com/spectraldev/spectral/engine/scene"
)

// Bindless set bindings (set 0).
const (
	bindTLAS = iota
	bindBlueNoise
	bindIndexBuffers
	bindVertexBuffers
	bindAlbedoTextures
	bindNormalTextures
)

// Per-frame set bindings (set 1).
const (
	bindGlobals = iota
	bindInstances
	bindPointLights
	bindOutAlbedo
	bindOutNormalDepth
	bindOutEmissive
	bindOutDirect
	bindOutDiffuse
)

type renderTarget struct {
	image gpu.Image
	view  gpu.ImageView
}

type renderTargets struct {
	albedo      renderTarget
	normalDepth renderTarget
	emissive    renderTarget
	direct      renderTarget
	diffuse     renderTarget
	extent      gpu.Extent2D
}

// RayTraceInput is the per-frame state the prepass consumes.
type RayTraceInput struct {
	Extent gpu.Extent2D
	Scene  *scene.Scene
	Camera *scene.Camera
	Cache  *AccelerationStructureCache
	Frame  uint64
}

// RayTraceOutput names the G-buffer targets the downstream passes
// sample. All five are in ShaderReadOnly layout when Draw returns.
type RayTraceOutput struct {
	TLAS        gpu.AccelerationStructure
	Albedo      renderTarget
	NormalDepth renderTarget
	Emissive    renderTarget
	Direct      renderTarget
	Diffuse     renderTarget
}

// RayTracePass traces primary, diffuse-bounce and shadow rays over the
// scene's acceleration structures and writes the raw G-buffer. It owns
// the top-level structure, the frame data buffer and the bindless
// registries; everything here is allocated once at construction, the
// per-frame path only writes memory and descriptors.
type RayTracePass struct {
	device gpu.Device
	queue  gpu.Queue
	layout FrameLayout
	caps   config.Capacities

	bindlessLayout gpu.DescriptorSetLayout
	perFrameLayout gpu.DescriptorSetLayout
	pipelineLayout gpu.PipelineLayout
	pipeline       gpu.RayTracingPipeline
	sbt            gpu.ShaderBindingTable

	tlas        gpu.AccelerationStructure
	tlasScratch gpu.DeviceAddress
	frameBuffer gpu.Buffer

	bindlessSet  gpu.DescriptorSet
	perFrameSets []gpu.DescriptorSet
	// outputBound[p] records that per-frame set p points at the current
	// render targets; recreating the targets clears every entry.
	outputBound []bool
	targets     *renderTargets

	meshes         *SparseDescriptors[string]
	albedoTextures *SparseDescriptors[metadata.Texture]
	normalTextures *SparseDescriptors[metadata.Texture]

	// Pending descriptor writes survive a failed frame so a slot handed
	// out by the registry is never left pointing at nothing.
	writes []gpu.WriteDescriptorSet

	instWire    wireWriter
	accWire     wireWriter
	lightWire   wireWriter
	globalsWire wireWriter
}

func NewRayTracePass(device gpu.Device, queue gpu.Queue, layout FrameLayout, caps config.Capacities, blueNoise gpu.Buffer) (*RayTracePass, error) {
	p := &RayTracePass{
		device:         device,
		queue:          queue,
		layout:         layout,
		caps:           caps,
		meshes:         NewSparseDescriptors[string](caps.MaxInstanceCount),
		albedoTextures: NewSparseDescriptors[metadata.Texture](caps.MaxInstanceCount),
		normalTextures: NewSparseDescriptors[metadata.Texture](caps.MaxInstanceCount),
		perFrameSets:   make([]gpu.DescriptorSet, caps.FramesInFlight),
		outputBound:    make([]bool, caps.FramesInFlight),
	}

	var err error
	p.bindlessLayout, err = device.CreateDescriptorSetLayout(gpu.DescriptorSetLayoutInfo{
		UpdateAfterBind: true,
		Bindings: []gpu.DescriptorSetLayoutBinding{
			{Binding: bindTLAS, Type: gpu.DescriptorAccelerationStructure, Count: 1, Stages: gpu.ShaderStageRaygen | gpu.ShaderStageClosestHit},
			{Binding: bindBlueNoise, Type: gpu.DescriptorStorageBuffer, Count: 1, Stages: gpu.ShaderStageRaygen},
			{Binding: bindIndexBuffers, Type: gpu.DescriptorStorageBuffer, Count: caps.MaxInstanceCount, Stages: gpu.ShaderStageClosestHit,
				Flags: gpu.BindingPartiallyBound | gpu.BindingUpdateUnusedWhilePending},
			{Binding: bindVertexBuffers, Type: gpu.DescriptorStorageBuffer, Count: caps.MaxInstanceCount, Stages: gpu.ShaderStageClosestHit,
				Flags: gpu.BindingPartiallyBound | gpu.BindingUpdateUnusedWhilePending},
			{Binding: bindAlbedoTextures, Type: gpu.DescriptorCombinedImageSampler, Count: caps.MaxInstanceCount, Stages: gpu.ShaderStageClosestHit,
				Flags: gpu.BindingPartiallyBound | gpu.BindingUpdateUnusedWhilePending},
			{Binding: bindNormalTextures, Type: gpu.DescriptorCombinedImageSampler, Count: caps.MaxInstanceCount, Stages: gpu.ShaderStageClosestHit,
				Flags: gpu.BindingPartiallyBound | gpu.BindingUpdateUnusedWhilePending},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bindless set layout: %w", err)
	}

	p.perFrameLayout, err = device.CreateDescriptorSetLayout(gpu.DescriptorSetLayoutInfo{
		Bindings: []gpu.DescriptorSetLayoutBinding{
			{Binding: bindGlobals, Type: gpu.DescriptorUniformBuffer, Count: 1, Stages: gpu.ShaderStageRaygen | gpu.ShaderStageMiss | gpu.ShaderStageClosestHit},
			{Binding: bindInstances, Type: gpu.DescriptorStorageBuffer, Count: 1, Stages: gpu.ShaderStageClosestHit},
			{Binding: bindPointLights, Type: gpu.DescriptorStorageBuffer, Count: 1, Stages: gpu.ShaderStageClosestHit},
			{Binding: bindOutAlbedo, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageRaygen},
			{Binding: bindOutNormalDepth, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageRaygen},
			{Binding: bindOutEmissive, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageRaygen},
			{Binding: bindOutDirect, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageRaygen},
			{Binding: bindOutDiffuse, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageRaygen},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("per-frame set layout: %w", err)
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(gpu.PipelineLayoutInfo{
		Sets: []gpu.DescriptorSetLayout{p.bindlessLayout, p.perFrameLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}

	p.pipeline, err = device.CreateRayTracingPipeline(gpu.RayTracingPipelineInfo{
		Shaders: []gpu.ShaderInfo{
			{Name: "primary.rgen", Stage: gpu.ShaderStageRaygen},
			{Name: "primary.rmiss", Stage: gpu.ShaderStageMiss},
			{Name: "primary.rchit", Stage: gpu.ShaderStageClosestHit},
			{Name: "diffuse.rmiss", Stage: gpu.ShaderStageMiss},
			{Name: "diffuse.rchit", Stage: gpu.ShaderStageClosestHit},
			{Name: "shadow.rmiss", Stage: gpu.ShaderStageMiss},
		},
		Groups: []gpu.ShaderGroup{
			{Kind: gpu.GroupRaygen, Raygen: 0},
			{Kind: gpu.GroupMiss, Miss: 1},
			{Kind: gpu.GroupMiss, Miss: 3},
			{Kind: gpu.GroupMiss, Miss: 5},
			{Kind: gpu.GroupTriangles, ClosestHit: 2},
			{Kind: gpu.GroupTriangles, ClosestHit: 4},
		},
		MaxRecursionDepth: 2,
		Layout:            p.pipelineLayout,
	})
	if err != nil {
		return nil, fmt.Errorf("ray tracing pipeline: %w", err)
	}

	p.sbt, err = device.CreateShaderBindingTable(p.pipeline, gpu.ShaderBindingTableInfo{
		Raygen: 0,
		Miss:   []int{1, 2, 3},
		Hit:    []int{4, 5},
	})
	if err != nil {
		return nil, fmt.Errorf("shader binding table: %w", err)
	}

	p.tlas, err = device.CreateAccelerationStructure(gpu.AccelerationStructureInfo{
		Level:            gpu.AccelerationStructureTop,
		Flags:            gpu.ASPreferFastBuild,
		MaxInstanceCount: caps.MaxInstanceCount,
	})
	if err != nil {
		return nil, fmt.Errorf("top-level structure: %w", err)
	}
	tlasScratch, err := device.AllocateAccelerationStructureScratch(p.tlas)
	if err != nil {
		return nil, fmt.Errorf("top-level scratch: %w", err)
	}
	p.tlasScratch = device.BufferDeviceAddress(tlasScratch)

	p.frameBuffer, err = device.CreateBuffer(gpu.BufferInfo{
		Size:   layout.TotalSize(),
		Align:  bufferOffsetAlign,
		Usage:  gpu.BufferUsageUniform | gpu.BufferUsageStorage | gpu.BufferUsageDeviceAddress | gpu.BufferUsageAccelerationStructureInput,
		Memory: gpu.MemoryHostAccess | gpu.MemoryFastDeviceAccess,
		Name:   "frame-data-" + uuid.NewString()[:8],
	})
	if err != nil {
		return nil, fmt.Errorf("frame data buffer: %w", err)
	}

	p.bindlessSet, err = device.CreateDescriptorSet(gpu.DescriptorSetInfo{Layout: p.bindlessLayout})
	if err != nil {
		return nil, fmt.Errorf("bindless set: %w", err)
	}
	for i := range p.perFrameSets {
		p.perFrameSets[i], err = device.CreateDescriptorSet(gpu.DescriptorSetInfo{Layout: p.perFrameLayout})
		if err != nil {
			return nil, fmt.Errorf("per-frame set %d: %w", i, err)
		}
	}

	// Static descriptors: the top-level structure and blue noise never
	// move, and each per-frame set points at its slot of the frame
	// buffer forever.
	static := []gpu.WriteDescriptorSet{
		{Set: p.bindlessSet, Binding: bindTLAS, Descriptors: gpu.Descriptors{
			AccelerationStructures: []gpu.AccelerationStructure{p.tlas},
		}},
		{Set: p.bindlessSet, Binding: bindBlueNoise, Descriptors: gpu.Descriptors{
			StorageBuffers: []gpu.BufferRange{{Buffer: blueNoise, Size: blueNoise.Info().Size}},
		}},
	}
	for i, set := range p.perFrameSets {
		parity := uint64(i)
		static = append(static,
			gpu.WriteDescriptorSet{Set: set, Binding: bindGlobals, Descriptors: gpu.Descriptors{
				UniformBuffers: []gpu.BufferRange{{Buffer: p.frameBuffer, Offset: layout.Globals.Offset(parity), Size: layout.Globals.Size}},
			}},
			gpu.WriteDescriptorSet{Set: set, Binding: bindInstances, Descriptors: gpu.Descriptors{
				StorageBuffers: []gpu.BufferRange{{Buffer: p.frameBuffer, Offset: layout.Instances.Offset(parity), Size: layout.Instances.Size}},
			}},
			gpu.WriteDescriptorSet{Set: set, Binding: bindPointLights, Descriptors: gpu.Descriptors{
				StorageBuffers: []gpu.BufferRange{{Buffer: p.frameBuffer, Offset: layout.PointLights.Offset(parity), Size: layout.PointLights.Size}},
			}},
		)
	}
	if err := device.UpdateDescriptorSets(static); err != nil {
		return nil, fmt.Errorf("static descriptors: %w", err)
	}

	return p, nil
}

func (p *RayTracePass) createTarget(extent gpu.Extent2D, format gpu.Format, name string) (renderTarget, error) {
	image, err := p.device.CreateImage(gpu.ImageInfo{
		Extent: extent,
		Format: format,
		Levels: 1,
		Layers: 1,
		Usage:  gpu.ImageUsageStorage | gpu.ImageUsageSampled,
		Name:   name,
	})
	if err != nil {
		return renderTarget{}, fmt.Errorf("target %s: %w", name, err)
	}
	view, err := p.device.CreateImageView(gpu.ImageViewInfo{Image: image})
	if err != nil {
		return renderTarget{}, fmt.Errorf("target view %s: %w", name, err)
	}
	return renderTarget{image: image, view: view}, nil
}

// recreateTargets sizes the G-buffer to a new extent and invalidates
// every per-frame set's image bindings.
func (p *RayTracePass) recreateTargets(extent gpu.Extent2D) error {
	t := &renderTargets{extent: extent}
	var err error
	if t.albedo, err = p.createTarget(extent, gpu.FormatRGBA8Unorm, "rt-albedo"); err != nil {
		return err
	}
	if t.normalDepth, err = p.createTarget(extent, gpu.FormatRGBA32Float, "rt-normal-depth"); err != nil {
		return err
	}
	if t.emissive, err = p.createTarget(extent, gpu.FormatRGBA32Float, "rt-emissive"); err != nil {
		return err
	}
	if t.direct, err = p.createTarget(extent, gpu.FormatRGBA32Float, "rt-direct"); err != nil {
		return err
	}
	if t.diffuse, err = p.createTarget(extent, gpu.FormatRGBA32Float, "rt-diffuse"); err != nil {
		return err
	}
	p.targets = t
	for i := range p.outputBound {
		p.outputBound[i] = false
	}
	return nil
}

func storageImageWrite(set gpu.DescriptorSet, binding uint32, view gpu.ImageView) gpu.WriteDescriptorSet {
	return gpu.WriteDescriptorSet{Set: set, Binding: binding, Descriptors: gpu.Descriptors{
		StorageImages: []gpu.ImageDescriptor{{View: view, Layout: gpu.LayoutGeneral}},
	}}
}

// registerMesh hands out the bindless slot for a mesh, queueing the
// index and vertex buffer descriptor writes the first time.
func (p *RayTracePass) registerMesh(mesh *metadata.Mesh) (uint32, error) {
	slot, isNew, err := p.meshes.Index(mesh.Key())
	if err != nil {
		return 0, err
	}
	if !isNew {
		return slot, nil
	}
	binding := mesh.Bindings()[0]
	p.writes = append(p.writes, gpu.WriteDescriptorSet{
		Set: p.bindlessSet, Binding: bindVertexBuffers, Element: slot,
		Descriptors: gpu.Descriptors{StorageBuffers: []gpu.BufferRange{{
			Buffer: binding.Buffer,
			Offset: binding.Offset,
			Size:   uint64(binding.Layout.Stride) * uint64(mesh.VertexCount()),
		}}},
	})
	if idx := mesh.Indices(); idx != nil {
		p.writes = append(p.writes, gpu.WriteDescriptorSet{
			Set: p.bindlessSet, Binding: bindIndexBuffers, Element: slot,
			Descriptors: gpu.Descriptors{StorageBuffers: []gpu.BufferRange{{
				Buffer: idx.Buffer,
				Offset: idx.Offset,
				Size:   uint64(mesh.Count()) * idx.IndexType.Size(),
			}}},
		})
	}
	return slot, nil
}

// registerTexture hands out the +1-encoded slot for a texture; 0 means
// no texture bound.
func (p *RayTracePass) registerTexture(reg *SparseDescriptors[metadata.Texture], binding uint32, tex metadata.Texture) (uint32, error) {
	if tex.IsZero() {
		return 0, nil
	}
	slot, isNew, err := reg.Index(tex)
	if err != nil {
		return 0, err
	}
	if isNew {
		p.writes = append(p.writes, gpu.WriteDescriptorSet{
			Set: p.bindlessSet, Binding: binding, Element: slot,
			Descriptors: gpu.Descriptors{CombinedImageSamplers: []gpu.ImageDescriptor{{
				View:    tex.View,
				Layout:  gpu.LayoutShaderReadOnly,
				Sampler: tex.Sampler,
			}}},
		})
	}
	return slot + 1, nil
}

// Draw records and submits one prepass frame. The fence protocol has
// already run: nothing on the GPU is touching this parity's frame data.
func (p *RayTracePass) Draw(input RayTraceInput) (RayTraceOutput, error) {
	if p.targets == nil || p.targets.extent != input.Extent {
		if err := p.recreateTargets(input.Extent); err != nil {
			return RayTraceOutput{}, err
		}
	}
	parity := p.layout.Parity(input.Frame)

	// Gather instances CPU-side first; nothing reaches the device until
	// the capacity checks below pass.
	p.instWire.reset()
	p.accWire.reset()
	instanceCount := uint32(0)
	var gatherErr error
	input.Scene.Each(func(id scene.EntityID, r *metadata.Renderable, t *scene.Transform) {
		if gatherErr != nil || r.Mesh == nil {
			return
		}
		var blas gpu.AccelerationStructure
		var ok bool
		if r.Posed {
			blas, ok = input.Cache.LookupAnimated(id)
		} else {
			blas, ok = input.Cache.Lookup(r.Mesh)
		}
		if !ok {
			core.LogError("entity %d has no acceleration structure; skipped", id)
			return
		}

		meshSlot, err := p.registerMesh(r.Mesh)
		if err != nil {
			gatherErr = err
			return
		}
		albedoSlot, err := p.registerTexture(p.albedoTextures, bindAlbedoTextures, r.Material.Albedo)
		if err != nil {
			gatherErr = err
			return
		}
		normalSlot, err := p.registerTexture(p.normalTextures, bindNormalTextures, r.Material.Normal)
		if err != nil {
			gatherErr = err
			return
		}

		transform := t.Matrix()
		inst := ShaderInstance{
			Transform:    transform,
			MeshSlot:     meshSlot,
			AlbedoSlot:   albedoSlot,
			AlbedoFactor: r.Material.AlbedoFactor,
			NormalSlot:   normalSlot,
			NormalFactor: r.Material.NormalFactor,
		}
		inst.encode(&p.instWire)

		acc := AccelerationStructureInstance{
			Transform:   transform,
			CustomIndex: instanceCount,
			Mask:        0xff,
			BLASAddress: uint64(p.device.AccelerationStructureDeviceAddress(blas)),
		}
		acc.encode(&p.accWire)
		instanceCount++
	})
	if gatherErr != nil {
		return RayTraceOutput{}, gatherErr
	}
	if instanceCount > p.caps.MaxInstanceCount {
		return RayTraceOutput{}, fmt.Errorf("%w: %d instances, maximum %d",
			core.ErrTooManyInstances, instanceCount, p.caps.MaxInstanceCount)
	}

	p.lightWire.reset()
	lights := input.Scene.PointLights()
	if n := uint32(len(lights)); n > p.caps.MaxPointLights {
		core.LogWarn("%d point lights exceed the configured maximum %d; extra lights dropped", n, p.caps.MaxPointLights)
		lights = lights[:p.caps.MaxPointLights]
	}
	for i := range lights {
		encodePointLight(&p.lightWire, &lights[i].Position, &lights[i].Radiance)
	}

	globals := Globals{
		View:              input.Camera.View(),
		Projection:        input.Camera.Projection(),
		InverseView:       input.Camera.InverseView(),
		InverseProjection: input.Camera.InverseProjection(),
		Frame:             uint32(input.Frame),
		PointLightCount:   uint32(len(lights)),
	}
	if dl := input.Scene.DirLight(); dl != nil {
		globals.DirLightDirection = dl.Direction
		globals.DirLightRadiance = dl.Radiance
	}
	if sl := input.Scene.SkyLight(); sl != nil {
		globals.SkyLightRadiance = sl.Radiance
	}
	p.globalsWire.reset()
	globals.encode(&p.globalsWire)

	if !p.outputBound[parity] {
		set := p.perFrameSets[parity]
		p.writes = append(p.writes,
			storageImageWrite(set, bindOutAlbedo, p.targets.albedo.view),
			storageImageWrite(set, bindOutNormalDepth, p.targets.normalDepth.view),
			storageImageWrite(set, bindOutEmissive, p.targets.emissive.view),
			storageImageWrite(set, bindOutDirect, p.targets.direct.view),
			storageImageWrite(set, bindOutDiffuse, p.targets.diffuse.view),
		)
	}

	if len(p.writes) > 0 {
		if err := p.device.UpdateDescriptorSets(p.writes); err != nil {
			return RayTraceOutput{}, fmt.Errorf("descriptor update: %w", err)
		}
		p.writes = p.writes[:0]
	}
	p.outputBound[parity] = true

	if err := p.device.WriteMemory(p.frameBuffer, p.layout.Globals.Offset(parity), p.globalsWire.bytes()); err != nil {
		return RayTraceOutput{}, fmt.Errorf("write globals: %w", err)
	}
	if err := p.device.WriteMemory(p.frameBuffer, p.layout.Instances.Offset(parity), p.instWire.bytes()); err != nil {
		return RayTraceOutput{}, fmt.Errorf("write instances: %w", err)
	}
	if err := p.device.WriteMemory(p.frameBuffer, p.layout.PointLights.Offset(parity), p.lightWire.bytes()); err != nil {
		return RayTraceOutput{}, fmt.Errorf("write point lights: %w", err)
	}
	if err := p.device.WriteMemory(p.frameBuffer, p.layout.AccInstances.Offset(parity), p.accWire.bytes()); err != nil {
		return RayTraceOutput{}, fmt.Errorf("write instance descriptors: %w", err)
	}

	enc, err := p.queue.CreateEncoder()
	if err != nil {
		return RayTraceOutput{}, fmt.Errorf("prepass encoder: %w", err)
	}

	// Order outstanding bottom-level builds before the top-level build,
	// then the top-level build before the trace.
	enc.PipelineBarrier(gpu.StageAccelerationStructureBuild, gpu.StageAccelerationStructureBuild)
	enc.BuildAccelerationStructure([]gpu.AccelerationStructureBuild{{
		Dst:     p.tlas,
		Scratch: p.tlasScratch,
		Instances: &gpu.InstancesData{
			Flags:          gpu.GeometryOpaque,
			Data:           p.device.BufferDeviceAddress(p.frameBuffer).Offset(p.layout.AccInstances.Offset(parity)),
			PrimitiveCount: instanceCount,
		},
	}})

	enc.ImageBarriers(gpu.StageComputeShader, gpu.StageRayTracingShader, []gpu.ImageBarrier{
		{Image: p.targets.albedo.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
		{Image: p.targets.normalDepth.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
		{Image: p.targets.emissive.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
		{Image: p.targets.direct.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
		{Image: p.targets.diffuse.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
	})
	enc.PipelineBarrier(gpu.StageAccelerationStructureBuild, gpu.StageRayTracingShader)

	enc.BindRayTracingPipeline(p.pipeline)
	enc.BindRayTracingDescriptorSets(p.pipelineLayout, 0, []gpu.DescriptorSet{p.bindlessSet, p.perFrameSets[parity]})
	enc.TraceRays(p.sbt, input.Extent.Into3D())

	enc.ImageBarriers(gpu.StageRayTracingShader, gpu.StageComputeShader, []gpu.ImageBarrier{
		{Image: p.targets.albedo.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutShaderReadOnly},
		{Image: p.targets.normalDepth.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutShaderReadOnly},
		{Image: p.targets.emissive.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutShaderReadOnly},
		{Image: p.targets.direct.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutShaderReadOnly},
		{Image: p.targets.diffuse.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutShaderReadOnly},
	})

	if err := p.queue.SubmitNoSemaphores(enc.Finish(), nil); err != nil {
		return RayTraceOutput{}, fmt.Errorf("prepass submit: %w", err)
	}

	return RayTraceOutput{
		TLAS:        p.tlas,
		Albedo:      p.targets.albedo,
		NormalDepth: p.targets.normalDepth,
		Emissive:    p.targets.emissive,
		Direct:      p.targets.direct,
		Diffuse:     p.targets.diffuse,
	}, nil
}
