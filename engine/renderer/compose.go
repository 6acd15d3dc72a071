package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spectraldev/spectral/engine/containers"
	"github.com/spectraldev/spectral/engine/gpu"
)

// Compose set bindings.
const (
	composeBindAlbedo = iota
	composeBindNormalDepth
	composeBindEmissive
	composeBindDirect
	composeBindDiffuse
	composeBindDest
)

const composeWorkgroupSize = 8

// composeTargets is the per-extent state of the pass: the intermediate
// image the compute shader writes before the blit, plus its descriptor
// set. Kept in a small LRU because during a resize the old extent's
// frames can still be in flight while the new extent renders.
type composeTarget struct {
	composed renderTarget
	set      gpu.DescriptorSet

	bound [5]gpu.ImageView
}

// ComposeInput hands the pass its lighting channels (raw or denoised)
// and the acquired swapchain frame.
type ComposeInput struct {
	Albedo      renderTarget
	NormalDepth renderTarget
	Emissive    renderTarget
	Direct      renderTarget
	Diffuse     renderTarget

	Frame    gpu.SwapchainFrame
	Exposure float32
}

// ComposePass multiplies the lighting channels back together, tone-maps
// into an intermediate target and blits that onto the acquired
// swapchain image, leaving it in Present layout. Its submission carries
// the frame's acquire wait, present signal and fence.
type ComposePass struct {
	device  gpu.Device
	queue   gpu.Queue
	sampler gpu.Sampler

	setLayout      gpu.DescriptorSetLayout
	pipelineLayout gpu.PipelineLayout
	pipeline       gpu.ComputePipeline

	targets *containers.LRU[gpu.Extent2D, *composeTarget]

	push [4]byte
}

func NewComposePass(device gpu.Device, queue gpu.Queue, sampler gpu.Sampler) (*ComposePass, error) {
	p := &ComposePass{
		device:  device,
		queue:   queue,
		sampler: sampler,
		targets: containers.NewLRU[gpu.Extent2D, *composeTarget](3),
	}

	var err error
	p.setLayout, err = device.CreateDescriptorSetLayout(gpu.DescriptorSetLayoutInfo{
		Bindings: []gpu.DescriptorSetLayoutBinding{
			{Binding: composeBindAlbedo, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: composeBindNormalDepth, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: composeBindEmissive, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: composeBindDirect, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: composeBindDiffuse, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: composeBindDest, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageCompute},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compose set layout: %w", err)
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(gpu.PipelineLayoutInfo{
		Sets: []gpu.DescriptorSetLayout{p.setLayout},
		PushConstants: []gpu.PushConstantRange{
			{Stages: gpu.ShaderStageCompute, Size: uint32(len(p.push))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compose pipeline layout: %w", err)
	}

	p.pipeline, err = device.CreateComputePipeline(gpu.ComputePipelineInfo{
		Shader: gpu.ShaderInfo{Name: "compose.comp", Stage: gpu.ShaderStageCompute},
		Layout: p.pipelineLayout,
	})
	if err != nil {
		return nil, fmt.Errorf("compose pipeline: %w", err)
	}

	return p, nil
}

func (p *ComposePass) targetFor(extent gpu.Extent2D) (*composeTarget, error) {
	if t, ok := p.targets.Get(extent); ok {
		return t, nil
	}
	image, err := p.device.CreateImage(gpu.ImageInfo{
		Extent: extent,
		Format: gpu.FormatRGBA8Unorm,
		Levels: 1,
		Layers: 1,
		Usage:  gpu.ImageUsageStorage | gpu.ImageUsageTransferSrc,
		Name:   fmt.Sprintf("composed-%dx%d", extent.Width, extent.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("composed image: %w", err)
	}
	view, err := p.device.CreateImageView(gpu.ImageViewInfo{Image: image})
	if err != nil {
		return nil, fmt.Errorf("composed view: %w", err)
	}
	set, err := p.device.CreateDescriptorSet(gpu.DescriptorSetInfo{Layout: p.setLayout})
	if err != nil {
		return nil, fmt.Errorf("compose set: %w", err)
	}
	t := &composeTarget{
		composed: renderTarget{image: image, view: view},
		set:      set,
	}
	p.targets.Put(extent, t)
	return t, nil
}

func (p *ComposePass) bind(t *composeTarget, input ComposeInput) error {
	// Direct and diffuse swap between raw and filtered targets when the
	// filter toggles, so every input view participates in the check.
	views := [5]gpu.ImageView{input.Albedo.view, input.NormalDepth.view, input.Emissive.view, input.Direct.view, input.Diffuse.view}
	if t.bound == views {
		return nil
	}
	cis := func(view gpu.ImageView) gpu.Descriptors {
		return gpu.Descriptors{CombinedImageSamplers: []gpu.ImageDescriptor{{
			View: view, Layout: gpu.LayoutShaderReadOnly, Sampler: p.sampler,
		}}}
	}
	writes := []gpu.WriteDescriptorSet{
		{Set: t.set, Binding: composeBindAlbedo, Descriptors: cis(input.Albedo.view)},
		{Set: t.set, Binding: composeBindNormalDepth, Descriptors: cis(input.NormalDepth.view)},
		{Set: t.set, Binding: composeBindEmissive, Descriptors: cis(input.Emissive.view)},
		{Set: t.set, Binding: composeBindDirect, Descriptors: cis(input.Direct.view)},
		{Set: t.set, Binding: composeBindDiffuse, Descriptors: cis(input.Diffuse.view)},
		{Set: t.set, Binding: composeBindDest, Descriptors: gpu.Descriptors{
			StorageImages: []gpu.ImageDescriptor{{View: t.composed.view, Layout: gpu.LayoutGeneral}},
		}},
	}
	if err := p.device.UpdateDescriptorSets(writes); err != nil {
		return fmt.Errorf("compose descriptors: %w", err)
	}
	t.bound = views
	return nil
}

// Draw submits the final pass of the frame. fence signals when the
// whole frame's work for this parity has drained.
func (p *ComposePass) Draw(input ComposeInput, fence gpu.Fence) error {
	extent := input.Frame.Image.Info().Extent
	t, err := p.targetFor(extent)
	if err != nil {
		return err
	}
	if err := p.bind(t, input); err != nil {
		return err
	}

	enc, err := p.queue.CreateEncoder()
	if err != nil {
		return fmt.Errorf("compose encoder: %w", err)
	}

	enc.ImageBarriers(gpu.StageTopOfPipe, gpu.StageComputeShader, []gpu.ImageBarrier{
		{Image: t.composed.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
	})

	enc.BindComputePipeline(p.pipeline)
	enc.BindComputeDescriptorSets(p.pipelineLayout, 0, []gpu.DescriptorSet{t.set})
	binary.LittleEndian.PutUint32(p.push[:], math.Float32bits(input.Exposure))
	enc.PushConstants(p.pipelineLayout, gpu.ShaderStageCompute, 0, p.push[:])
	enc.Dispatch(
		(extent.Width+composeWorkgroupSize-1)/composeWorkgroupSize,
		(extent.Height+composeWorkgroupSize-1)/composeWorkgroupSize,
		1,
	)

	enc.ImageBarriers(gpu.StageComputeShader, gpu.StageTransfer, []gpu.ImageBarrier{
		{Image: t.composed.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutTransferSrc},
		{Image: input.Frame.Image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutTransferDst},
	})
	enc.BlitImage(t.composed.image, gpu.LayoutTransferSrc, input.Frame.Image, gpu.LayoutTransferDst)
	enc.ImageBarriers(gpu.StageTransfer, gpu.StageBottomOfPipe, []gpu.ImageBarrier{
		{Image: input.Frame.Image, OldLayout: gpu.LayoutTransferDst, NewLayout: gpu.LayoutPresent},
	})

	err = p.queue.Submit(
		[]gpu.WaitSemaphore{{Semaphore: input.Frame.Wait, Stage: gpu.StageTransfer}},
		enc.Finish(),
		[]gpu.Semaphore{input.Frame.Signal},
		fence,
	)
	if err != nil {
		return fmt.Errorf("compose submit: %w", err)
	}
	return nil
}
