package renderer

import (
	"encoding/binary"
	"fmt"

	"github.com/spectraldev/spectral/engine/gpu"
)

// À-trous filter set bindings.
const (
	atrousBindNormalDepth = iota
	atrousBindSource
	atrousBindDest
)

const atrousWorkgroupSize = 8

// ATrousInput selects the image to denoise and the edge-stopping guide.
type ATrousInput struct {
	NormalDepth renderTarget
	Source      renderTarget
	Iterations  int
}

// ATrousFilter is one edge-avoiding à-trous denoiser instance. Each
// iteration runs a horizontal and a vertical dispatch with a doubling
// step width, ping-ponging between two internal targets; the guide
// image keeps edges crisp. Two instances run per frame, one for the
// diffuse and one for the direct channel.
type ATrousFilter struct {
	device gpu.Device
	queue  gpu.Queue
	label  string

	setLayout      gpu.DescriptorSetLayout
	pipelineLayout gpu.PipelineLayout
	pipeline       gpu.ComputePipeline

	// sets[0] reads the external source into filtered[0]; sets[1] and
	// sets[2] ping-pong between the internal targets.
	sets     [3]gpu.DescriptorSet
	filtered [2]renderTarget
	extent   gpu.Extent2D

	// Bound inputs, to skip descriptor writes on identical frames.
	boundGuide  gpu.ImageView
	boundSource gpu.ImageView

	push [8]byte
}

func NewATrousFilter(device gpu.Device, queue gpu.Queue, label string) (*ATrousFilter, error) {
	f := &ATrousFilter{device: device, queue: queue, label: label}

	var err error
	f.setLayout, err = device.CreateDescriptorSetLayout(gpu.DescriptorSetLayoutInfo{
		Bindings: []gpu.DescriptorSetLayoutBinding{
			{Binding: atrousBindNormalDepth, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: atrousBindSource, Type: gpu.DescriptorCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageCompute},
			{Binding: atrousBindDest, Type: gpu.DescriptorStorageImage, Count: 1, Stages: gpu.ShaderStageCompute},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("atrous %s set layout: %w", label, err)
	}

	f.pipelineLayout, err = device.CreatePipelineLayout(gpu.PipelineLayoutInfo{
		Sets: []gpu.DescriptorSetLayout{f.setLayout},
		PushConstants: []gpu.PushConstantRange{
			{Stages: gpu.ShaderStageCompute, Size: uint32(len(f.push))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("atrous %s pipeline layout: %w", label, err)
	}

	f.pipeline, err = device.CreateComputePipeline(gpu.ComputePipelineInfo{
		Shader: gpu.ShaderInfo{Name: "atrous.comp", Stage: gpu.ShaderStageCompute},
		Layout: f.pipelineLayout,
	})
	if err != nil {
		return nil, fmt.Errorf("atrous %s pipeline: %w", label, err)
	}

	for i := range f.sets {
		f.sets[i], err = device.CreateDescriptorSet(gpu.DescriptorSetInfo{Layout: f.setLayout})
		if err != nil {
			return nil, fmt.Errorf("atrous %s set %d: %w", label, i, err)
		}
	}
	return f, nil
}

func (f *ATrousFilter) recreateTargets(extent gpu.Extent2D) error {
	for i := range f.filtered {
		image, err := f.device.CreateImage(gpu.ImageInfo{
			Extent: extent,
			Format: gpu.FormatRGBA32Float,
			Levels: 1,
			Layers: 1,
			Usage:  gpu.ImageUsageStorage | gpu.ImageUsageSampled,
			Name:   fmt.Sprintf("atrous-%s-%d", f.label, i),
		})
		if err != nil {
			return fmt.Errorf("atrous %s target %d: %w", f.label, i, err)
		}
		view, err := f.device.CreateImageView(gpu.ImageViewInfo{Image: image})
		if err != nil {
			return fmt.Errorf("atrous %s target view %d: %w", f.label, i, err)
		}
		f.filtered[i] = renderTarget{image: image, view: view}
	}
	f.extent = extent
	f.boundGuide = nil
	f.boundSource = nil
	return nil
}

func (f *ATrousFilter) bind(input ATrousInput, sampler gpu.Sampler) error {
	if f.boundGuide == input.NormalDepth.view && f.boundSource == input.Source.view {
		return nil
	}
	cis := func(view gpu.ImageView) gpu.Descriptors {
		return gpu.Descriptors{CombinedImageSamplers: []gpu.ImageDescriptor{{
			View: view, Layout: gpu.LayoutShaderReadOnly, Sampler: sampler,
		}}}
	}
	storage := func(view gpu.ImageView) gpu.Descriptors {
		return gpu.Descriptors{StorageImages: []gpu.ImageDescriptor{{
			View: view, Layout: gpu.LayoutGeneral,
		}}}
	}
	writes := []gpu.WriteDescriptorSet{
		{Set: f.sets[0], Binding: atrousBindNormalDepth, Descriptors: cis(input.NormalDepth.view)},
		{Set: f.sets[0], Binding: atrousBindSource, Descriptors: cis(input.Source.view)},
		{Set: f.sets[0], Binding: atrousBindDest, Descriptors: storage(f.filtered[0].view)},

		{Set: f.sets[1], Binding: atrousBindNormalDepth, Descriptors: cis(input.NormalDepth.view)},
		{Set: f.sets[1], Binding: atrousBindSource, Descriptors: cis(f.filtered[0].view)},
		{Set: f.sets[1], Binding: atrousBindDest, Descriptors: storage(f.filtered[1].view)},

		{Set: f.sets[2], Binding: atrousBindNormalDepth, Descriptors: cis(input.NormalDepth.view)},
		{Set: f.sets[2], Binding: atrousBindSource, Descriptors: cis(f.filtered[1].view)},
		{Set: f.sets[2], Binding: atrousBindDest, Descriptors: storage(f.filtered[0].view)},
	}
	if err := f.device.UpdateDescriptorSets(writes); err != nil {
		return fmt.Errorf("atrous %s descriptors: %w", f.label, err)
	}
	f.boundGuide = input.NormalDepth.view
	f.boundSource = input.Source.view
	return nil
}

// Draw runs 2*Iterations filter dispatches and returns the denoised
// target, in ShaderReadOnly layout.
func (f *ATrousFilter) Draw(input ATrousInput, sampler gpu.Sampler) (renderTarget, error) {
	if input.Iterations < 1 {
		return input.Source, nil
	}
	extent := input.Source.image.Info().Extent
	if f.extent != extent {
		if err := f.recreateTargets(extent); err != nil {
			return renderTarget{}, err
		}
	}
	if err := f.bind(input, sampler); err != nil {
		return renderTarget{}, err
	}

	enc, err := f.queue.CreateEncoder()
	if err != nil {
		return renderTarget{}, fmt.Errorf("atrous %s encoder: %w", f.label, err)
	}

	groupsX := (extent.Width + atrousWorkgroupSize - 1) / atrousWorkgroupSize
	groupsY := (extent.Height + atrousWorkgroupSize - 1) / atrousWorkgroupSize

	enc.BindComputePipeline(f.pipeline)
	passes := 2 * input.Iterations
	for k := 0; k < passes; k++ {
		set := 0
		if k > 0 {
			set = 1 + (k-1)%2
		}
		dst := f.filtered[passWriteTarget(k)]

		enc.ImageBarriers(gpu.StageComputeShader, gpu.StageComputeShader, []gpu.ImageBarrier{
			{Image: dst.image, OldLayout: gpu.LayoutUndefined, NewLayout: gpu.LayoutGeneral},
		})
		enc.BindComputeDescriptorSets(f.pipelineLayout, 0, []gpu.DescriptorSet{f.sets[set]})
		binary.LittleEndian.PutUint32(f.push[0:], uint32(1)<<(k/2))
		binary.LittleEndian.PutUint32(f.push[4:], uint32(k%2))
		enc.PushConstants(f.pipelineLayout, gpu.ShaderStageCompute, 0, f.push[:])
		enc.Dispatch(groupsX, groupsY, 1)
		enc.ImageBarriers(gpu.StageComputeShader, gpu.StageComputeShader, []gpu.ImageBarrier{
			{Image: dst.image, OldLayout: gpu.LayoutGeneral, NewLayout: gpu.LayoutShaderReadOnly},
		})
	}

	if err := f.queue.SubmitNoSemaphores(enc.Finish(), nil); err != nil {
		return renderTarget{}, fmt.Errorf("atrous %s submit: %w", f.label, err)
	}
	// Pass counts are even, so the last dispatch always lands in
	// filtered[1].
	return f.filtered[1], nil
}

// passWriteTarget maps a dispatch index to the internal target it
// writes: 0, 1, 0, 1, ...
func passWriteTarget(k int) int { return k % 2 }
