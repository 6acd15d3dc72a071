package gputest

import "github.com/spectraldev/spectral/engine/gpu"

type CommandKind uint8

const (
	CmdPipelineBarrier CommandKind = iota
	CmdImageBarriers
	CmdBuildAccelerationStructure
	CmdBindRayTracingPipeline
	CmdBindComputePipeline
	CmdBindRayTracingDescriptorSets
	CmdBindComputeDescriptorSets
	CmdPushConstants
	CmdTraceRays
	CmdDispatch
	CmdBlitImage
	CmdCopyBuffer
)

// Command is one recorded encoder call. Only the fields relevant to the
// Kind are populated.
type Command struct {
	Kind CommandKind

	Src gpu.PipelineStage
	Dst gpu.PipelineStage

	Barriers []gpu.ImageBarrier
	Builds   []gpu.AccelerationStructureBuild

	Sets   []gpu.DescriptorSet
	Extent gpu.Extent3D
	Groups [3]uint32

	BlitSrc gpu.Image
	BlitDst gpu.Image
}

type encoder struct {
	device   *Device
	commands []Command
}

func (d *Device) newEncoder() *encoder {
	return &encoder{device: d}
}

func (e *encoder) PipelineBarrier(src, dst gpu.PipelineStage) {
	e.commands = append(e.commands, Command{Kind: CmdPipelineBarrier, Src: src, Dst: dst})
}

func (e *encoder) ImageBarriers(src, dst gpu.PipelineStage, barriers []gpu.ImageBarrier) {
	e.commands = append(e.commands, Command{
		Kind: CmdImageBarriers, Src: src, Dst: dst,
		Barriers: append([]gpu.ImageBarrier(nil), barriers...),
	})
}

func (e *encoder) BuildAccelerationStructure(builds []gpu.AccelerationStructureBuild) {
	e.commands = append(e.commands, Command{
		Kind:   CmdBuildAccelerationStructure,
		Builds: append([]gpu.AccelerationStructureBuild(nil), builds...),
	})
}

func (e *encoder) BindRayTracingPipeline(p gpu.RayTracingPipeline) {
	e.commands = append(e.commands, Command{Kind: CmdBindRayTracingPipeline})
}

func (e *encoder) BindComputePipeline(p gpu.ComputePipeline) {
	e.commands = append(e.commands, Command{Kind: CmdBindComputePipeline})
}

func (e *encoder) BindRayTracingDescriptorSets(layout gpu.PipelineLayout, first uint32, sets []gpu.DescriptorSet) {
	e.commands = append(e.commands, Command{
		Kind: CmdBindRayTracingDescriptorSets,
		Sets: append([]gpu.DescriptorSet(nil), sets...),
	})
}

func (e *encoder) BindComputeDescriptorSets(layout gpu.PipelineLayout, first uint32, sets []gpu.DescriptorSet) {
	e.commands = append(e.commands, Command{
		Kind: CmdBindComputeDescriptorSets,
		Sets: append([]gpu.DescriptorSet(nil), sets...),
	})
}

func (e *encoder) PushConstants(layout gpu.PipelineLayout, stages gpu.ShaderStage, offset uint32, data []byte) {
	e.commands = append(e.commands, Command{Kind: CmdPushConstants})
}

func (e *encoder) TraceRays(sbt gpu.ShaderBindingTable, extent gpu.Extent3D) {
	e.commands = append(e.commands, Command{Kind: CmdTraceRays, Extent: extent})
}

func (e *encoder) Dispatch(x, y, z uint32) {
	e.commands = append(e.commands, Command{Kind: CmdDispatch, Groups: [3]uint32{x, y, z}})
}

func (e *encoder) BlitImage(src gpu.Image, srcLayout gpu.ImageLayout, dst gpu.Image, dstLayout gpu.ImageLayout) {
	e.commands = append(e.commands, Command{Kind: CmdBlitImage, BlitSrc: src, BlitDst: dst})
}

func (e *encoder) CopyBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) {
	e.commands = append(e.commands, Command{Kind: CmdCopyBuffer})
}

func (e *encoder) Finish() gpu.CommandBuffer {
	return &commandBufferHandle{
		handle:   handle{e.device.id()},
		commands: e.commands,
	}
}
