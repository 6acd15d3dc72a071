package gpu

// Encoder records GPU commands. Recording order is execution order within
// one submission; cross-submission ordering is the caller's problem
// (fences and semaphores).
type Encoder interface {
	// PipelineBarrier orders all src-stage work recorded so far before
	// all subsequent dst-stage work. Acceleration-structure builds and
	// shader reads are not ordered implicitly; every build/read edge
	// needs one of these.
	PipelineBarrier(src, dst PipelineStage)
	ImageBarriers(src, dst PipelineStage, barriers []ImageBarrier)

	BuildAccelerationStructure(builds []AccelerationStructureBuild)

	BindRayTracingPipeline(p RayTracingPipeline)
	BindComputePipeline(p ComputePipeline)
	BindRayTracingDescriptorSets(layout PipelineLayout, first uint32, sets []DescriptorSet)
	BindComputeDescriptorSets(layout PipelineLayout, first uint32, sets []DescriptorSet)
	PushConstants(layout PipelineLayout, stages ShaderStage, offset uint32, data []byte)

	TraceRays(sbt ShaderBindingTable, extent Extent3D)
	Dispatch(x, y, z uint32)

	BlitImage(src Image, srcLayout ImageLayout, dst Image, dstLayout ImageLayout)
	CopyBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64)

	Finish() CommandBuffer
}
