package gpu

// Device is the resource-creation and synchronization surface of a
// graphics backend. All creation calls are construction-time fallible;
// per-frame paths only use WriteMemory, UpdateDescriptorSets and the
// fence operations.
type Device interface {
	CreateBuffer(info BufferInfo) (Buffer, error)
	CreateBufferStatic(info BufferInfo, data []byte) (Buffer, error)
	CreateImage(info ImageInfo) (Image, error)
	CreateImageView(info ImageViewInfo) (ImageView, error)
	CreateSampler(info SamplerInfo) (Sampler, error)

	CreateDescriptorSetLayout(info DescriptorSetLayoutInfo) (DescriptorSetLayout, error)
	CreateDescriptorSet(info DescriptorSetInfo) (DescriptorSet, error)
	CreatePipelineLayout(info PipelineLayoutInfo) (PipelineLayout, error)
	CreateRayTracingPipeline(info RayTracingPipelineInfo) (RayTracingPipeline, error)
	CreateComputePipeline(info ComputePipelineInfo) (ComputePipeline, error)
	CreateShaderBindingTable(pipeline RayTracingPipeline, info ShaderBindingTableInfo) (ShaderBindingTable, error)

	CreateAccelerationStructure(info AccelerationStructureInfo) (AccelerationStructure, error)
	// AllocateAccelerationStructureScratch returns a scratch buffer large
	// enough to build as.
	AllocateAccelerationStructureScratch(as AccelerationStructure) (Buffer, error)

	// WriteMemory copies data into a host-visible buffer at offset. The
	// caller guarantees, via the fence protocol, that no in-flight GPU
	// work reads the destination range.
	WriteMemory(buffer Buffer, offset uint64, data []byte) error
	UpdateDescriptorSets(writes []WriteDescriptorSet) error

	CreateFence() (Fence, error)
	// WaitFences blocks until all fences signal. Returns ErrDeviceLost on
	// an unrecoverable device condition.
	WaitFences(fences []Fence, all bool) error
	ResetFences(fences []Fence) error

	BufferDeviceAddress(buffer Buffer) DeviceAddress
	AccelerationStructureDeviceAddress(as AccelerationStructure) DeviceAddress

	// WaitIdle drains the device. Shutdown only, never per frame.
	WaitIdle() error
}

// Queue submits recorded command buffers and presents swapchain frames.
type Queue interface {
	CreateEncoder() (Encoder, error)
	Submit(wait []WaitSemaphore, commands CommandBuffer, signal []Semaphore, fence Fence) error
	// SubmitNoSemaphores is Submit with no synchronization; used for
	// fire-and-forget uploads and BLAS builds ahead of the frame graph.
	SubmitNoSemaphores(commands CommandBuffer, fence Fence) error
	Present(frame SwapchainFrame) error
}

// Swapchain hands out presentable images. AcquireImage returns nil when
// the surface is out of date and must be reconfigured.
type Swapchain interface {
	AcquireImage() (*SwapchainFrame, error)
	Configure(usage ImageUsage, format Format) error
	Extent() Extent2D
	Format() Format
}
