package gputest

import (
	"fmt"

	"github.com/spectraldev/spectral/engine/gpu"
)

type Queue struct {
	device *Device
}

func NewQueue(device *Device) *Queue {
	return &Queue{device: device}
}

func (q *Queue) CreateEncoder() (gpu.Encoder, error) {
	return q.device.newEncoder(), nil
}

func (q *Queue) Submit(wait []gpu.WaitSemaphore, commands gpu.CommandBuffer, signal []gpu.Semaphore, fence gpu.Fence) error {
	cb, ok := commands.(*commandBufferHandle)
	if !ok {
		return fmt.Errorf("foreign command buffer")
	}
	q.device.Submissions = append(q.device.Submissions, Submission{
		Wait:     append([]gpu.WaitSemaphore(nil), wait...),
		Signal:   append([]gpu.Semaphore(nil), signal...),
		Fence:    fence,
		Commands: cb.commands,
	})
	return nil
}

func (q *Queue) SubmitNoSemaphores(commands gpu.CommandBuffer, fence gpu.Fence) error {
	return q.Submit(nil, commands, nil, fence)
}

func (q *Queue) Present(frame gpu.SwapchainFrame) error {
	q.device.Presented++
	return nil
}

// Swapchain hands out a fixed-extent presentable image with fresh
// acquire/present semaphores each frame. Resize between frames with
// SetExtent to drive the frame-size-change paths.
type Swapchain struct {
	device *Device
	extent gpu.Extent2D
	format gpu.Format
	images []gpu.Image
	next   int
}

func NewSwapchain(device *Device, extent gpu.Extent2D, format gpu.Format) *Swapchain {
	return &Swapchain{device: device, extent: extent, format: format}
}

func (s *Swapchain) AcquireImage() (*gpu.SwapchainFrame, error) {
	if len(s.images) == 0 {
		for i := 0; i < 3; i++ {
			img, err := s.device.CreateImage(gpu.ImageInfo{
				Extent: s.extent,
				Format: s.format,
				Levels: 1,
				Layers: 1,
				Usage:  gpu.ImageUsageTransferDst,
				Name:   fmt.Sprintf("swapchain-%d", i),
			})
			if err != nil {
				return nil, err
			}
			s.images = append(s.images, img)
		}
	}
	img := s.images[s.next%len(s.images)]
	s.next++
	return &gpu.SwapchainFrame{
		Image:  img,
		Wait:   &semaphoreHandle{handle{s.device.id()}},
		Signal: &semaphoreHandle{handle{s.device.id()}},
	}, nil
}

func (s *Swapchain) Configure(usage gpu.ImageUsage, format gpu.Format) error {
	s.format = format
	s.images = nil
	return nil
}

func (s *Swapchain) Extent() gpu.Extent2D { return s.extent }
func (s *Swapchain) Format() gpu.Format   { return s.format }

// SetExtent resizes the swapchain; the next AcquireImage returns images
// of the new extent.
func (s *Swapchain) SetExtent(extent gpu.Extent2D) {
	s.extent = extent
	s.images = nil
}
