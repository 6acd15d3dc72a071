package renderer

import (
	"testing"

	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/gpu/gputest"
)

func testTarget(t *testing.T, device gpu.Device, name string) renderTarget {
	t.Helper()
	image, err := device.CreateImage(gpu.ImageInfo{
		Extent: gpu.Extent2D{Width: 64, Height: 64},
		Format: gpu.FormatRGBA32Float,
		Levels: 1, Layers: 1,
		Usage: gpu.ImageUsageStorage | gpu.ImageUsageSampled,
		Name:  name,
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := device.CreateImageView(gpu.ImageViewInfo{Image: image})
	if err != nil {
		t.Fatal(err)
	}
	return renderTarget{image: image, view: view}
}

func TestATrousPingPongSchedule(t *testing.T) {
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	sampler, _ := device.CreateSampler(gpu.SamplerInfo{})
	filter, err := NewATrousFilter(device, queue, "test")
	if err != nil {
		t.Fatal(err)
	}
	input := ATrousInput{
		NormalDepth: testTarget(t, device, "guide"),
		Source:      testTarget(t, device, "noisy"),
		Iterations:  3,
	}

	out, err := filter.Draw(input, sampler)
	if err != nil {
		t.Fatal(err)
	}
	if out != filter.filtered[1] {
		t.Error("final pass did not land in the second internal target")
	}

	var bound []gpu.DescriptorSet
	for _, cmd := range device.Commands() {
		if cmd.Kind == gputest.CmdBindComputeDescriptorSets {
			bound = append(bound, cmd.Sets[0])
		}
	}
	want := []gpu.DescriptorSet{
		filter.sets[0], filter.sets[1], filter.sets[2],
		filter.sets[1], filter.sets[2], filter.sets[1],
	}
	if len(bound) != len(want) {
		t.Fatalf("bound %d sets, want %d", len(bound), len(want))
	}
	for i := range want {
		if bound[i] != want[i] {
			t.Errorf("pass %d bound set %d, want set %d", i, setIndex(filter, bound[i]), setIndex(filter, want[i]))
		}
	}
	if got := countCommands(device, gputest.CmdDispatch); got != 6 {
		t.Errorf("dispatches = %d, want 6 for 3 iterations", got)
	}
}

func setIndex(f *ATrousFilter, set gpu.DescriptorSet) int {
	for i := range f.sets {
		if f.sets[i] == set {
			return i
		}
	}
	return -1
}

func TestATrousZeroIterationsPassesThrough(t *testing.T) {
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	sampler, _ := device.CreateSampler(gpu.SamplerInfo{})
	filter, err := NewATrousFilter(device, queue, "test")
	if err != nil {
		t.Fatal(err)
	}
	source := testTarget(t, device, "noisy")

	out, err := filter.Draw(ATrousInput{
		NormalDepth: testTarget(t, device, "guide"),
		Source:      source,
		Iterations:  0,
	}, sampler)
	if err != nil {
		t.Fatal(err)
	}
	if out != source {
		t.Error("zero iterations must return the source unchanged")
	}
	if len(device.Submissions) != 0 {
		t.Errorf("%d submissions for a disabled filter", len(device.Submissions))
	}
}
