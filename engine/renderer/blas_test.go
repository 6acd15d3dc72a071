package renderer

import (
	"testing"

	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/gpu/gputest"
)

func TestCacheBuildsStaticMeshOnce(t *testing.T) {
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	cache := NewAccelerationStructureCache(device)
	mesh := triangleMesh(t, device)

	enc, _ := queue.CreateEncoder()
	first, err := cache.GetOrBuild(mesh, enc)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := cache.GetOrBuild(mesh, enc)
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if again != first {
			t.Fatal("cache returned a different structure for the same mesh")
		}
	}
	if cache.Builds() != 1 {
		t.Fatalf("Builds() = %d, want 1", cache.Builds())
	}
	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cache.Len())
	}
}

func TestCacheDistinguishesMeshesStructurally(t *testing.T) {
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	cache := NewAccelerationStructureCache(device)

	enc, _ := queue.CreateEncoder()
	a, err := cache.GetOrBuild(triangleMesh(t, device), enc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.GetOrBuild(triangleMesh(t, device), enc)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("meshes over different buffers share a structure")
	}
	if cache.Builds() != 2 {
		t.Fatalf("Builds() = %d, want 2", cache.Builds())
	}
}

func TestCacheRebuildsAnimatedInPlace(t *testing.T) {
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	cache := NewAccelerationStructureCache(device)
	mesh := triangleMesh(t, device)

	enc, _ := queue.CreateEncoder()
	first, err := cache.GetOrBuildAnimated(7, mesh, enc)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := cache.GetOrBuildAnimated(7, mesh, enc)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if second != first {
		t.Fatal("animated rebuild allocated a new structure")
	}
	if cache.Builds() != 2 {
		t.Fatalf("Builds() = %d, want 2 (one per frame)", cache.Builds())
	}
	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cache.Len())
	}

	cb := enc.Finish()
	if err := queue.SubmitNoSemaphores(cb, nil); err != nil {
		t.Fatal(err)
	}
	// Both recorded builds must target the same destination structure.
	var dsts []gpu.AccelerationStructure
	for _, cmd := range device.Commands() {
		if cmd.Kind == gputest.CmdBuildAccelerationStructure {
			for _, b := range cmd.Builds {
				dsts = append(dsts, b.Dst)
			}
		}
	}
	if len(dsts) != 2 || dsts[0] != dsts[1] {
		t.Fatalf("recorded %d builds, expected 2 into the same structure", len(dsts))
	}
}

func TestCacheRekeysAnimatedOnMeshSwap(t *testing.T) {
	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	cache := NewAccelerationStructureCache(device)

	enc, _ := queue.CreateEncoder()
	first, err := cache.GetOrBuildAnimated(1, triangleMesh(t, device), enc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.GetOrBuildAnimated(1, triangleMesh(t, device), enc)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("entity kept its structure across a mesh swap")
	}
}
