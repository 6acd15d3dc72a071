package renderer

import "testing"

func TestFrameLayoutAlignmentAndDisjointness(t *testing.T) {
	tests := []struct {
		name           string
		maxInstances   uint32
		maxPointLights uint32
		framesInFlight uint32
	}{
		{"default", 1024, 32, 2},
		{"tiny", 1, 1, 2},
		{"triple buffered", 256, 8, 3},
		{"max instances", 4096, 64, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFrameLayout(tt.maxInstances, tt.maxPointLights, tt.framesInFlight)

			type span struct {
				name        string
				start, size uint64
			}
			var spans []span
			for _, r := range []struct {
				name   string
				region FrameRegion
			}{
				{"globals", l.Globals},
				{"instances", l.Instances},
				{"pointLights", l.PointLights},
				{"accInstances", l.AccInstances},
			} {
				if got := uint64(len(r.region.Offsets)); got != uint64(tt.framesInFlight) {
					t.Fatalf("%s has %d copies, want %d", r.name, got, tt.framesInFlight)
				}
				for p, off := range r.region.Offsets {
					if off%bufferOffsetAlign != 0 {
						t.Errorf("%s[%d] offset %d not %d-byte aligned", r.name, p, off, bufferOffsetAlign)
					}
					spans = append(spans, span{r.name, off, r.region.Size})
				}
			}

			for i := range spans {
				if end := spans[i].start + spans[i].size; end > l.TotalSize() {
					t.Errorf("%s@%d ends at %d past total %d", spans[i].name, spans[i].start, end, l.TotalSize())
				}
				for j := i + 1; j < len(spans); j++ {
					a, b := spans[i], spans[j]
					if a.start < b.start+b.size && b.start < a.start+a.size {
						t.Errorf("%s@%d and %s@%d overlap", a.name, a.start, b.name, b.start)
					}
				}
			}
		})
	}
}

func TestFrameLayoutRegionSizes(t *testing.T) {
	l := NewFrameLayout(100, 10, 2)
	if l.Globals.Size != globalsWireSize {
		t.Errorf("globals size %d, want %d", l.Globals.Size, globalsWireSize)
	}
	if l.Instances.Size != 100*instanceWireSize {
		t.Errorf("instances size %d, want %d", l.Instances.Size, 100*instanceWireSize)
	}
	if l.PointLights.Size != 10*pointLightWireSize {
		t.Errorf("point lights size %d, want %d", l.PointLights.Size, 10*pointLightWireSize)
	}
	if l.AccInstances.Size != 100*accInstanceWireSize {
		t.Errorf("acc instances size %d, want %d", l.AccInstances.Size, 100*accInstanceWireSize)
	}
}

func TestFrameLayoutParity(t *testing.T) {
	l := NewFrameLayout(16, 4, 2)
	for frame := uint64(0); frame < 6; frame++ {
		if got, want := l.Parity(frame), frame%2; got != want {
			t.Errorf("Parity(%d) = %d, want %d", frame, got, want)
		}
	}
	if l.Globals.Offset(0) == l.Globals.Offset(1) {
		t.Error("parity copies of globals share an offset")
	}
}
