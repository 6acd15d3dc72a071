package mathx

import "golang.org/x/exp/rand"

// BlueNoise fills a size×size grid with values in [0,1) whose low-frequency
// content is suppressed by best-candidate sampling: each cell value is chosen
// from a small set of candidates, keeping the one farthest (in value) from
// the running neighborhood average. Good enough as a ray-offset dither
// source; spectral quality is a rendering tunable, not a contract.
func BlueNoise(rng *rand.Rand, size int) []float32 {
	const candidates = 4

	values := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			avg := neighborhoodAvg(values, size, x, y)
			best := rng.Float32()
			bestDist := dist1(best, avg)
			for c := 1; c < candidates; c++ {
				v := rng.Float32()
				if d := dist1(v, avg); d > bestDist {
					best, bestDist = v, d
				}
			}
			values[y*size+x] = best
		}
	}
	return values
}

func neighborhoodAvg(values []float32, size, x, y int) float32 {
	var sum float32
	var n int
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := (x + dx + size) % size
			ny := (y + dy + size) % size
			if ny < y || (ny == y && nx < x) {
				sum += values[ny*size+nx]
				n++
			}
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float32(n)
}

func dist1(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}
