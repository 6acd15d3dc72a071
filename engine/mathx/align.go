package mathx

import "golang.org/x/exp/constraints"

// AlignUp rounds v up to the next multiple of align. align must be a
// power of two.
func AlignUp[T constraints.Unsigned](v, align T) T {
	return (v + align - 1) &^ (align - 1)
}

func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
