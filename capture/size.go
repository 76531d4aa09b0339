package capture

import (
	"math"
	"slices"
)

const aspectTolerance = 0.05

// OptimalPictureSize picks the picture size closest to an edge x edge target
// whose aspect ratio matches one of the preview sizes, so the preview shows
// what the picture will contain. Ties go to the larger area. Without any
// aspect-compatible pair the aspect constraint is dropped. An empty pictures
// list yields the zero Size.
func OptimalPictureSize(previews, pictures []Size, edge int) Size {
	var compatible []Size
	for _, q := range pictures {
		if q.IsZero() {
			continue
		}
		if slices.ContainsFunc(previews, func(p Size) bool { return sameAspect(p, q) }) {
			compatible = append(compatible, q)
		}
	}
	if len(compatible) > 0 {
		return closestTo(compatible, edge)
	}
	return closestTo(pictures, edge)
}

func closestTo(sizes []Size, edge int) (best Size) {
	found := false
	for _, s := range sizes {
		if s.IsZero() {
			continue
		}
		if !found || closer(s, best, edge) {
			best, found = s, true
		}
	}
	return best
}

func closer(a, b Size, edge int) bool {
	da, db := absInt(a.LongEdge()-edge), absInt(b.LongEdge()-edge)
	if da != db {
		return da < db
	}
	return a.Area() > b.Area()
}

func sameAspect(a, b Size) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return math.Abs(aspect(a)-aspect(b)) <= aspectTolerance
}

// aspect is long edge over short edge, so rotated sizes compare equal.
func aspect(s Size) float64 {
	long, short := s.Width, s.Height
	if short > long {
		long, short = short, long
	}
	return float64(long) / float64(short)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
