package terrain

import (
	"math"

	"infinite-flight/internal/geometry/vector"
)

// DefaultPickDistance bounds how far a pick ray is marched.
const DefaultPickDistance = 5000.0

// Raycast finds the first point where the ray from origin along dir passes
// from above to below the terrain surface on a streamed chunk. It reports
// false when there is no such point within maxDist.
func (s *Streamer) Raycast(origin, dir vector.Vec3, maxDist float64) (vector.Vec3, bool) {
	dir = dir.Normalize()
	if dir == (vector.Vec3{}) {
		return vector.Vec3{}, false
	}
	if maxDist <= 0 {
		maxDist = DefaultPickDistance
	}

	// Half a lattice cell keeps the march from stepping over a ridge.
	step := s.size / float64(s.segments) / 2

	prevT := 0.0
	prevAbove := GroundClearance(origin) >= 0
	for i := 1; ; i++ {
		t := math.Min(float64(i)*step, maxDist)
		above := GroundClearance(origin.Add(dir.Mul(t))) >= 0
		if prevAbove && !above {
			hit := s.refine(origin, dir, prevT, t)
			if s.Covers(hit.X, hit.Z) {
				return hit, true
			}
		}
		prevT, prevAbove = t, above
		if t >= maxDist {
			return vector.Vec3{}, false
		}
	}
}

// refine bisects the bracket [lo, hi] down to the surface crossing.
func (s *Streamer) refine(origin, dir vector.Vec3, lo, hi float64) vector.Vec3 {
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if GroundClearance(origin.Add(dir.Mul(mid))) >= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	p := origin.Add(dir.Mul(hi))
	p.Y = Height(p.X, p.Z)
	return p
}
