// Package terrain implements the synthetic height field and the chunk streamer
// that keeps a 3x3 patch of sampled terrain around the aircraft.
package terrain

import (
	"math"

	"infinite-flight/internal/geometry/vector"
)

// Height returns the terrain height at world position (x, z).
//
// It is a closed-form function of absolute world coordinates, so neighbouring
// chunks always agree on their shared edge.
func Height(x, z float64) float64 {
	// Broad rolling hills
	y := math.Sin(x/150) * math.Cos(z/150) * 30
	// Smaller diagonal ridges
	y += math.Sin(x/40+z/30) * 5
	// Sunk below the spawn altitude
	return y - 40
}

// Gradient returns the partial derivatives of Height along x and z.
func Gradient(x, z float64) (dx, dz float64) {
	ridge := math.Cos(x/40+z/30) * 5
	dx = math.Cos(x/150)*math.Cos(z/150)*30/150 + ridge/40
	dz = -math.Sin(x/150)*math.Sin(z/150)*30/150 + ridge/30
	return dx, dz
}

// Normal returns the unit surface normal at (x, z).
func Normal(x, z float64) vector.Vec3 {
	dx, dz := Gradient(x, z)
	return vector.Vec3{X: -dx, Y: 1, Z: -dz}.Normalize()
}

// GroundClearance returns how far pos sits above the terrain.
func GroundClearance(pos vector.Vec3) float64 {
	return pos.Y - Height(pos.X, pos.Z)
}
