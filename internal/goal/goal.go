// Package goal tracks the single fly-through objective marker.
package goal

import (
	"infinite-flight/internal/geometry/vector"
)

const (
	// CompletionRadius is how close the aircraft must get to score.
	CompletionRadius = 10.0
	// PickElevation lifts a marker placed by a terrain pick above the ground.
	PickElevation = 40.0
)

// Marker is the active objective ring.
type Marker struct {
	Position vector.Vec3 `json:"position" cbor:"p"`
	// Orientation turns the ring's face toward the aircraft.
	Orientation vector.Quat `json:"orientation" cbor:"q"`
}

// System holds at most one marker and counts completions.
type System struct {
	active    *Marker
	completed int
}

// New returns a system with no goal.
func New() *System {
	return &System{}
}

// Set replaces any existing goal with a new one at pos.
func (s *System) Set(pos vector.Vec3) Marker {
	s.active = &Marker{Position: pos, Orientation: vector.Identity()}
	return *s.active
}

// SetFromPick places a goal above a terrain hit point.
func (s *System) SetFromPick(hit vector.Vec3) Marker {
	return s.Set(hit.Add(vector.Vec3{Y: PickElevation}))
}

// Clear drops the active goal without scoring it.
func (s *System) Clear() {
	s.active = nil
}

// Active returns the current marker, if any.
func (s *System) Active() (Marker, bool) {
	if s.active == nil {
		return Marker{}, false
	}
	return *s.active, true
}

// Completed returns how many goals have been reached.
func (s *System) Completed() int { return s.completed }

// Update turns the marker toward the aircraft and scores it when the aircraft
// is within CompletionRadius. It returns the completed marker on the tick
// the goal is reached.
func (s *System) Update(aircraft vector.Vec3) (Marker, bool) {
	if s.active == nil {
		return Marker{}, false
	}
	s.active.Orientation = vector.LookRotation(aircraft.Sub(s.active.Position), vector.Up)

	if aircraft.Dist(s.active.Position) >= CompletionRadius {
		return Marker{}, false
	}
	done := *s.active
	s.active = nil
	s.completed++
	return done, true
}
