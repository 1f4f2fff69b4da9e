// Package flight implements the simplified, lerp-based flight model.
//
// The model is a deliberate heuristic: control demand is smoothed into
// rotation rates that are applied as local-axis rotations, and the aircraft
// translates along its nose at a speed proportional to engine power.
package flight

import (
	"infinite-flight/internal/geometry/vector"
)

const (
	// SpawnAltitude is the height the aircraft starts and respawns at.
	SpawnAltitude = 100.0
	// DefaultEnginePower is the engine power percent after spawn and reset.
	DefaultEnginePower = 50.0
	// MinEnginePower and MaxEnginePower bound the configurable power.
	MinEnginePower = 15.0
	MaxEnginePower = 100.0
)

// Aircraft is the full mutable state of the simulated airplane.
type Aircraft struct {
	Position    vector.Vec3 `json:"position"`
	Orientation vector.Quat `json:"orientation"`

	// Smoothed control-surface deflections, in [-1, 1] demand units.
	Aileron  float64 `json:"aileron"`
	Rudder   float64 `json:"rudder"`
	Elevator float64 `json:"elevator"`

	// Smoothed airframe rotation rates.
	RollRate  float64 `json:"rollRate"`
	PitchRate float64 `json:"pitchRate"`
	YawRate   float64 `json:"yawRate"`

	// EnginePower is in percent.
	EnginePower float64 `json:"enginePower"`
	// PropellerAngle accumulates the spinner rotation in radians.
	PropellerAngle float64 `json:"propellerAngle"`

	Crashed bool `json:"crashed"`
}

// NewAircraft returns an aircraft at the spawn point.
func NewAircraft() Aircraft {
	return Aircraft{
		Position:    vector.Vec3{Y: SpawnAltitude},
		Orientation: vector.Identity(),
		EnginePower: DefaultEnginePower,
	}
}

// Respawn puts the aircraft back at spawn altitude above its current ground
// position with zero rotation, default power and the crash flag cleared.
//
// Surface deflections and the propeller angle are cosmetic and carry over.
func (a *Aircraft) Respawn() {
	a.Position.Y = SpawnAltitude
	a.Orientation = vector.Identity()
	a.EnginePower = DefaultEnginePower
	a.RollRate, a.PitchRate, a.YawRate = 0, 0, 0
	a.Crashed = false
}

// Transform returns the airframe's world transform.
func (a *Aircraft) Transform() vector.Transform {
	return vector.NewTransform(a.Position, a.Orientation)
}

// Forward returns the unit vector the nose points along.
func (a *Aircraft) Forward() vector.Vec3 {
	return a.Orientation.Rotate(vector.Forward).Normalize()
}
