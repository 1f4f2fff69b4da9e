package flight

import (
	"infinite-flight/internal/geometry/vector"
)

// Tuning constants of the flight model, per simulation tick.
const (
	// airframeLerp smooths rotation rates toward demand.
	airframeLerp = 0.04
	// surfaceLerp smooths the visible control-surface deflections.
	surfaceLerp = 0.1
	// rotationFactor scales smoothed rates into radians per tick.
	rotationFactor = 0.03
	// propTorqueFactor is the constant propeller torque bias.
	propTorqueFactor = 0.001
	// powerReference normalizes engine power in torque and roll terms.
	powerReference = 30.0
	// maxSpeed is the distance per tick at full power.
	maxSpeed = 2.0
	// propIdleSpin is the propeller spin per tick independent of power.
	propIdleSpin = 0.2
)

// Model advances an Aircraft by one tick.
//
// Geometry.WingScale must be positive; this is not checked.
type Model struct {
	Geometry Geometry
}

// NewModel returns a model for the given airframe.
func NewModel(g Geometry) *Model {
	return &Model{Geometry: g}
}

// Step applies one tick of control input to a.
func (m *Model) Step(a *Aircraft, c Controls) {
	d := c.Demand()
	powerRatio := a.EnginePower / powerReference

	a.RollRate = vector.Lerp(a.RollRate, d.Roll, airframeLerp)
	a.YawRate = vector.Lerp(a.YawRate, d.Yaw, airframeLerp)
	a.PitchRate = vector.Lerp(a.PitchRate, d.Pitch, airframeLerp)

	q := a.Orientation
	q = q.RotateY(a.YawRate * rotationFactor)
	q = q.RotateX(a.PitchRate * rotationFactor)

	// Propeller torque while pitching. Nose-up and nose-down use different
	// coefficients; they are not mirror images of each other.
	pitch := a.PitchRate
	if pitch > 0 {
		q = q.RotateZ(propTorqueFactor + (pitch/200)*powerRatio)
		q = q.RotateY(propTorqueFactor/10 + (pitch/2000)*powerRatio)
	}
	if pitch < 0 {
		q = q.RotateZ(-propTorqueFactor + (pitch/2000)*powerRatio)
		q = q.RotateY(-propTorqueFactor/40 + (pitch/20000)*powerRatio)
	}

	// Wider wings give less roll per unit of aileron at the same power.
	q = q.RotateZ((a.RollRate * rotationFactor * 2 / m.Geometry.WingScale) * powerRatio)
	a.Orientation = q.Normalize()

	a.Aileron = vector.Lerp(a.Aileron, d.Roll, surfaceLerp)
	a.Rudder = vector.Lerp(a.Rudder, d.Yaw, surfaceLerp)
	a.Elevator = vector.Lerp(a.Elevator, d.Pitch, surfaceLerp)

	power := a.EnginePower / 100
	a.PropellerAngle += -propIdleSpin - power

	if speed := maxSpeed * power; speed > 0 {
		a.Position = a.Position.Add(a.Forward().Mul(speed))
	}
}

// Speed returns the distance per tick at the given engine power percent.
func Speed(enginePower float64) float64 {
	return maxSpeed * enginePower / 100
}
