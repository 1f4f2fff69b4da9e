// Package camera derives the viewer pose for the cockpit and chase views.
package camera

import (
	"infinite-flight/internal/flight"
	"infinite-flight/internal/geometry/vector"
)

// Mode selects which view the renderer should use.
type Mode string

const (
	ModeChase   Mode = "chase"
	ModeCockpit Mode = "cockpit"
)

const (
	// gLerp smooths the cockpit g-force push-back.
	gLerp = 0.1
	// gPerPower is the push-back target at full power.
	gPerPower = 0.5
	// gDisplacement scales push-back into seat travel.
	gDisplacement = 4.0

	// DefaultFOV is the vertical field of view in degrees.
	DefaultFOV = 60.0
)

var (
	// cockpitEye is the pilot's eye point in airframe space before push-back.
	cockpitEye = vector.Vec3{Y: 1.06, Z: -0.6}
	// chaseStart is where the chase camera starts.
	chaseStart = vector.Vec3{Y: 110, Z: 20}
)

// Pose is what the renderer needs to place its camera.
type Pose struct {
	Mode        Mode        `json:"mode" cbor:"mode"`
	Position    vector.Vec3 `json:"position" cbor:"p"`
	Orientation vector.Quat `json:"orientation" cbor:"q"`
	// Target is the orbit focus in chase mode.
	Target vector.Vec3 `json:"target" cbor:"t"`
	FOV    float64     `json:"fov" cbor:"fov"`
	Aspect float64     `json:"aspect" cbor:"aspect"`
}

// Rig tracks the camera across ticks.
type Rig struct {
	mode     Mode
	position vector.Vec3
	gForce   float64
	lastBody vector.Vec3
	aspect   float64
	primed   bool
}

// NewRig returns a chase camera behind the spawn point.
func NewRig() *Rig {
	return &Rig{mode: ModeChase, position: chaseStart, aspect: 16.0 / 9.0}
}

// Toggle switches between chase and cockpit views.
func (r *Rig) Toggle() Mode {
	if r.mode == ModeChase {
		r.mode = ModeCockpit
	} else {
		r.mode = ModeChase
	}
	return r.mode
}

// Mode returns the current view.
func (r *Rig) Mode() Mode { return r.mode }

// Resize records the viewport size. It only changes the reported aspect.
func (r *Rig) Resize(width, height int) {
	if width > 0 && height > 0 {
		r.aspect = float64(width) / float64(height)
	}
}

// Follow updates the camera for the aircraft's new pose.
func (r *Rig) Follow(a *flight.Aircraft) Pose {
	if !r.primed {
		r.lastBody = a.Position
		r.primed = true
	}

	var p Pose
	switch r.mode {
	case ModeCockpit:
		r.gForce = vector.Lerp(r.gForce, a.EnginePower/100*gPerPower, gLerp)
		eye := cockpitEye
		eye.Z -= r.gForce * gDisplacement
		r.position = a.Transform().Apply(eye)
		p = Pose{Position: r.position, Orientation: a.Orientation, Target: a.Position}
	default:
		// Ride along with the aircraft, keeping the user's orbit offset.
		r.position = r.position.Add(a.Position.Sub(r.lastBody))
		p = Pose{
			Position:    r.position,
			Orientation: vector.LookRotation(r.position.Sub(a.Position), vector.Up),
			Target:      a.Position,
		}
	}
	r.lastBody = a.Position

	p.Mode = r.mode
	p.FOV = DefaultFOV
	p.Aspect = r.aspect
	return p
}
