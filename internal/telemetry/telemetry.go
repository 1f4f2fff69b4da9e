// Package telemetry derives the HUD readings from the aircraft pose.
package telemetry

import (
	"math"
	"time"

	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/terrain"
)

// SpeedFactor converts world units per second into displayed knots.
const SpeedFactor = 2.0

// Readout is one tick of instrument values.
type Readout struct {
	PitchDeg   float64 `json:"pitchDeg" cbor:"pitch"`
	RollDeg    float64 `json:"rollDeg" cbor:"roll"`
	HeadingDeg float64 `json:"headingDeg" cbor:"hdg"`
	SpeedKts   float64 `json:"speedKts" cbor:"spd"`
	AltitudeFt float64 `json:"altitudeFt" cbor:"alt"`
	Objectives int     `json:"objectives" cbor:"obj"`
}

// Deriver computes readouts. It remembers the previous position to measure
// ground speed against wall time.
type Deriver struct {
	lastPos vector.Vec3
	lastAt  time.Time
	primed  bool
	last    Readout
}

// NewDeriver returns a deriver with no history.
func NewDeriver() *Deriver {
	return &Deriver{}
}

// Derive computes the readout for the aircraft at pos with orientation q.
//
// Speed is zero on the first call and whenever no wall time has elapsed.
func (d *Deriver) Derive(q vector.Quat, pos vector.Vec3, objectives int, now time.Time) Readout {
	e := q.EulerYXZ()
	r := Readout{
		PitchDeg:   degrees(e.X),
		RollDeg:    degrees(e.Z),
		HeadingDeg: NormalizeHeading(degrees(e.Y)),
		AltitudeFt: terrain.GroundClearance(pos),
		Objectives: objectives,
	}

	if d.primed {
		if dt := now.Sub(d.lastAt).Seconds(); dt > 0 {
			r.SpeedKts = pos.Dist(d.lastPos) / dt * SpeedFactor
		} else {
			r.SpeedKts = d.last.SpeedKts
		}
	}
	d.lastPos, d.lastAt, d.primed = pos, now, true
	d.last = r
	return r
}

// Last returns the most recent readout.
func (d *Deriver) Last() Readout { return d.last }

// Rebase forgets the speed history, e.g. after the aircraft is teleported.
func (d *Deriver) Rebase() {
	d.primed = false
}

// NormalizeHeading maps any angle in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
