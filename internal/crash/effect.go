// Package crash detects ground contact and runs the fire and smoke burst that
// plays until the aircraft respawns.
package crash

import (
	"time"

	"infinite-flight/internal/geometry/vector"
)

const (
	// BurstSize is the number of particles spawned per crash.
	BurstSize = 40
	// ResetDelay is the wall time between impact and respawn.
	ResetDelay = 2 * time.Second
	// ContactClearance is the height above terrain that counts as impact.
	ContactClearance = 0.5
)

// Source provides uniform random numbers in [0, 1).
//
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// State is the crash state machine position.
type State string

const (
	Flying  State = "flying"
	Crashed State = "crashed"
)

// Effect owns the crash state and the live particles.
type Effect struct {
	rng       Source
	state     State
	resetAt   time.Time
	impact    vector.Vec3
	particles []Particle
}

// New returns an effect in the Flying state.
func New(rng Source) *Effect {
	return &Effect{rng: rng, state: Flying}
}

// State returns the current state.
func (e *Effect) State() State { return e.state }

// Crashed reports whether the aircraft is down.
func (e *Effect) Crashed() bool { return e.state == Crashed }

// ResetAt returns when the pending respawn is due. Zero while flying.
func (e *Effect) ResetAt() time.Time { return e.resetAt }

// Impact returns where the last crash happened.
func (e *Effect) Impact() vector.Vec3 { return e.impact }

// Check compares pos against the ground height and starts a crash on contact.
// It returns true only on the tick the crash begins; while already crashed it
// is a no-op.
func (e *Effect) Check(pos vector.Vec3, ground float64, now time.Time) bool {
	if e.state == Crashed {
		return false
	}
	if pos.Y >= ground+ContactClearance {
		return false
	}

	e.state = Crashed
	e.impact = pos
	e.resetAt = now.Add(ResetDelay)
	e.spawn(pos)
	return true
}

// ResetDue reports whether a crashed aircraft should respawn at now.
func (e *Effect) ResetDue(now time.Time) bool {
	return e.state == Crashed && !now.Before(e.resetAt)
}

// Reset returns to Flying and drops every particle regardless of its life.
func (e *Effect) Reset() {
	e.state = Flying
	e.resetAt = time.Time{}
	e.particles = e.particles[:0]
}

// Particles returns the live particles. Callers must not keep the slice
// across steps.
func (e *Effect) Particles() []Particle {
	return e.particles
}

// Age advances every particle by one tick and removes the expired ones.
func (e *Effect) Age() {
	live := e.particles[:0]
	for _, p := range e.particles {
		p.age()
		if p.Life > 0 {
			live = append(live, p)
		}
	}
	e.particles = live
}

func (e *Effect) spawn(at vector.Vec3) {
	for i := 0; i < BurstSize; i++ {
		e.particles = append(e.particles, newParticle(e.rng, at))
	}
}
