package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"infinite-flight/internal/flight"
	"infinite-flight/internal/geometry/vector"
)

func TestRig_ChaseFollowsDelta(t *testing.T) {
	r := NewRig()
	a := flight.NewAircraft()

	p := r.Follow(&a)
	assert.Equal(t, ModeChase, p.Mode)
	assert.Equal(t, vector.Vec3{Y: 110, Z: 20}, p.Position)

	a.Position = a.Position.Add(vector.Vec3{X: 3, Y: -1, Z: -7})
	p = r.Follow(&a)
	assert.Equal(t, vector.Vec3{X: 3, Y: 109, Z: 13}, p.Position)
	assert.Equal(t, a.Position, p.Target)

	// The camera looks at the aircraft along its -Z.
	look := p.Orientation.Rotate(vector.Vec3{Z: -1})
	assert.InDelta(t, 1, look.Dot(a.Position.Sub(p.Position).Normalize()), 1e-9)
}

func TestRig_CockpitSitsInAirframe(t *testing.T) {
	r := NewRig()
	assert.Equal(t, ModeCockpit, r.Toggle())

	a := flight.NewAircraft()
	a.EnginePower = 100
	var p Pose
	for i := 0; i < 200; i++ {
		p = r.Follow(&a)
	}
	// Push-back settles at 0.5 * 4 units behind the eye point.
	assert.InDelta(t, 1.06+100, p.Position.Y, 1e-9)
	assert.InDelta(t, -0.6-2, p.Position.Z, 1e-6)
	assert.Equal(t, a.Orientation, p.Orientation)

	assert.Equal(t, ModeChase, r.Toggle())
}

func TestRig_ResizeOnlyChangesAspect(t *testing.T) {
	r := NewRig()
	a := flight.NewAircraft()
	before := r.Follow(&a)

	r.Resize(800, 400)
	r.Resize(0, 100)
	after := r.Follow(&a)

	assert.Equal(t, 2.0, after.Aspect)
	assert.Equal(t, before.Position, after.Position)
}
