package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/terrain"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{-90, 270},
		{-180, 180},
		{360, 0},
		{725, 5},
		{-1e-13, 0},
	}
	for _, tt := range tests {
		got := NormalizeHeading(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "heading %v", tt.in)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 360.0)
	}
}

func TestDerive_LevelFlight(t *testing.T) {
	d := NewDeriver()
	pos := vector.Vec3{Y: 100}

	r := d.Derive(vector.Identity(), pos, 0, t0)
	assert.Zero(t, r.SpeedKts, "no history on first derivation")
	assert.InDelta(t, 0, r.PitchDeg, 1e-9)
	assert.InDelta(t, 0, r.RollDeg, 1e-9)
	assert.InDelta(t, 0, r.HeadingDeg, 1e-9)
	assert.InDelta(t, 140, r.AltitudeFt, 1e-9)

	r = d.Derive(vector.Identity(), pos.Add(vector.Vec3{Z: -10}), 2, t0.Add(500*time.Millisecond))
	assert.InDelta(t, 40, r.SpeedKts, 1e-9, "10 units in 0.5s at factor 2")
	assert.Equal(t, 2, r.Objectives)
	assert.Equal(t, r, d.Last())
}

func TestDerive_Attitude(t *testing.T) {
	d := NewDeriver()
	q := vector.Identity().RotateY(-math.Pi / 2).RotateX(0.2).RotateZ(0.3)

	r := d.Derive(q, vector.Vec3{X: 500, Y: 0, Z: 200}, 0, t0)
	assert.InDelta(t, 270, r.HeadingDeg, 1e-9)
	assert.InDelta(t, 0.2*180/math.Pi, r.PitchDeg, 1e-9)
	assert.InDelta(t, 0.3*180/math.Pi, r.RollDeg, 1e-9)
	assert.InDelta(t, -terrain.Height(500, 200), r.AltitudeFt, 1e-9)
}

func TestDerive_ZeroElapsedKeepsSpeed(t *testing.T) {
	d := NewDeriver()
	d.Derive(vector.Identity(), vector.Vec3{}, 0, t0)
	first := d.Derive(vector.Identity(), vector.Vec3{Z: -1}, 0, t0.Add(time.Second))
	require.InDelta(t, 2, first.SpeedKts, 1e-9)

	r := d.Derive(vector.Identity(), vector.Vec3{Z: -5}, 0, t0.Add(time.Second))
	assert.Equal(t, first.SpeedKts, r.SpeedKts)
	assert.False(t, math.IsInf(r.SpeedKts, 0))
}

func TestRebase(t *testing.T) {
	d := NewDeriver()
	d.Derive(vector.Identity(), vector.Vec3{}, 0, t0)
	d.Rebase()
	r := d.Derive(vector.Identity(), vector.Vec3{X: 1e6}, 0, t0.Add(time.Millisecond))
	assert.Zero(t, r.SpeedKts)
}

func TestSlots(t *testing.T) {
	slots := Slots(Readout{
		PitchDeg:   12.4,
		RollDeg:    -3.5,
		HeadingDeg: 359.6,
		SpeedKts:   79.5,
		AltitudeFt: 140.2,
		Objectives: 3,
	})

	got := map[string]string{}
	for _, s := range slots {
		got[s.ID] = s.Text
	}
	assert.Equal(t, map[string]string{
		SlotPitchReadout: "12°",
		SlotPitch:        "12",
		SlotRoll:         "-3",
		SlotHeading:      "360",
		SlotSpeed:        "80 kts",
		SlotAltitude:     "140 ft",
		SlotObjectives:   "3",
	}, got)
}

func TestInstrumentsFor(t *testing.T) {
	in := InstrumentsFor(Readout{HeadingDeg: 90, RollDeg: 15, PitchDeg: -4})
	assert.Equal(t, -540.0, in.HeadingTapeOffsetPx)
	assert.Equal(t, -15.0, in.HorizonRotationDeg)
	assert.Equal(t, -20.0, in.HorizonShiftPx)
}
