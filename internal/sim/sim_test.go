package sim

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-flight/internal/camera"
	"infinite-flight/internal/crash"
	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/terrain"
)

const frameDt = 16 * time.Millisecond

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestSim(t *testing.T) (*Sim, *ManualClock) {
	t.Helper()
	clock := NewManualClock(t0)
	return New(DefaultSettings(), clock, rand.New(rand.NewPCG(1, 2))), clock
}

func step(s *Sim, clock *ManualClock) Frame {
	clock.Advance(frameDt)
	return s.Step()
}

func countEvents(f Frame, typ EventType) int {
	n := 0
	for _, e := range f.Events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestStep_NoInputHoldsAltitudeAndHeading(t *testing.T) {
	s, clock := newTestSim(t)

	var f Frame
	for i := 0; i < 10; i++ {
		f = step(s, clock)
	}

	assert.Equal(t, uint64(10), f.Tick)
	assert.InDelta(t, 100, f.Aircraft.Position.Y, 1e-9)
	assert.InDelta(t, 0, f.Aircraft.Position.X, 1e-9)
	assert.InDelta(t, -10, f.Aircraft.Position.Z, 1e-9)
	assert.InDelta(t, 0, f.Readout.HeadingDeg, 1e-9)
	assert.InDelta(t, 0, f.Readout.PitchDeg, 1e-9)
	assert.Equal(t, crash.Flying, f.State)
	assert.Len(t, f.Aircraft.Parts, 8)
	assert.Len(t, f.HUD, 7)
}

func TestStep_GoalWithinRadiusCompletesOnce(t *testing.T) {
	s, clock := newTestSim(t)
	require.NoError(t, s.Apply(GoalCommand{Position: vector.Vec3{X: 5, Y: 100}}))

	f := step(s, clock)
	assert.Equal(t, 1, countEvents(f, EventGoalSet))
	assert.Equal(t, 1, countEvents(f, EventGoalCompleted))
	assert.Nil(t, f.Goal)
	assert.Equal(t, 1, f.Readout.Objectives)
	assert.True(t, f.Aircraft.Pulse)

	completions := 0
	for i := 0; i < 40; i++ {
		f = step(s, clock)
		completions += countEvents(f, EventGoalCompleted)
	}
	assert.Zero(t, completions)
	assert.Equal(t, 1, s.Objectives())
	assert.False(t, f.Aircraft.Pulse, "pulse over after 500ms")
}

func TestStep_CrashIsIdempotentAndRespawns(t *testing.T) {
	s, clock := newTestSim(t)
	require.NoError(t, s.Apply(GoalCommand{Position: vector.Vec3{X: 500, Y: 100}}))
	s.aircraft.Position = vector.Vec3{Y: -60}
	s.aircraft.Orientation = vector.Identity().RotateX(-0.3)

	f := step(s, clock)
	require.Equal(t, 1, countEvents(f, EventCrash))
	assert.Equal(t, crash.Crashed, f.State)
	assert.True(t, f.Aircraft.Crashed)
	assert.Zero(t, f.Aircraft.EnginePower)
	assert.NotEmpty(t, f.Particles)
	assert.LessOrEqual(t, len(f.Particles), crash.BurstSize)
	crashedAt := f.Aircraft.Position
	frozen := f.Readout

	for i := 0; i < 50; i++ {
		prev := len(f.Particles)
		f = step(s, clock)
		assert.Zero(t, countEvents(f, EventCrash))
		assert.LessOrEqual(t, len(f.Particles), prev)
		assert.Equal(t, crashedAt, f.Aircraft.Position, "no movement while crashed")
		assert.Equal(t, frozen, f.Readout)
	}

	clock.Advance(crash.ResetDelay)
	f = s.Step()
	require.Equal(t, 1, countEvents(f, EventRespawn))
	assert.Equal(t, crash.Flying, f.State)
	assert.False(t, f.Aircraft.Crashed)
	assert.Equal(t, 50.0, f.Aircraft.EnginePower)
	assert.InDelta(t, 100, f.Aircraft.Position.Y, 1e-9)
	assert.Equal(t, vector.Identity(), f.Aircraft.Orientation)
	assert.Empty(t, f.Particles)
	require.NotNil(t, f.Goal, "goal survives a crash")
}

func TestStep_RecenterKeepsGrid(t *testing.T) {
	s, clock := newTestSim(t)
	s.aircraft.Position = vector.Vec3{X: 1600, Y: 500, Z: -2400}

	f := step(s, clock)
	require.Equal(t, 1, countEvents(f, EventRecentered))
	assert.NotEmpty(t, f.Chunks)

	pos := f.Aircraft.Position
	gx, gz := s.streamer.GridOrigin(pos)
	want := map[[2]float64]bool{}
	for dx := -1.0; dx <= 1; dx++ {
		for dz := -1.0; dz <= 1; dz++ {
			want[[2]float64{gx + dx*terrain.ChunkSize, gz + dz*terrain.ChunkSize}] = true
		}
	}

	chunks := s.TerrainSnapshot()
	require.Len(t, chunks, terrain.ChunkCount)
	got := map[[2]float64]bool{}
	for _, c := range chunks {
		got[[2]float64{c.OffsetX, c.OffsetZ}] = true
		for _, ij := range [][2]int{{0, 0}, {7, 31}, {c.Segments, c.Segments}} {
			lx, lz := c.LocalSample(ij[0], ij[1])
			assert.Equal(t, terrain.Height(c.OffsetX+lx, c.OffsetZ+lz), c.HeightAt(ij[0], ij[1]))
		}
	}
	assert.Equal(t, want, got)

	f = step(s, clock)
	assert.Empty(t, f.Chunks, "nothing moves while inside the cell")
}

func TestApply_PitchUpClimbs(t *testing.T) {
	s, clock := newTestSim(t)
	require.NoError(t, s.Apply(KeyCommand{Key: "s", Pressed: true}))
	assert.True(t, s.Controls().PitchUp)

	var f Frame
	for i := 0; i < 60; i++ {
		f = step(s, clock)
	}
	assert.Greater(t, f.Aircraft.Position.Y, 100.0)
	assert.Greater(t, f.Readout.PitchDeg, 0.0)
	assert.Greater(t, f.Aircraft.Elevator, 0.5)

	require.NoError(t, s.Apply(KeyCommand{Key: "pitch_up", Pressed: false}))
	assert.False(t, s.Controls().PitchUp)
}

func TestApply_RejectsInvalid(t *testing.T) {
	s, clock := newTestSim(t)
	before := s.Settings()

	tests := []struct {
		name string
		cmd  Command
	}{
		{"unknown key", KeyCommand{Key: "z", Pressed: true}},
		{"zero pick direction", PickCommand{Origin: vector.Vec3{Y: 10}}},
		{"engine power too low", ConfigCommand{Patch: ConfigPatch{EnginePower: ptr(5.0)}}},
		{"wing scale too high", ConfigCommand{Patch: ConfigPatch{WingScale: ptr(3.0)}}},
		{"empty viewport", ResizeCommand{Width: 0, Height: 600}},
		{"NaN engine power", ConfigCommand{Patch: ConfigPatch{EnginePower: ptr(math.NaN())}}},
		{"infinite wing z", ConfigCommand{Patch: ConfigPatch{WingZ: ptr(math.Inf(1))}}},
		{"NaN tail z", ConfigCommand{Patch: ConfigPatch{TailZ: ptr(math.NaN())}}},
		{"NaN goal", GoalCommand{Position: vector.Vec3{X: math.NaN(), Y: 100}}},
		{"infinite pick origin", PickCommand{Origin: vector.Vec3{Y: math.Inf(-1)}, Direction: vector.Vec3{Y: -1}}},
		{"NaN pick direction", PickCommand{Origin: vector.Vec3{Y: 10}, Direction: vector.Vec3{Y: math.NaN()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Apply(tt.cmd)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCommand)
		})
	}
	assert.Equal(t, before, s.Settings())

	f := step(s, clock)
	assert.Nil(t, f.Goal)
	assert.Zero(t, s.Objectives())
	assert.False(t, math.IsNaN(f.Readout.HeadingDeg))
	assert.True(t, f.Aircraft.Position.IsFinite())
}

func TestApply_PickPlacesGoalAboveTerrain(t *testing.T) {
	s, clock := newTestSim(t)
	require.NoError(t, s.Apply(PickCommand{
		Origin:    vector.Vec3{X: 300, Y: 200, Z: -300},
		Direction: vector.Vec3{Y: -1},
	}))

	f := step(s, clock)
	require.Equal(t, 1, countEvents(f, EventGoalSet))
	require.NotNil(t, f.Goal)
	assert.InDelta(t, terrain.Height(300, -300)+40, f.Goal.Position.Y, 1e-3)
	assert.InDelta(t, 300, f.Goal.Position.X, 1e-9)
}

func TestApply_PickMissIsNoop(t *testing.T) {
	s, clock := newTestSim(t)
	require.NoError(t, s.Apply(PickCommand{Origin: vector.Vec3{Y: 200}, Direction: vector.Vec3{Y: 1}}))

	f := step(s, clock)
	assert.Nil(t, f.Goal)
	assert.Zero(t, countEvents(f, EventGoalSet))
}

func TestApply_ConfigPatch(t *testing.T) {
	s, clock := newTestSim(t)
	require.NoError(t, s.Apply(ConfigCommand{Patch: ConfigPatch{
		WingScale:   ptr(2.0),
		WingZ:       ptr(-1.0),
		EnginePower: ptr(100.0),
		Wireframe:   ptr(true),
	}}))

	got := s.Settings()
	assert.Equal(t, 2.0, got.Geometry.WingScale)
	assert.Equal(t, -1.0, got.Geometry.WingZ)
	assert.Equal(t, 2.415, got.Geometry.TailZ, "unset fields kept")
	assert.Equal(t, 100.0, got.EnginePower)
	assert.True(t, got.Wireframe)

	f := step(s, clock)
	assert.True(t, f.Wireframe)
	assert.InDelta(t, -2, f.Aircraft.Position.Z, 1e-9, "full power moves two units per tick")

	pivots := got.Geometry.Pivots()
	assert.InDelta(t, -0.2, pivots.AileronLeft.Z, 1e-12, "pivots follow the wing offset")
	assert.InDelta(t, -5, pivots.AileronLeft.X, 1e-12)
}

func TestApply_ViewAndResize(t *testing.T) {
	s, clock := newTestSim(t)
	assert.Equal(t, camera.ModeChase, step(s, clock).Camera.Mode)

	require.NoError(t, s.Apply(ViewCommand{}))
	require.NoError(t, s.Apply(ResizeCommand{Width: 800, Height: 400}))
	f := step(s, clock)
	assert.Equal(t, camera.ModeCockpit, f.Camera.Mode)
	assert.Equal(t, 2.0, f.Camera.Aspect)
}

func TestSnapshot_DoesNotAdvance(t *testing.T) {
	s, clock := newTestSim(t)
	step(s, clock)
	a := s.Snapshot()
	b := s.Snapshot()
	assert.Equal(t, a, b)
	assert.Equal(t, uint64(1), a.Tick)
	assert.Empty(t, a.Chunks)
}

func ptr[T any](v T) *T { return &v }
