package sim

import (
	"slices"
	"time"

	"infinite-flight/internal/camera"
	"infinite-flight/internal/crash"
	"infinite-flight/internal/flight"
	"infinite-flight/internal/goal"
	"infinite-flight/internal/telemetry"
	"infinite-flight/internal/terrain"
)

const (
	// PulseDuration is how long the aircraft glows after scoring a goal.
	PulseDuration = 500 * time.Millisecond

	MinWingZ     = -2.0
	MaxWingZ     = 2.0
	MinWingScale = 0.8
	MaxWingScale = 2.0
)

// Settings are the runtime-adjustable parameters.
type Settings struct {
	Geometry    flight.Geometry
	EnginePower float64
	Wireframe   bool
}

// DefaultSettings returns the stock airframe at default power.
func DefaultSettings() Settings {
	return Settings{
		Geometry:    flight.DefaultGeometry(),
		EnginePower: flight.DefaultEnginePower,
	}
}

// Sim is the whole simulation context. It is not safe for concurrent use;
// Engine serializes access to it.
type Sim struct {
	clock Clock

	model     *flight.Model
	aircraft  flight.Aircraft
	controls  flight.Controls
	wireframe bool

	streamer *terrain.Streamer
	crash    *crash.Effect
	goals    *goal.System
	deriver  *telemetry.Deriver
	rig      *camera.Rig

	tick       uint64
	pulseUntil time.Time
	camera     camera.Pose
	readout    telemetry.Readout
	pending    []Event
}

// New returns a simulation with the aircraft at spawn. rng feeds the crash
// particles.
func New(s Settings, clock Clock, rng crash.Source) *Sim {
	sm := &Sim{
		clock:     clock,
		model:     flight.NewModel(s.Geometry),
		aircraft:  flight.NewAircraft(),
		wireframe: s.Wireframe,
		streamer:  terrain.NewStreamer(),
		crash:     crash.New(rng),
		goals:     goal.New(),
		deriver:   telemetry.NewDeriver(),
		rig:       camera.NewRig(),
	}
	sm.aircraft.EnginePower = s.EnginePower
	sm.camera = sm.rig.Follow(&sm.aircraft)
	return sm
}

// Step advances the simulation by one tick and returns the resulting frame.
func (s *Sim) Step() Frame {
	began := time.Now()
	now := s.clock.Now()
	s.tick++
	events := s.pending
	s.pending = nil

	if s.crash.ResetDue(now) {
		s.crash.Reset()
		s.aircraft.Respawn()
		s.deriver.Rebase()
		events = append(events, Event{Type: EventRespawn, At: now, Position: s.aircraft.Position})
	}

	if !s.crash.Crashed() {
		s.model.Step(&s.aircraft, s.controls)
		s.camera = s.rig.Follow(&s.aircraft)
	}

	var moved []terrain.Chunk
	if slots := s.streamer.Recenter(s.aircraft.Position); len(slots) > 0 {
		for _, slot := range slots {
			moved = append(moved, s.streamer.Chunk(slot).Clone())
		}
		events = append(events, Event{Type: EventRecentered, At: now, Position: s.aircraft.Position, Slots: slots})
	}

	pos := s.aircraft.Position
	if s.crash.Check(pos, terrain.Height(pos.X, pos.Z), now) {
		s.aircraft.Crashed = true
		s.aircraft.EnginePower = 0
		events = append(events, Event{Type: EventCrash, At: now, Position: pos})
	}

	s.crash.Age()

	if !s.crash.Crashed() {
		if m, done := s.goals.Update(pos); done {
			s.pulseUntil = now.Add(PulseDuration)
			events = append(events, Event{Type: EventGoalCompleted, At: now, Position: m.Position, Count: s.goals.Completed()})
		}
		s.readout = s.deriver.Derive(s.aircraft.Orientation, pos, s.goals.Completed(), now)
	}

	f := s.frame(now)
	f.Chunks = moved
	f.Events = events
	f.Elapsed = time.Since(began)
	return f
}

// Apply executes a command between ticks. Commands that fail validation
// leave the simulation untouched.
func (s *Sim) Apply(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	now := s.clock.Now()

	switch c := cmd.(type) {
	case KeyCommand:
		k, _ := flight.ParseKey(c.Key)
		s.controls.Set(k, c.Pressed)

	case PickCommand:
		hit, ok := s.streamer.Raycast(c.Origin, c.Direction, terrain.DefaultPickDistance)
		if !ok {
			return nil
		}
		m := s.goals.SetFromPick(hit)
		s.pending = append(s.pending, Event{Type: EventGoalSet, At: now, Position: m.Position})

	case GoalCommand:
		m := s.goals.Set(c.Position)
		s.pending = append(s.pending, Event{Type: EventGoalSet, At: now, Position: m.Position})

	case ConfigCommand:
		s.applyPatch(c.Patch)

	case ViewCommand:
		s.rig.Toggle()

	case ResizeCommand:
		s.rig.Resize(c.Width, c.Height)
	}
	return nil
}

func (s *Sim) applyPatch(p ConfigPatch) {
	g := &s.model.Geometry
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&g.WingZ, p.WingZ)
	set(&g.WingScale, p.WingScale)
	set(&g.TailZ, p.TailZ)
	set(&g.MotorZ, p.MotorZ)
	set(&g.ConeZ, p.ConeZ)
	set(&s.aircraft.EnginePower, p.EnginePower)
	if p.Wireframe != nil {
		s.wireframe = *p.Wireframe
	}
}

// Snapshot returns the current state as a frame without advancing time.
func (s *Sim) Snapshot() Frame {
	return s.frame(s.clock.Now())
}

// Settings returns the current runtime settings.
func (s *Sim) Settings() Settings {
	return Settings{
		Geometry:    s.model.Geometry,
		EnginePower: s.aircraft.EnginePower,
		Wireframe:   s.wireframe,
	}
}

// Aircraft returns a copy of the aircraft state.
func (s *Sim) Aircraft() flight.Aircraft { return s.aircraft }

// Controls returns the held keys.
func (s *Sim) Controls() flight.Controls { return s.controls }

// Objectives returns the completed goal count.
func (s *Sim) Objectives() int { return s.goals.Completed() }

// TerrainSnapshot returns deep copies of all chunks.
func (s *Sim) TerrainSnapshot() []terrain.Chunk { return s.streamer.Snapshot() }

func (s *Sim) frame(now time.Time) Frame {
	a := &s.aircraft
	f := Frame{
		Tick:  s.tick,
		Time:  now,
		State: s.crash.State(),
		Aircraft: AircraftPose{
			Position:       a.Position,
			Orientation:    a.Orientation,
			Aileron:        a.Aileron,
			Rudder:         a.Rudder,
			Elevator:       a.Elevator,
			EnginePower:    a.EnginePower,
			PropellerAngle: a.PropellerAngle,
			Crashed:        a.Crashed,
			Pulse:          now.Before(s.pulseUntil),
			Parts:          s.model.Geometry.WorldParts(a),
		},
		Camera:      s.camera,
		Readout:     s.readout,
		HUD:         telemetry.Slots(s.readout),
		Instruments: telemetry.InstrumentsFor(s.readout),
		Particles:   slices.Clone(s.crash.Particles()),
		Wireframe:   s.wireframe,
	}
	if m, ok := s.goals.Active(); ok {
		f.Goal = &m
	}
	return f
}
