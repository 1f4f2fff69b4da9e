// Package scenario runs scripted, headless flights against the simulation.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"infinite-flight/internal/flight"
	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/sim"
	"infinite-flight/internal/telemetry"
)

// ErrInvalidScript is wrapped by every validation failure.
var ErrInvalidScript = errors.New("invalid scenario script")

const defaultTickHz = 60.0

// Script is a deterministic flight description.
//
// YAML schema (v1):
//
//	version: 1
//	ticks: 600
//	tick_hz: 60
//	engine_power: 50
//	seed: 7
//	steps:
//	  - tick: 0
//	    press: [s]
//	  - tick: 120
//	    release: [s]
//	    goal: {x: 0, y: 120, z: -400}
//	  - tick: 200
//	    pick:
//	      origin: {x: 0, y: 300, z: 0}
//	      direction: {x: 0, y: -1, z: -1}
//	    view: true
//
// Steps must use non-decreasing tick values. A step's inputs are applied
// before the tick with that index runs.
type Script struct {
	Version     int     `yaml:"version"`
	Ticks       int     `yaml:"ticks"`
	TickHz      float64 `yaml:"tick_hz"`
	EnginePower float64 `yaml:"engine_power"`
	Seed        uint64  `yaml:"seed"`
	Steps       []Step  `yaml:"steps"`
}

// Step is a batch of inputs applied at one tick.
type Step struct {
	Tick    int      `yaml:"tick"`
	Press   []string `yaml:"press"`
	Release []string `yaml:"release"`
	Goal    *Point   `yaml:"goal"`
	Pick    *Ray     `yaml:"pick"`
	View    bool     `yaml:"view"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (p Point) vec() vector.Vec3 { return vector.Vec3{X: p.X, Y: p.Y, Z: p.Z} }

type Ray struct {
	Origin    Point `yaml:"origin"`
	Direction Point `yaml:"direction"`
}

// LoadScript reads and unmarshals a YAML script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScriptYAML(b)
}

// ParseScriptYAML parses a YAML script.
func ParseScriptYAML(b []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Script{}, fmt.Errorf("parse scenario: %w", err)
	}
	return s, nil
}

// Scenario is a validated script ready to run.
type Scenario struct {
	script Script
}

// New validates script and fills in defaults.
func New(script Script) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidScript, script.Version)
	}
	if script.TickHz == 0 {
		script.TickHz = defaultTickHz
	}
	if script.TickHz < 0 {
		return nil, fmt.Errorf("%w: tick_hz must be positive", ErrInvalidScript)
	}
	if script.EnginePower == 0 {
		script.EnginePower = flight.DefaultEnginePower
	}
	if script.EnginePower < flight.MinEnginePower || script.EnginePower > flight.MaxEnginePower {
		return nil, fmt.Errorf("%w: engine_power %v outside [%v, %v]",
			ErrInvalidScript, script.EnginePower, flight.MinEnginePower, flight.MaxEnginePower)
	}

	last := 0
	for i, st := range script.Steps {
		if st.Tick < 0 {
			return nil, fmt.Errorf("%w: steps[%d].tick is negative", ErrInvalidScript, i)
		}
		if st.Tick < last {
			return nil, fmt.Errorf("%w: steps[%d].tick %d < %d (must be non-decreasing)", ErrInvalidScript, i, st.Tick, last)
		}
		last = st.Tick
		for _, k := range append(append([]string(nil), st.Press...), st.Release...) {
			if _, err := flight.ParseKey(k); err != nil {
				return nil, fmt.Errorf("%w: steps[%d]: %w", ErrInvalidScript, i, err)
			}
		}
		if st.Pick != nil && st.Pick.Direction.vec().Norm() == 0 {
			return nil, fmt.Errorf("%w: steps[%d].pick.direction is zero", ErrInvalidScript, i)
		}
	}

	if script.Ticks == 0 && len(script.Steps) > 0 {
		script.Ticks = last + 1
	}
	if script.Ticks <= 0 {
		return nil, fmt.Errorf("%w: ticks is required (or derivable from steps)", ErrInvalidScript)
	}
	if last >= script.Ticks {
		return nil, fmt.Errorf("%w: step at tick %d is past the last tick %d", ErrInvalidScript, last, script.Ticks-1)
	}
	return &Scenario{script: script}, nil
}

// Script returns the validated script with defaults applied.
func (sc *Scenario) Script() Script { return sc.script }

// TickInterval is the simulated wall time between ticks.
func (sc *Scenario) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / sc.script.TickHz)
}

// Summary describes the outcome of a run.
type Summary struct {
	Ticks       int               `json:"ticks"`
	Elapsed     time.Duration     `json:"elapsed"`
	Position    vector.Vec3       `json:"position"`
	Readout     telemetry.Readout `json:"readout"`
	Crashes     int               `json:"crashes"`
	Respawns    int               `json:"respawns"`
	GoalsSet    int               `json:"goalsSet"`
	Objectives  int               `json:"objectives"`
	Recentered  int               `json:"recentered"`
	MaxAltitude float64           `json:"maxAltitude"`
	Crashed     bool              `json:"crashed"`
}

// Options tune a run. The zero value uses the stock airframe.
type Options struct {
	Settings  *sim.Settings
	Observers []sim.Observer
	// Start is the simulated wall time of tick zero. Defaults to the Unix epoch.
	Start time.Time
}

// Run flies the script on a private simulation driven by a stepping clock.
func (sc *Scenario) Run(ctx context.Context, opts Options) (Summary, error) {
	settings := sim.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	settings.EnginePower = sc.script.EnginePower

	start := opts.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	clock := sim.NewManualClock(start)
	s := sim.New(settings, clock, rand.New(rand.NewPCG(sc.script.Seed, sc.script.Seed)))

	var sum Summary
	sum.MaxAltitude = s.Aircraft().Position.Y
	dt := sc.TickInterval()
	steps := sc.script.Steps

	for tick := 0; tick < sc.script.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		for len(steps) > 0 && steps[0].Tick == tick {
			if err := apply(s, steps[0]); err != nil {
				return sum, fmt.Errorf("tick %d: %w", tick, err)
			}
			steps = steps[1:]
		}

		clock.Advance(dt)
		f := s.Step()
		for _, o := range opts.Observers {
			o.Observe(f)
		}
		sum.record(f)
	}

	sum.Ticks = sc.script.Ticks
	sum.Elapsed = time.Duration(sc.script.Ticks) * dt
	sum.Objectives = s.Objectives()
	return sum, nil
}

func (sum *Summary) record(f sim.Frame) {
	for _, ev := range f.Events {
		switch ev.Type {
		case sim.EventCrash:
			sum.Crashes++
		case sim.EventRespawn:
			sum.Respawns++
		case sim.EventGoalSet:
			sum.GoalsSet++
		case sim.EventRecentered:
			sum.Recentered += len(ev.Slots)
		}
	}
	sum.Position = f.Aircraft.Position
	sum.Readout = f.Readout
	sum.Crashed = f.Aircraft.Crashed
	sum.MaxAltitude = max(sum.MaxAltitude, f.Aircraft.Position.Y)
}

func apply(s *sim.Sim, st Step) error {
	var cmds []sim.Command
	for _, k := range st.Press {
		cmds = append(cmds, sim.KeyCommand{Key: k, Pressed: true})
	}
	for _, k := range st.Release {
		cmds = append(cmds, sim.KeyCommand{Key: k, Pressed: false})
	}
	if st.Goal != nil {
		cmds = append(cmds, sim.GoalCommand{Position: st.Goal.vec()})
	}
	if st.Pick != nil {
		cmds = append(cmds, sim.PickCommand{Origin: st.Pick.Origin.vec(), Direction: st.Pick.Direction.vec()})
	}
	if st.View {
		cmds = append(cmds, sim.ViewCommand{})
	}
	for _, c := range cmds {
		if err := s.Apply(c); err != nil {
			return err
		}
	}
	return nil
}
