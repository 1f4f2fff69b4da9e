package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"infinite-flight/internal/flight"
	"infinite-flight/internal/geometry/vector"
)

// ErrInvalidCommand is wrapped by every command validation failure.
var ErrInvalidCommand = errors.New("invalid command")

type CommandType string

const (
	CmdKey    CommandType = "key"
	CmdPick   CommandType = "pick"
	CmdGoal   CommandType = "goal"
	CmdConfig CommandType = "config"
	CmdView   CommandType = "view"
	CmdResize CommandType = "resize"
)

type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
	Validate() error
}

// KeyCommand presses or releases one control key. Key accepts the keyboard
// binding ("w") or the control name ("pitch_down").
type KeyCommand struct {
	At      time.Time `json:"-" cbor:"-"`
	Key     string    `json:"key" cbor:"key"`
	Pressed bool      `json:"pressed" cbor:"pressed"`
}

func (c KeyCommand) Type() CommandType     { return CmdKey }
func (c KeyCommand) ReceivedAt() time.Time { return c.At }
func (c KeyCommand) Validate() error {
	if _, err := flight.ParseKey(c.Key); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return nil
}

// PickCommand casts a ray into the terrain and places a goal above the hit.
type PickCommand struct {
	At        time.Time   `json:"-" cbor:"-"`
	Origin    vector.Vec3 `json:"origin" cbor:"origin"`
	Direction vector.Vec3 `json:"direction" cbor:"direction"`
}

func (c PickCommand) Type() CommandType     { return CmdPick }
func (c PickCommand) ReceivedAt() time.Time { return c.At }
func (c PickCommand) Validate() error {
	if !c.Origin.IsFinite() || !c.Direction.IsFinite() {
		return fmt.Errorf("%w: pick ray must be finite", ErrInvalidCommand)
	}
	if c.Direction.Norm() == 0 {
		return fmt.Errorf("%w: pick direction must be non-zero", ErrInvalidCommand)
	}
	return nil
}

// GoalCommand places a goal at an exact world position.
type GoalCommand struct {
	At       time.Time   `json:"-" cbor:"-"`
	Position vector.Vec3 `json:"position" cbor:"position"`
}

func (c GoalCommand) Type() CommandType     { return CmdGoal }
func (c GoalCommand) ReceivedAt() time.Time { return c.At }
func (c GoalCommand) Validate() error {
	if !c.Position.IsFinite() {
		return fmt.Errorf("%w: goal position must be finite", ErrInvalidCommand)
	}
	return nil
}

// ConfigCommand changes any subset of the runtime settings.
type ConfigCommand struct {
	At    time.Time   `json:"-" cbor:"-"`
	Patch ConfigPatch `json:"patch" cbor:"patch"`
}

func (c ConfigCommand) Type() CommandType     { return CmdConfig }
func (c ConfigCommand) ReceivedAt() time.Time { return c.At }
func (c ConfigCommand) Validate() error       { return c.Patch.Validate() }

// ConfigPatch holds optional settings updates; nil fields are left alone.
type ConfigPatch struct {
	WingZ       *float64 `json:"wingZ,omitempty" cbor:"wingZ,omitempty"`
	WingScale   *float64 `json:"wingScale,omitempty" cbor:"wingScale,omitempty"`
	TailZ       *float64 `json:"tailZ,omitempty" cbor:"tailZ,omitempty"`
	MotorZ      *float64 `json:"motorZ,omitempty" cbor:"motorZ,omitempty"`
	ConeZ       *float64 `json:"coneZ,omitempty" cbor:"coneZ,omitempty"`
	EnginePower *float64 `json:"enginePower,omitempty" cbor:"enginePower,omitempty"`
	Wireframe   *bool    `json:"wireframe,omitempty" cbor:"wireframe,omitempty"`
}

// Validate applies the same ranges the settings sliders expose.
func (p ConfigPatch) Validate() error {
	check := func(name string, v *float64, lo, hi float64) error {
		if v == nil {
			return nil
		}
		// NaN slips past the range comparison below.
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidCommand, name)
		}
		if *v < lo || *v > hi {
			return fmt.Errorf("%w: %s %v outside [%v, %v]", ErrInvalidCommand, name, *v, lo, hi)
		}
		return nil
	}
	unbounded := math.Inf(1)
	return errors.Join(
		check("wingZ", p.WingZ, MinWingZ, MaxWingZ),
		check("wingScale", p.WingScale, MinWingScale, MaxWingScale),
		check("tailZ", p.TailZ, -unbounded, unbounded),
		check("motorZ", p.MotorZ, -unbounded, unbounded),
		check("coneZ", p.ConeZ, -unbounded, unbounded),
		check("enginePower", p.EnginePower, flight.MinEnginePower, flight.MaxEnginePower),
	)
}

// ViewCommand toggles between the chase and cockpit cameras.
type ViewCommand struct {
	At time.Time `json:"-" cbor:"-"`
}

func (c ViewCommand) Type() CommandType     { return CmdView }
func (c ViewCommand) ReceivedAt() time.Time { return c.At }
func (c ViewCommand) Validate() error       { return nil }

// ResizeCommand reports the renderer's viewport size.
type ResizeCommand struct {
	At     time.Time `json:"-" cbor:"-"`
	Width  int       `json:"width" cbor:"width"`
	Height int       `json:"height" cbor:"height"`
}

func (c ResizeCommand) Type() CommandType     { return CmdResize }
func (c ResizeCommand) ReceivedAt() time.Time { return c.At }
func (c ResizeCommand) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidCommand, c.Width, c.Height)
	}
	return nil
}
