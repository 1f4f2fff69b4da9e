package flight

import (
	"fmt"
	"strings"
)

// Key names one of the six flight control inputs.
type Key string

const (
	KeyRollLeft  Key = "roll_left"
	KeyRollRight Key = "roll_right"
	KeyYawLeft   Key = "yaw_left"
	KeyYawRight  Key = "yaw_right"
	KeyPitchUp   Key = "pitch_up"
	KeyPitchDown Key = "pitch_down"
)

// keyboard maps the browser key bindings onto control keys.
var keyboard = map[string]Key{
	"q": KeyRollLeft,
	"e": KeyRollRight,
	"a": KeyYawLeft,
	"d": KeyYawRight,
	"s": KeyPitchUp,
	"w": KeyPitchDown,
}

// ParseKey accepts either a control name ("pitch_up") or its keyboard
// binding ("s"), case-insensitively.
func ParseKey(s string) (Key, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := keyboard[s]; ok {
		return k, nil
	}
	switch k := Key(s); k {
	case KeyRollLeft, KeyRollRight, KeyYawLeft, KeyYawRight, KeyPitchUp, KeyPitchDown:
		return k, nil
	}
	return "", fmt.Errorf("unknown control key %q", s)
}

// Controls holds which control keys are currently held.
type Controls struct {
	RollLeft  bool `json:"rollLeft"`
	RollRight bool `json:"rollRight"`
	YawLeft   bool `json:"yawLeft"`
	YawRight  bool `json:"yawRight"`
	PitchUp   bool `json:"pitchUp"`
	PitchDown bool `json:"pitchDown"`
}

// Set records a press or release of k.
func (c *Controls) Set(k Key, pressed bool) {
	switch k {
	case KeyRollLeft:
		c.RollLeft = pressed
	case KeyRollRight:
		c.RollRight = pressed
	case KeyYawLeft:
		c.YawLeft = pressed
	case KeyYawRight:
		c.YawRight = pressed
	case KeyPitchUp:
		c.PitchUp = pressed
	case KeyPitchDown:
		c.PitchDown = pressed
	}
}

// Demand is the target roll/pitch/yaw derived from held keys.
type Demand struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Demand maps held keys to target rates.
//
// Opposing keys are not cancelled: the key checked last wins, so roll-right
// beats roll-left, yaw-right beats yaw-left and pitch-down beats pitch-up.
func (c Controls) Demand() Demand {
	var d Demand
	if c.RollLeft {
		d.Roll = 1.0
	}
	if c.RollRight {
		d.Roll = -1.0
	}
	if c.YawLeft {
		d.Yaw = 0.5
	}
	if c.YawRight {
		d.Yaw = -0.5
	}
	if c.PitchUp {
		d.Pitch = 0.6
	}
	if c.PitchDown {
		d.Pitch = -0.6
	}
	return d
}
