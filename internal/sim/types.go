package sim

import (
	"time"

	"infinite-flight/internal/camera"
	"infinite-flight/internal/crash"
	"infinite-flight/internal/flight"
	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/goal"
	"infinite-flight/internal/telemetry"
	"infinite-flight/internal/terrain"
)

type EventType string

const (
	EventCrash         EventType = "crash"
	EventRespawn       EventType = "respawn"
	EventGoalSet       EventType = "goal_set"
	EventGoalCompleted EventType = "goal_completed"
	EventRecentered    EventType = "recentered"
)

// Event is a discrete state change that happened during or before a tick.
type Event struct {
	Type     EventType   `json:"type" cbor:"type"`
	At       time.Time   `json:"at" cbor:"at"`
	Position vector.Vec3 `json:"position" cbor:"p"`
	// Slots lists the chunks moved by a recenter.
	Slots []int `json:"slots,omitempty" cbor:"slots,omitempty"`
	// Count is the completed objective total after a goal_completed event.
	Count int `json:"count,omitempty" cbor:"count,omitempty"`
}

// AircraftPose is the renderable aircraft state.
type AircraftPose struct {
	Position       vector.Vec3 `json:"position" cbor:"p"`
	Orientation    vector.Quat `json:"orientation" cbor:"q"`
	Aileron        float64     `json:"aileron" cbor:"ail"`
	Rudder         float64     `json:"rudder" cbor:"rud"`
	Elevator       float64     `json:"elevator" cbor:"elev"`
	EnginePower    float64     `json:"enginePower" cbor:"pwr"`
	PropellerAngle float64     `json:"propellerAngle" cbor:"prop"`
	Crashed        bool        `json:"crashed" cbor:"crashed"`
	// Pulse is set while the objective-completed highlight is showing.
	Pulse bool          `json:"pulse" cbor:"pulse"`
	Parts []flight.Part `json:"parts" cbor:"parts"`
}

// Frame is everything the renderer and HUD need after one tick.
type Frame struct {
	Tick uint64    `json:"tick" cbor:"tick"`
	Time time.Time `json:"time" cbor:"time"`
	// Elapsed is the processing time the tick took.
	Elapsed     time.Duration         `json:"elapsed" cbor:"elapsed"`
	State       crash.State           `json:"state" cbor:"state"`
	Aircraft    AircraftPose          `json:"aircraft" cbor:"aircraft"`
	Camera      camera.Pose           `json:"camera" cbor:"camera"`
	Readout     telemetry.Readout     `json:"readout" cbor:"readout"`
	HUD         []telemetry.Slot      `json:"hud" cbor:"hud"`
	Instruments telemetry.Instruments `json:"instruments" cbor:"inst"`
	Particles   []crash.Particle      `json:"particles" cbor:"particles"`
	Goal        *goal.Marker          `json:"goal,omitempty" cbor:"goal,omitempty"`
	// Chunks holds only the chunks resampled this tick, or every chunk in
	// the first frame a subscriber receives.
	Chunks    []terrain.Chunk `json:"chunks,omitempty" cbor:"chunks,omitempty"`
	Events    []Event         `json:"events,omitempty" cbor:"events,omitempty"`
	Wireframe bool            `json:"wireframe" cbor:"wire"`
}

// HasEvent reports whether f carries an event of type t.
func (f Frame) HasEvent(t EventType) bool {
	for _, e := range f.Events {
		if e.Type == t {
			return true
		}
	}
	return false
}
