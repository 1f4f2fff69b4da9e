package store

import (
	"time"

	"github.com/google/uuid"
)

// Models lists every table, in migration order.
var Models = []any{
	&Flight{},
	&CrashEvent{},
	&ObjectiveEvent{},
}

// FlightStats are the running totals of one flight.
type FlightStats struct {
	Ticks       uint64  `json:"ticks"`
	Crashes     int     `json:"crashes"`
	Objectives  int     `json:"objectives"`
	Distance    float64 `json:"distance"`
	MaxAltitude float64 `json:"maxAltitude"`
}

// Flight is one server or scenario session.
type Flight struct {
	ID        uuid.UUID  `json:"id" gorm:"type:text;primaryKey"`
	Source    string     `json:"source" gorm:"size:32"`
	StartedAt time.Time  `json:"startedAt" gorm:"index"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	FlightStats `gorm:"embedded"`

	CrashEvents     []CrashEvent     `json:"crashEvents,omitempty" gorm:"foreignKey:FlightID"`
	ObjectiveEvents []ObjectiveEvent `json:"objectiveEvents,omitempty" gorm:"foreignKey:FlightID"`
}

// CrashEvent is a ground impact.
type CrashEvent struct {
	ID       uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	FlightID uuid.UUID `json:"flightId" gorm:"type:text;index"`
	Tick     uint64    `json:"tick"`
	At       time.Time `json:"at"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Z        float64   `json:"z"`
}

// ObjectiveEvent is a completed goal.
type ObjectiveEvent struct {
	ID       uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	FlightID uuid.UUID `json:"flightId" gorm:"type:text;index"`
	Tick     uint64    `json:"tick"`
	At       time.Time `json:"at"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Z        float64   `json:"z"`
	// Count is the flight's objective total after this one.
	Count int `json:"count"`
}
