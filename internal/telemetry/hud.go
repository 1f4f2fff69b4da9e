package telemetry

import (
	"fmt"
	"math"
)

// HUD display slot identifiers.
const (
	SlotPitchReadout = "pitch-readout"
	SlotPitch        = "pitchVal"
	SlotRoll         = "rollVal"
	SlotHeading      = "headingVal"
	SlotSpeed        = "speedVal"
	SlotAltitude     = "altVal"
	SlotObjectives   = "objectiveLabel"
)

const (
	// headingTapePxPerDeg is the heading tape scroll per degree.
	headingTapePxPerDeg = 6.0
	// pitchLadderPxPerDeg is the horizon shift per degree of pitch.
	pitchLadderPxPerDeg = 5.0
)

// Slot is one text value for the HUD collaborator.
type Slot struct {
	ID   string `json:"id" cbor:"id"`
	Text string `json:"text" cbor:"text"`
}

// Instruments are the numeric transforms of the graphic HUD elements.
type Instruments struct {
	// HeadingTapeOffsetPx translates the heading tape horizontally.
	HeadingTapeOffsetPx float64 `json:"headingTapeOffsetPx" cbor:"tape"`
	// HorizonRotationDeg and HorizonShiftPx place the artificial horizon disk.
	HorizonRotationDeg float64 `json:"horizonRotationDeg" cbor:"hrot"`
	HorizonShiftPx     float64 `json:"horizonShiftPx" cbor:"hshift"`
}

// Slots formats r into display text keyed by stable slot ids.
func Slots(r Readout) []Slot {
	pitch := round(r.PitchDeg)
	return []Slot{
		{ID: SlotPitchReadout, Text: fmt.Sprintf("%d°", pitch)},
		{ID: SlotPitch, Text: fmt.Sprintf("%d", pitch)},
		{ID: SlotRoll, Text: fmt.Sprintf("%d", round(r.RollDeg))},
		{ID: SlotHeading, Text: fmt.Sprintf("%d", round(r.HeadingDeg))},
		{ID: SlotSpeed, Text: fmt.Sprintf("%d kts", round(r.SpeedKts))},
		{ID: SlotAltitude, Text: fmt.Sprintf("%d ft", round(r.AltitudeFt))},
		{ID: SlotObjectives, Text: fmt.Sprintf("%d", r.Objectives)},
	}
}

// InstrumentsFor computes the tape and horizon transforms for r.
func InstrumentsFor(r Readout) Instruments {
	return Instruments{
		HeadingTapeOffsetPx: -(r.HeadingDeg * headingTapePxPerDeg),
		HorizonRotationDeg:  -r.RollDeg,
		HorizonShiftPx:      r.PitchDeg * pitchLadderPxPerDeg,
	}
}

// round matches the browser's Math.round: halves go toward +Inf.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
