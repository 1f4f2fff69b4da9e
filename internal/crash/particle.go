package crash

import (
	"infinite-flight/internal/geometry/vector"
)

// Kind distinguishes fire from smoke.
type Kind string

const (
	Fire  Kind = "fire"
	Smoke Kind = "smoke"
)

// Particle colors, 0xRRGGBB.
const (
	ColorFireRed    = 0xff4500
	ColorFireOrange = 0xffa500
	ColorSmoke      = 0x555555
)

const (
	fireShrink = 0.95
	smokeGrow  = 1.02

	initialOpacity = 0.8

	// smokeShare is the probability a particle is smoke.
	smokeShare = 0.4

	minDecay   = 0.01
	decaySpan  = 0.02
	spreadSpan = 0.5
	riseSpan   = 0.5
)

// Particle is one blob of fire or smoke.
type Particle struct {
	Position vector.Vec3 `json:"position" cbor:"p"`
	Velocity vector.Vec3 `json:"velocity" cbor:"v"`
	// Life runs from 1 down to 0.
	Life float64 `json:"life" cbor:"l"`
	// Decay is the life lost per tick.
	Decay   float64 `json:"decay" cbor:"d"`
	Kind    Kind    `json:"kind" cbor:"k"`
	Color   uint32  `json:"color" cbor:"c"`
	Scale   float64 `json:"scale" cbor:"s"`
	Opacity float64 `json:"opacity" cbor:"o"`
}

func newParticle(rng Source, at vector.Vec3) Particle {
	p := Particle{
		Position: at,
		Life:     1,
		Scale:    1,
		Opacity:  initialOpacity,
		Kind:     Smoke,
		Color:    ColorSmoke,
	}
	if rng.Float64() > smokeShare {
		p.Kind = Fire
		p.Color = ColorFireRed
		if rng.Float64() > 0.5 {
			p.Color = ColorFireOrange
		}
	}
	// Up and out.
	p.Velocity = vector.Vec3{
		X: (rng.Float64() - 0.5) * spreadSpan,
		Y: rng.Float64() * riseSpan,
		Z: (rng.Float64() - 0.5) * spreadSpan,
	}
	p.Decay = minDecay + rng.Float64()*decaySpan
	return p
}

func (p *Particle) age() {
	p.Life -= p.Decay
	p.Position = p.Position.Add(p.Velocity)
	switch p.Kind {
	case Fire:
		p.Scale *= fireShrink
	case Smoke:
		p.Scale *= smokeGrow
		p.Opacity = p.Life
	}
}
