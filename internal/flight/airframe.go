package flight

import (
	"infinite-flight/internal/geometry/vector"
)

// Hinge offsets of the moving surfaces behind their parent structure.
const (
	offsetAileron = 0.8
	offsetRudder  = 0.6

	// aileronSpan is the aileron hinge distance from the centerline at unit wing scale.
	aileronSpan = 2.5
)

// Geometry is the adjustable airframe layout, in airframe-local units.
type Geometry struct {
	WingZ     float64 `json:"wingZ" mapstructure:"wing_z"`
	WingScale float64 `json:"wingScale" mapstructure:"wing_scale"`
	TailZ     float64 `json:"tailZ" mapstructure:"tail_z"`
	MotorZ    float64 `json:"motorZ" mapstructure:"motor_z"`
	ConeZ     float64 `json:"coneZ" mapstructure:"cone_z"`
}

// DefaultGeometry returns the stock airframe.
func DefaultGeometry() Geometry {
	return Geometry{
		WingZ:     0.2,
		WingScale: 1.3365,
		TailZ:     2.415,
		MotorZ:    -3.1,
		ConeZ:     -0.029,
	}
}

// Pivots are the hinge anchor points of the moving control surfaces.
type Pivots struct {
	AileronLeft  vector.Vec3 `json:"aileronLeft"`
	AileronRight vector.Vec3 `json:"aileronRight"`
	Rudder       vector.Vec3 `json:"rudder"`
	Elevator     vector.Vec3 `json:"elevator"`
}

// Pivots derives the hinge points from the wing and tail layout.
func (g Geometry) Pivots() Pivots {
	span := aileronSpan * g.WingScale
	return Pivots{
		AileronLeft:  vector.Vec3{X: -span, Z: g.WingZ + offsetAileron},
		AileronRight: vector.Vec3{X: span, Z: g.WingZ + offsetAileron},
		Rudder:       vector.Vec3{Y: 0.8, Z: g.TailZ + offsetRudder},
		Elevator:     vector.Vec3{Y: 0.2, Z: g.TailZ + offsetRudder},
	}
}

// Part names used by renderers.
const (
	PartWings        = "wings"
	PartTail         = "tail"
	PartPropeller    = "propeller"
	PartSpinner      = "spinner"
	PartAileronLeft  = "aileronLeft"
	PartAileronRight = "aileronRight"
	PartRudder       = "rudder"
	PartElevator     = "elevator"
)

// Part is one renderable piece of the airframe and its transform.
type Part struct {
	Name      string           `json:"name" cbor:"name"`
	Transform vector.Transform `json:"transform" cbor:"t"`
}

// Parts returns each part's transform relative to the airframe.
func (g Geometry) Parts(a *Aircraft) []Part {
	p := g.Pivots()
	id := vector.Identity()

	propeller := vector.NewTransform(vector.Vec3{Z: g.MotorZ}, id.RotateZ(a.PropellerAngle))
	spinner := propeller.Compose(vector.NewTransform(vector.Vec3{Z: g.ConeZ}, id))

	wings := vector.NewTransform(vector.Vec3{Z: g.WingZ}, id)
	wings.Scale.X = g.WingScale

	return []Part{
		{Name: PartWings, Transform: wings},
		{Name: PartTail, Transform: vector.NewTransform(vector.Vec3{Z: g.TailZ}, id)},
		{Name: PartPropeller, Transform: propeller},
		{Name: PartSpinner, Transform: spinner},
		// Ailerons deflect in opposition.
		{Name: PartAileronLeft, Transform: vector.NewTransform(p.AileronLeft, id.RotateX(-a.Aileron))},
		{Name: PartAileronRight, Transform: vector.NewTransform(p.AileronRight, id.RotateX(a.Aileron))},
		{Name: PartRudder, Transform: vector.NewTransform(p.Rudder, id.RotateY(-a.Rudder))},
		{Name: PartElevator, Transform: vector.NewTransform(p.Elevator, id.RotateX(-a.Elevator))},
	}
}

// WorldParts returns the parts composed with the airframe's world transform.
func (g Geometry) WorldParts(a *Aircraft) []Part {
	body := a.Transform()
	parts := g.Parts(a)
	for i := range parts {
		parts[i].Transform = body.Compose(parts[i].Transform)
	}
	return parts
}
